package dataset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPLoader fetches the dataset document once from a URL.
type HTTPLoader struct {
	client *resty.Client
	url    string
}

// NewHTTPLoader builds a loader with the given request timeout. There are no
// retries; a failed fetch yields an error the caller degrades on.
func NewHTTPLoader(url string, timeout time.Duration) *HTTPLoader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "cattlevalue/1.0")
	return &HTTPLoader{client: client, url: url}
}

func (l *HTTPLoader) Load(ctx context.Context) (*Dataset, error) {
	if l.url == "" {
		return nil, errors.New("missing dataset URL")
	}
	resp, err := l.client.R().SetContext(ctx).Get(l.url)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch dataset: HTTP %d", resp.StatusCode())
	}
	d, err := Decode(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", l.url, err)
	}
	return d, nil
}
