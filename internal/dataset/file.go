package dataset

import (
	"context"
	"fmt"
	"os"
)

// FileLoader reads the dataset from a local JSON file.
type FileLoader struct {
	Path string
}

func (f FileLoader) Load(_ context.Context) (*Dataset, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read dataset file: %w", err)
	}
	d, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Path, err)
	}
	return d, nil
}
