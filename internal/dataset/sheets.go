package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"cattlevalue/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// SheetsConfig locates the price table in a spreadsheet. The range must
// start with a header row containing "type", "date" and "value" columns.
type SheetsConfig struct {
	SpreadsheetID      string
	Range              string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// SheetsLoader reads the reference dataset from a Google Sheets range.
type SheetsLoader struct {
	read func(ctx context.Context) ([][]interface{}, error)
}

// NewSheetsLoader creates a read-only Sheets client using service account
// credentials, falling back to GOOGLE_APPLICATION_CREDENTIALS.
func NewSheetsLoader(ctx context.Context, cfg SheetsConfig) (*SheetsLoader, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	rng := strings.TrimSpace(cfg.Range)
	if rng == "" {
		rng = "Prices!A:C"
	}

	credentials := []byte(strings.TrimSpace(cfg.ServiceAccountJSON))
	if len(credentials) == 0 {
		path := strings.TrimSpace(cfg.ServiceAccountFile)
		if path == "" {
			path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
		}
		if path == "" {
			return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
		}
		var err error
		credentials, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets dataset source ready", "spreadsheet_id", cfg.SpreadsheetID, "range", rng)

	return &SheetsLoader{read: func(ctx context.Context) ([][]interface{}, error) {
		resp, err := svc.Spreadsheets.Values.Get(cfg.SpreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", rng, err)
		}
		return resp.Values, nil
	}}, nil
}

func (l *SheetsLoader) Load(ctx context.Context) (*Dataset, error) {
	values, err := l.read(ctx)
	if err != nil {
		return nil, err
	}
	return parseRows(values)
}

// parseRows groups (type, date, value) rows by type, keeping the order in
// which types and rows appear. Blank rows and rows whose value is not a
// whole number of cents are skipped.
func parseRows(values [][]interface{}) (*Dataset, error) {
	if len(values) == 0 {
		return Empty(), nil
	}
	headers := toStrings(values[0])
	colType := indexOf(headers, "type")
	colDate := indexOf(headers, "date")
	colValue := indexOf(headers, "value")
	if colType == -1 || colDate == -1 || colValue == -1 {
		return nil, fmt.Errorf("%w: unexpected sheet header %v", ErrMalformed, headers)
	}

	var entries []core.ReferenceEntry
	pos := map[string]int{}
	for _, raw := range values[1:] {
		row := toStrings(raw)
		cattleType := safeGet(row, colType)
		date := safeGet(row, colDate)
		if cattleType == "" || date == "" {
			continue
		}
		cents, ok := parseCents(safeGet(row, colValue))
		if !ok {
			continue
		}
		i, seen := pos[cattleType]
		if !seen {
			i = len(entries)
			pos[cattleType] = i
			entries = append(entries, core.ReferenceEntry{Type: cattleType})
		}
		entries[i].Values = append(entries[i].Values, core.ReferenceObservation{Date: date, Value: cents})
	}
	return New(entries), nil
}

func parseCents(s string) (int64, bool) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(v, target) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
