// Package google implements the sheets mirror on the Google Sheets API.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"expenses/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Options configure New. Exactly one of CredentialsJSON or CredentialsFile is
// normally set; ClientOptions replace credential handling entirely.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	ClientOptions   []goption.ClientOption
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

var _ sheets.Mirror = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheet := strings.TrimSpace(opts.SheetName)
	if sheet == "" {
		sheet = "Expenses"
	}

	clientOpts := opts.ClientOptions
	if len(clientOpts) == 0 {
		creds, err := serviceAccountJSON(ctx, opts)
		if err != nil {
			return nil, err
		}
		clientOpts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "sheet", sheet)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}, nil
}

// serviceAccountJSON resolves credentials from inline JSON, a file, or
// GOOGLE_APPLICATION_CREDENTIALS, in that order.
func serviceAccountJSON(ctx context.Context, opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account credentials", "path", file, "size", len(b))
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// EnsureHeader writes the header row when the sheet is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	rng := c.rowRange(1)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	return c.write(ctx, 1, sheets.Header)
}

func (c *Client) Append(ctx context.Context, row sheets.Row) error {
	rng := fmt.Sprintf("%s!A:F", c.sheet)
	vr := &gsheet.ValueRange{Values: [][]any{row.Values()}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", c.sheet, err)
	}
	return nil
}

func (c *Client) Update(ctx context.Context, row sheets.Row) error {
	n, err := c.findRow(ctx, row.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		slog.WarnContext(ctx, "Mirrored row missing, appending", "expense_id", row.ID)
		return c.Append(ctx, row)
	}
	return c.write(ctx, n, row.Values())
}

func (c *Client) Clear(ctx context.Context, id int64) error {
	n, err := c.findRow(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	rng := c.rowRange(n)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) write(ctx context.Context, n int, values []any) error {
	rng := c.rowRange(n)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// findRow returns the 1-based sheet row holding id, or 0.
func (c *Client) findRow(ctx context.Context, id int64) (int, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}
	return rowNumber(resp.Values, id), nil
}

func (c *Client) rowRange(n int) string {
	return fmt.Sprintf("%s!A%d:F%d", c.sheet, n, n)
}

// rowNumber scans an ID column for id. Header and blank cells never match.
func rowNumber(column [][]any, id int64) int {
	for i, cells := range column {
		if len(cells) == 0 {
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(cells[0])), 10, 64)
		if err == nil && v == id {
			return i + 1
		}
	}
	return 0
}
