// Package sheets implements the remote store on a Google Sheet, one row per
// transaction with columns A:G matching the wire contract
// (id, type, amount, category, date, notes, created_at).
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"onetouch/internal/core"
	"onetouch/internal/remote"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ remote.Store = (*Client)(nil)

// NewFromEnv creates a Sheets-backed store using environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials via
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS. Optional: GOOGLE_SHEET_NAME
// (default "Transactions").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Transactions"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	inlineJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	credFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inlineJSON == "" && credFile == "" {
		credFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case inlineJSON != "":
		credentialsJSON = []byte(inlineJSON)
	case credFile != "":
		b, err := os.ReadFile(credFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func (c *Client) LoadAll(ctx context.Context) ([]core.Transaction, error) {
	rng := fmt.Sprintf("%s!A2:G", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, remote.Unavailable(fmt.Errorf("read %s: %w", rng, err))
	}

	var out []core.Transaction
	for _, row := range resp.Values {
		txn, ok := parseRow(row)
		if !ok {
			continue
		}
		out = append(out, txn)
	}
	core.SortForDisplay(out)
	return out, nil
}

func (c *Client) Insert(ctx context.Context, txn core.Transaction) error {
	rng := fmt.Sprintf("%s!A:G", c.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{{
		txn.ID,
		string(txn.Type),
		txn.Amount.String(),
		txn.Category,
		txn.Date.String(),
		txn.Notes,
		txn.CreatedAt.UTC().Format(time.RFC3339),
	}}}

	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return remote.Unavailable(fmt.Errorf("append to %s: %w", c.sheetName, err))
	}
	return nil
}

func (c *Client) Remove(ctx context.Context, id string) error {
	rowIndex, err := c.findRowByID(ctx, id)
	if err != nil {
		return err
	}
	if rowIndex < 0 {
		// Unknown id: remote contract says this is a no-op.
		return nil
	}

	sheetID, err := c.sheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowIndex),
					EndIndex:   int64(rowIndex + 1),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return remote.Unavailable(fmt.Errorf("delete row %d: %w", rowIndex, err))
	}
	return nil
}

// findRowByID scans column A and returns the zero-based row index of the
// matching id, or -1 when absent.
func (c *Client) findRowByID(ctx context.Context, id string) (int, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return -1, remote.Unavailable(fmt.Errorf("read %s: %w", rng, err))
	}
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i, nil
		}
	}
	return -1, nil
}

func (c *Client) sheetID(ctx context.Context) (int64, error) {
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, remote.Unavailable(fmt.Errorf("get spreadsheet metadata: %w", err))
	}
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == c.sheetName {
			return sheet.Properties.SheetId, nil
		}
	}
	return 0, remote.Unavailable(fmt.Errorf("sheet %q not found", c.sheetName))
}

func parseRow(row []any) (core.Transaction, bool) {
	cols := make([]string, 7)
	for i := 0; i < len(row) && i < 7; i++ {
		cols[i] = strings.TrimSpace(fmt.Sprint(row[i]))
	}
	if cols[0] == "" {
		return core.Transaction{}, false
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(cols[2], ",", "."))
	if err != nil {
		return core.Transaction{}, false
	}
	date, err := core.ParseDate(cols[4])
	if err != nil {
		return core.Transaction{}, false
	}

	txn := core.Transaction{
		ID:       cols[0],
		Type:     core.TransactionType(cols[1]),
		Amount:   amount,
		Category: cols[3],
		Date:     date,
		Notes:    cols[5],
	}
	if !txn.Type.IsValid() {
		return core.Transaction{}, false
	}
	if created, err := time.Parse(time.RFC3339, cols[6]); err == nil {
		txn.CreatedAt = created
	}
	return txn, true
}
