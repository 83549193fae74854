package gdrive

import (
	"context"
	"fmt"

	"google.golang.org/api/sheets/v4"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// Column order is a fixed contract with the operators reading the sheet.
var sheetHeader = []any{
	"Nama", "Email", "WA", "Usia", "Kota", "Instagram",
	"History", "Ukuran Vest", "Bukti Bayar", "Bukti TikTok", "Bukti Instagram",
}

// GetOrCreateSheet resolves a spreadsheet by exact title, creating it with
// a header row on first use. Memoized per composed name for the process
// lifetime, same as folders.
func (c *Client) GetOrCreateSheet(ctx context.Context, name string) (string, error) {
	if id, ok := c.sheetIDs.Get(name); ok {
		return id, nil
	}

	id, err := c.findSheet(ctx, name)

	if err != nil {
		return "", err
	}

	if id == "" {
		id, err = c.createSheet(ctx, name)

		if err != nil {
			return "", err
		}

		c.log.Info("spreadsheet created", "name", name, "spreadsheet_id", id)
	}

	c.sheetIDs.Set(name, id)
	return id, nil
}

func (c *Client) findSheet(ctx context.Context, name string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQuery(name), spreadsheetMimeType)

	list, err := c.drive.Files.List().
		Q(q).
		Fields("files(id, name)").
		PageSize(10).
		Context(ctx).
		Do()

	if err != nil {
		return "", fmt.Errorf("list spreadsheets %q: %w", name, err)
	}

	for _, f := range list.Files {
		if f.Name == name {
			return f.Id, nil
		}
	}

	return "", nil
}

func (c *Client) createSheet(ctx context.Context, name string) (string, error) {
	created, err := c.sheets.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title: name,
		},
	}).Context(ctx).Do()

	if err != nil {
		return "", fmt.Errorf("create spreadsheet %q: %w", name, err)
	}

	if err := c.appendRow(ctx, created.SpreadsheetId, sheetHeader); err != nil {
		return "", err
	}

	return created.SpreadsheetId, nil
}

// AppendRow appends one row to the spreadsheet named name, creating the
// spreadsheet first if needed.
func (c *Client) AppendRow(ctx context.Context, name string, row []any) error {
	id, err := c.GetOrCreateSheet(ctx, name)

	if err != nil {
		return err
	}

	return c.appendRow(ctx, id, row)
}

func (c *Client) appendRow(ctx context.Context, spreadsheetID string, row []any) error {
	vr := &sheets.ValueRange{
		Values: [][]any{row},
	}

	_, err := c.sheets.Spreadsheets.Values.Append(spreadsheetID, "A1", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()

	if err != nil {
		return fmt.Errorf("append row to %s: %w", spreadsheetID, err)
	}

	return nil
}
