// Package sheets provides the Google Sheets lead sink and the read path used
// by the dashboard.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/models"
)

const (
	// DefaultCredentialsFile is the fallback service account key location.
	DefaultCredentialsFile = "credentials.json"
	// leadRange covers the six lead columns on the first sheet.
	leadRange = "A:F"
	// timestampLayout matches the capture time format written to the sheet.
	timestampLayout = "2006-01-02 15:04:05"
)

// Client wraps the Sheets API for a single spreadsheet.
type Client struct {
	values        valuesService
	spreadsheetID string
}

// valuesService defines the minimal spreadsheet operations used by the
// client, satisfied by the Sheets API and by test fakes.
type valuesService interface {
	Append(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error
	Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
}

// NewClient authenticates against the Sheets API with a service account
// credential. The credential JSON is read from the GDRIVE_CREDENTIALS
// environment variable first, falling back to a local key file.
func NewClient(ctx context.Context, spreadsheetID string) (*Client, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID not set")
	}

	data, err := resolveCredentials()
	if err != nil {
		return nil, err
	}

	config, err := google.JWTConfigFromJSON(data, sheetsapi.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}

	svc, err := sheetsapi.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	slog.Debug("sheets.NewClient: client initialized", "spreadsheetID", spreadsheetID)
	return &Client{values: &apiValues{svc: svc}, spreadsheetID: spreadsheetID}, nil
}

// resolveCredentials returns the service account key JSON, preferring the
// environment blob over the key file.
func resolveCredentials() ([]byte, error) {
	if blob := os.Getenv("GDRIVE_CREDENTIALS"); blob != "" {
		slog.Debug("sheets.resolveCredentials: using GDRIVE_CREDENTIALS environment blob")
		return []byte(blob), nil
	}

	path := os.Getenv("GOOGLE_CREDENTIALS_FILE")
	if path == "" {
		path = DefaultCredentialsFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", path, err)
	}
	slog.Debug("sheets.resolveCredentials: using credentials file", "path", path)
	return data, nil
}

// AppendLead appends the lead as one row to the spreadsheet.
func (c *Client) AppendLead(ctx context.Context, lead models.Lead) error {
	slog.Info("sheets.AppendLead: saving lead", "nome", lead.Nome, "classificacao", lead.Classificacao)

	if err := c.values.Append(ctx, c.spreadsheetID, leadRange, [][]interface{}{leadRow(lead)}); err != nil {
		slog.Error("sheets.AppendLead: append failed", "error", err)
		return fmt.Errorf("failed to append lead row: %w", err)
	}

	slog.Info("sheets.AppendLead: lead saved")
	return nil
}

// ReadAll returns every lead row in the spreadsheet, skipping the header row
// when present.
func (c *Client) ReadAll(ctx context.Context) ([]models.Lead, error) {
	rows, err := c.values.Get(ctx, c.spreadsheetID, leadRange)
	if err != nil {
		slog.Error("sheets.ReadAll: read failed", "error", err)
		return nil, fmt.Errorf("failed to read lead rows: %w", err)
	}

	leads := parseRows(rows)
	slog.Debug("sheets.ReadAll: rows loaded", "count", len(leads))
	return leads, nil
}

// leadRow renders the lead as the six spreadsheet columns.
func leadRow(lead models.Lead) []interface{} {
	return []interface{}{
		lead.Nome,
		lead.Email,
		lead.Telefone,
		lead.Interesse,
		lead.Classificacao,
		lead.CapturedAt.Format(timestampLayout),
	}
}

// parseRows converts raw sheet rows into lead records. The first row is
// treated as a header when its first cell is the Nome column title.
func parseRows(rows [][]interface{}) []models.Lead {
	leads := make([]models.Lead, 0, len(rows))
	for i, row := range rows {
		if i == 0 && len(row) > 0 && cell(row, 0) == "Nome" {
			continue
		}
		if len(row) == 0 {
			continue
		}
		lead := models.Lead{
			Nome:          cell(row, 0),
			Email:         cell(row, 1),
			Telefone:      cell(row, 2),
			Interesse:     cell(row, 3),
			Classificacao: cell(row, 4),
		}
		if ts, err := time.ParseInLocation(timestampLayout, cell(row, 5), time.Local); err == nil {
			lead.CapturedAt = ts
		}
		leads = append(leads, lead)
	}
	return leads
}

// cell returns the row column as a string, empty when absent.
func cell(row []interface{}, idx int) string {
	if idx >= len(row) {
		return ""
	}
	s, _ := row[idx].(string)
	return s
}

// apiValues adapts the generated Sheets API client to valuesService.
type apiValues struct {
	svc *sheetsapi.Service
}

func (a *apiValues) Append(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error {
	vr := &sheetsapi.ValueRange{Values: values}
	_, err := a.svc.Spreadsheets.Values.Append(spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return err
}

func (a *apiValues) Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := a.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}
