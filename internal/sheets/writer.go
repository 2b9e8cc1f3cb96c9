package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/service"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Columns rendered as numbers rather than text.
var numericColumns = map[string]bool{
	"Debit":         true,
	"Credit":        true,
	"Exchange Rate": true,
}

// spreadsheetAPI is the slice of the Sheets service the writer calls.
type spreadsheetAPI interface {
	Get(ctx context.Context, spreadsheetID string) (*sheets.Spreadsheet, error)
	Create(ctx context.Context, spreadsheet *sheets.Spreadsheet) (*sheets.Spreadsheet, error)
	BatchUpdate(ctx context.Context, spreadsheetID string, req *sheets.BatchUpdateSpreadsheetRequest) (*sheets.BatchUpdateSpreadsheetResponse, error)
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error
}

// Writer publishes journal files as tabs of one spreadsheet.
type Writer struct {
	api           spreadsheetAPI
	logger        *slog.Logger
	spreadsheetID string
	config        Config
}

// NewWriter creates a new Google Sheets journal publisher.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return newWriter(&googleAPI{service: srv}, config, logger), nil
}

func newWriter(api spreadsheetAPI, config Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		api:           api,
		config:        config,
		logger:        logger.With("component", "sheets"),
		spreadsheetID: config.SpreadsheetID,
	}
}

// SpreadsheetID returns the spreadsheet written to, once known.
func (w *Writer) SpreadsheetID() string {
	return w.spreadsheetID
}

// PublishJournal replaces the contents of the tab named after the journal
// file with header and rows. The tab is created when missing.
func (w *Writer) PublishJournal(ctx context.Context, name string, header []string, rows [][]string) error {
	tab := TabName(name)
	if tab == "" {
		return fmt.Errorf("%w: journal name is required", common.ErrInvalidConfig)
	}
	w.logger.Info("Publishing journal", "tab", tab, "rows", len(rows))

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	retryOpts := w.config.retryOptions()

	var sheetID int64
	err = common.WithRetry(ctx, func() error {
		var ensureErr error
		sheetID, ensureErr = w.ensureTab(ctx, spreadsheetID, tab)
		return ensureErr
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to prepare tab %s: %w", tab, err)
	}

	err = common.WithRetry(ctx, func() error {
		return w.api.Clear(ctx, spreadsheetID, sheetRange(tab, "A:Z"))
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to clear tab %s: %w", tab, err)
	}

	values := prepareValues(header, rows)
	if err := w.writeData(ctx, spreadsheetID, tab, values); err != nil {
		return fmt.Errorf("failed to write tab %s: %w", tab, err)
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			_, fmtErr := w.api.BatchUpdate(ctx, spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
				Requests: formatRequests(sheetID, header),
			})
			return fmtErr
		}, retryOpts)
		if err != nil {
			// formatting is cosmetic
			w.logger.Warn("failed to apply formatting", "tab", tab, "error", err)
		}
	}

	w.logger.Info("Journal published",
		"spreadsheet_id", spreadsheetID,
		"tab", tab,
		"rows_written", len(values))
	return nil
}

// getOrCreateSpreadsheet gets the configured spreadsheet or creates a new one.
// A created spreadsheet is reused by later calls on the same writer.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.spreadsheetID != "" {
		if _, err := w.api.Get(ctx, w.spreadsheetID); err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.spreadsheetID, err)
		}
		return w.spreadsheetID, nil
	}

	created, err := w.api.Create(ctx, &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
	})
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	w.spreadsheetID = created.SpreadsheetId
	return w.spreadsheetID, nil
}

// ensureTab returns the sheet id of the named tab, adding the tab if needed.
func (w *Writer) ensureTab(ctx context.Context, spreadsheetID, tab string) (int64, error) {
	ss, err := w.api.Get(ctx, spreadsheetID)
	if err != nil {
		return 0, err
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == tab {
			return s.Properties.SheetId, nil
		}
	}

	resp, err := w.api.BatchUpdate(ctx, spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: tab},
			},
		}},
	})
	if err != nil {
		return 0, err
	}
	if resp == nil || len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("add sheet %s returned no properties", tab)
	}

	w.logger.Debug("added tab", "tab", tab)
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

// writeData writes values in batches to avoid API limits.
func (w *Writer) writeData(ctx context.Context, spreadsheetID, tab string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))
		batch := values[i:end]

		rng := sheetRange(tab, fmt.Sprintf("A%d", i+1))
		err := common.WithRetry(ctx, func() error {
			return w.api.Update(ctx, spreadsheetID, rng, batch)
		}, w.config.retryOptions())
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "tab", tab, "start_row", i+1, "rows", len(batch))
	}
	return nil
}

// TabName derives a tab title from a journal file name.
func TabName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, ".csv")
	// sheet titles are capped at 100 characters
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}

func sheetRange(tab, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(tab, "'", "''"), cells)
}

// prepareValues converts CSV rows into cell values. Amount columns become
// numbers so the sheet can total them; every other cell stays text.
func prepareValues(header []string, rows [][]string) [][]any {
	values := make([][]any, 0, len(rows)+1)

	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	values = append(values, head)

	for _, row := range rows {
		cells := make([]any, len(row))
		for i, cell := range row {
			cells[i] = cell
			if i >= len(header) || !numericColumns[header[i]] || cell == "" {
				continue
			}
			if d, err := decimal.NewFromString(cell); err == nil {
				cells[i] = d.InexactFloat64()
			}
		}
		values = append(values, cells)
	}
	return values
}

// formatRequests bolds and freezes the header and formats amount columns.
func formatRequests(sheetID int64, header []string) []*sheets.Request {
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:       sheetID,
					StartRowIndex: 0,
					EndRowIndex:   1,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: sheetID,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount: 1,
					},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}

	for i, h := range header {
		if h != "Debit" && h != "Credit" {
			continue
		}
		requests = append(requests, &sheets.Request{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    1,
					StartColumnIndex: int64(i),
					EndColumnIndex:   int64(i + 1),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						NumberFormat: &sheets.NumberFormat{
							Type:    "NUMBER",
							Pattern: "#,##0.00#",
						},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		})
	}

	requests = append(requests, &sheets.Request{
		AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
			Dimensions: &sheets.DimensionRange{
				SheetId:    sheetID,
				Dimension:  "COLUMNS",
				StartIndex: 0,
				EndIndex:   int64(len(header)),
			},
		},
	})
	return requests
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := oauthConfig(config.ClientID, config.ClientSecret, "")
		tokenSource = client.TokenSource(ctx, &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		})
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// googleAPI adapts *sheets.Service to spreadsheetAPI.
type googleAPI struct {
	service *sheets.Service
}

func (g *googleAPI) Get(ctx context.Context, spreadsheetID string) (*sheets.Spreadsheet, error) {
	return g.service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
}

func (g *googleAPI) Create(ctx context.Context, spreadsheet *sheets.Spreadsheet) (*sheets.Spreadsheet, error) {
	return g.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
}

func (g *googleAPI) BatchUpdate(ctx context.Context, spreadsheetID string, req *sheets.BatchUpdateSpreadsheetRequest) (*sheets.BatchUpdateSpreadsheetResponse, error) {
	return g.service.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
}

func (g *googleAPI) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := g.service.Spreadsheets.Values.Clear(spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (g *googleAPI) Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error {
	_, err := g.service.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// Ensure Writer implements the journal publisher interface.
var _ service.JournalPublisher = (*Writer)(nil)
