package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"sitekeeper-api/internal/token"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tealeg/xlsx/v3"
	"gopkg.in/yaml.v3"
)

// ImportOptions defines the configuration for Excel import operations
type ImportOptions struct {
	SiteID      int64
	MappingPath string // default "configs/mapping/assets.yaml"
	DryRun      bool
	MaxErrors   int // default 50
}

// RowError represents an error that occurred during row processing
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// SheetSummary contains the import statistics for a single sheet
type SheetSummary struct {
	Name     string     `json:"name"`
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Skipped  int        `json:"skipped"`
	Errors   int        `json:"errors"`
	Samples  []RowError `json:"error_samples,omitempty"`
}

// ImportSummary contains the overall import statistics
type ImportSummary struct {
	Inserted int            `json:"inserted"`
	Updated  int            `json:"updated"`
	Skipped  int            `json:"skipped"`
	Errors   int            `json:"errors"`
	Sheets   []SheetSummary `json:"sheets"`
	DryRun   bool           `json:"dry_run"`
}

// MappingConfig represents the YAML mapping configuration
type MappingConfig struct {
	Version  int                    `yaml:"version"`
	Defaults map[string]string      `yaml:"defaults"`
	Sheets   map[string]SheetConfig `yaml:"sheets"`
}

// SheetConfig maps one worksheet's columns onto asset fields
type SheetConfig struct {
	NaturalKey []string                `yaml:"natural_key"`
	Aliases    map[string][]string     `yaml:"aliases"`
	Columns    map[string]ColumnConfig `yaml:"columns"`
}

// ColumnConfig binds a spreadsheet header to an asset column
type ColumnConfig struct {
	Field string `yaml:"field"`
	Type  string `yaml:"type"`
}

// assetColumns are the columns the importer may write
var assetColumns = map[string]bool{
	"name":          true,
	"asset_type":    true,
	"serial":        true,
	"vendor":        true,
	"status":        true,
	"purchase_date": true,
}

// ImportExcel processes an Excel workbook and upserts assets for one site.
// The whole import runs in a single transaction; dry runs do everything
// except commit, so the returned summary reflects what a real run would do.
func ImportExcel(ctx context.Context, db *pgxpool.Pool, r io.Reader, opts ImportOptions) (ImportSummary, error) {
	summary := ImportSummary{
		DryRun: opts.DryRun,
		Sheets: []SheetSummary{},
	}

	if opts.MappingPath == "" {
		opts.MappingPath = "configs/mapping/assets.yaml"
	}
	if opts.MaxErrors == 0 {
		opts.MaxErrors = 50
	}

	mapping, err := loadMappingConfig(opts.MappingPath)
	if err != nil {
		return summary, fmt.Errorf("failed to load mapping config: %w", err)
	}

	// xlsx needs an io.ReaderAt, so buffer the upload
	data, err := io.ReadAll(r)
	if err != nil {
		return summary, fmt.Errorf("failed to read Excel file: %w", err)
	}

	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return summary, fmt.Errorf("failed to open Excel file: %w", err)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, sheet := range xlFile.Sheets {
		sheetConfig, exists := mapping.Sheets[sheet.Name]
		if !exists {
			continue // skip sheets without mapping
		}

		sheetSummary := processSheet(ctx, tx, sheet, sheetConfig, opts, mapping.Defaults)
		summary.Sheets = append(summary.Sheets, sheetSummary)

		summary.Inserted += sheetSummary.Inserted
		summary.Updated += sheetSummary.Updated
		summary.Skipped += sheetSummary.Skipped
		summary.Errors += sheetSummary.Errors

		if summary.Errors > opts.MaxErrors {
			return summary, fmt.Errorf("too many errors (%d), stopping import", summary.Errors)
		}
	}

	if !opts.DryRun {
		if err := tx.Commit(ctx); err != nil {
			return summary, fmt.Errorf("failed to commit import: %w", err)
		}
	}

	return summary, nil
}

func loadMappingConfig(path string) (*MappingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg MappingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Sheets) == 0 {
		return nil, fmt.Errorf("mapping %s defines no sheets", path)
	}
	return &cfg, nil
}

func processSheet(ctx context.Context, tx pgx.Tx, sheet *xlsx.Sheet, config SheetConfig, opts ImportOptions, defaults map[string]string) SheetSummary {
	summary := SheetSummary{Name: sheet.Name}

	headerRow, err := sheet.Row(0)
	if err != nil {
		summary.Errors++
		summary.Samples = append(summary.Samples, RowError{
			Sheet:   sheet.Name,
			Row:     1,
			Message: "Failed to read header row: " + err.Error(),
		})
		return summary
	}

	// header name (canonical, upper-cased) -> column index
	headerIndex := map[string]int{}
	for colIdx := 0; ; colIdx++ {
		cell := headerRow.GetCell(colIdx)
		if cell == nil {
			break
		}
		name := strings.TrimSpace(cell.String())
		if name == "" {
			continue
		}
		headerIndex[canonicalHeader(name, config.Aliases)] = colIdx
	}

	for rowIdx := 1; ; rowIdx++ {
		row, err := sheet.Row(rowIdx)
		if err != nil {
			break
		}

		fields, rowErr := extractRow(row, headerIndex, config, defaults)
		if rowErr != nil {
			summary.Errors++
			if len(summary.Samples) < 10 {
				summary.Samples = append(summary.Samples, RowError{
					Sheet:   sheet.Name,
					Row:     rowIdx + 1,
					Message: rowErr.Error(),
				})
			}
			continue
		}
		if fields == nil {
			// blank row
			if rowIsLast(sheet, rowIdx) {
				break
			}
			summary.Skipped++
			continue
		}
		if fields["name"] == nil {
			summary.Errors++
			if len(summary.Samples) < 10 {
				summary.Samples = append(summary.Samples, RowError{
					Sheet:   sheet.Name,
					Row:     rowIdx + 1,
					Message: "name is required",
				})
			}
			continue
		}

		existingID, err := findExistingAsset(ctx, tx, fields, config.NaturalKey, opts.SiteID)
		if err != nil {
			summary.Errors++
			if len(summary.Samples) < 10 {
				summary.Samples = append(summary.Samples, RowError{
					Sheet:   sheet.Name,
					Row:     rowIdx + 1,
					Message: err.Error(),
				})
			}
			continue
		}

		if existingID > 0 {
			err = updateAsset(ctx, tx, existingID, fields)
		} else {
			err = insertAsset(ctx, tx, fields, opts.SiteID)
		}
		if err != nil {
			summary.Errors++
			if len(summary.Samples) < 10 {
				summary.Samples = append(summary.Samples, RowError{
					Sheet:   sheet.Name,
					Row:     rowIdx + 1,
					Message: err.Error(),
				})
			}
			continue
		}
		if existingID > 0 {
			summary.Updated++
		} else {
			summary.Inserted++
		}
	}

	return summary
}

// rowIsLast reports whether no further row exists; used to stop at the end
// of the sheet instead of counting trailing blanks as skips
func rowIsLast(sheet *xlsx.Sheet, rowIdx int) bool {
	_, err := sheet.Row(rowIdx + 1)
	return err != nil
}

func canonicalHeader(name string, aliases map[string][]string) string {
	upper := strings.ToUpper(name)
	for canonical, alts := range aliases {
		for _, alt := range alts {
			if strings.EqualFold(alt, name) {
				return strings.ToUpper(canonical)
			}
		}
		if strings.EqualFold(canonical, name) {
			return strings.ToUpper(canonical)
		}
	}
	return upper
}

// extractRow maps one spreadsheet row to asset columns. Returns nil fields
// for a fully blank row.
func extractRow(row *xlsx.Row, headerIndex map[string]int, config SheetConfig, defaults map[string]string) (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	any := false

	for header, col := range config.Columns {
		if !assetColumns[col.Field] {
			return nil, fmt.Errorf("mapping targets unknown field %q", col.Field)
		}
		idx, ok := headerIndex[strings.ToUpper(header)]
		if !ok {
			continue
		}
		cell := row.GetCell(idx)
		if cell == nil {
			continue
		}
		raw := strings.TrimSpace(cell.String())
		if raw == "" {
			continue
		}
		any = true

		parsed, err := parseValue(raw, col.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %v", header, err)
		}
		fields[col.Field] = parsed
	}

	if !any {
		return nil, nil
	}

	if fields["status"] == nil {
		if def, ok := defaults["status"]; ok {
			fields["status"] = def
		}
	}
	return fields, nil
}

func parseValue(value, valueType string) (interface{}, error) {
	switch strings.ToUpper(strings.TrimSuffix(valueType, "?")) {
	case "", "TEXT", "STRING":
		return value, nil
	case "DATE", "TIMESTAMP":
		formats := []string{
			"2006-01-02",
			"2006-01-02 15:04:05",
			"01/02/2006",
			"02.01.2006",
		}
		for _, format := range formats {
			if t, err := time.Parse(format, value); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("invalid date format: %s", value)
	default:
		return nil, fmt.Errorf("unsupported column type %q", valueType)
	}
}

func findExistingAsset(ctx context.Context, tx pgx.Tx, fields map[string]interface{}, naturalKey []string, siteID int64) (int64, error) {
	for _, key := range naturalKey {
		value, exists := fields[key]
		if !exists || value == nil {
			continue
		}
		if !assetColumns[key] {
			return 0, fmt.Errorf("natural key references unknown field %q", key)
		}

		query := fmt.Sprintf(
			"SELECT id FROM assets WHERE site_id = $1 AND %s = $2 AND deleted_at IS NULL", key)
		var id int64
		err := tx.QueryRow(ctx, query, siteID, value).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != pgx.ErrNoRows {
			return 0, err
		}
	}
	return 0, nil
}

func insertAsset(ctx context.Context, tx pgx.Tx, fields map[string]interface{}, siteID int64) error {
	// Every imported asset gets a fresh token, same collision discipline as
	// the create endpoint
	tok, err := token.Generate(ctx, func(ctx context.Context, candidate string) (bool, error) {
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM assets WHERE token = $1)`, candidate).Scan(&exists)
		return exists, err
	})
	if err != nil {
		return err
	}

	cols := []string{"site_id", "token"}
	values := []interface{}{siteID, tok}
	placeholders := []string{"$1", "$2"}
	argIndex := 3

	for field, value := range fields {
		cols = append(cols, field)
		values = append(values, value)
		placeholders = append(placeholders, fmt.Sprintf("$%d", argIndex))
		argIndex++
	}

	query := fmt.Sprintf(`
		INSERT INTO assets (%s)
		VALUES (%s)
	`, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	_, err = tx.Exec(ctx, query, values...)
	return err
}

func updateAsset(ctx context.Context, tx pgx.Tx, assetID int64, fields map[string]interface{}) error {
	setParts := []string{}
	values := []interface{}{}
	argIndex := 1

	for field, value := range fields {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", field, argIndex))
		values = append(values, value)
		argIndex++
	}
	if len(setParts) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE assets SET %s, updated_at = now()
		WHERE id = $%d
	`, strings.Join(setParts, ", "), argIndex)
	values = append(values, assetID)

	_, err := tx.Exec(ctx, query, values...)
	return err
}
