package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kontiki/avisos/server/store"
)

// Workbooks that carry a sheet with this name get it imported; otherwise the
// first sheet is used.
const preferredSheet = "clientes"

var (
	ErrUnsupportedFormat = errors.New("unsupported file format, use .xlsx or .csv")
	ErrBadFile           = errors.New("could not read file")
)

// MissingColumnsError reports required canonical columns absent from the
// header row. It rejects the whole file before any row is processed.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

// RowError is one failed row. Row is the 1-based index in the original file
// layout, counting the header row.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type Summary struct {
	Processed int        `json:"processed"`
	Inserted  int        `json:"inserted"`
	Errors    []RowError `json:"errors"`
}

// Importer normalizes and upserts spreadsheet rows. A bad row is collected
// and skipped, never fatal to the batch.
type Importer struct {
	store store.Store
	plan  CountryPlan
	logg  *zap.SugaredLogger
}

func New(st store.Store, plan CountryPlan, logg *zap.SugaredLogger) *Importer {
	return &Importer{store: st, plan: plan, logg: logg}
}

func (im *Importer) Import(ctx context.Context, filename string, content []byte) (*Summary, error) {
	rows, err := parseFile(filename, content)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.Wrap(ErrBadFile, "file has no header row")
	}

	headers := NormalizeHeaders(rows[0])
	if missing := missingColumns(headers); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	summary := &Summary{Errors: []RowError{}}
	for i, cells := range rows[1:] {
		record := namedCells(headers, cells)
		if isBlankRow(record) {
			continue
		}

		summary.Processed++
		if err := im.importRow(ctx, record); err != nil {
			// 1-based display index, offset by the header row.
			summary.Errors = append(summary.Errors, RowError{Row: i + 2, Message: err.Error()})
			continue
		}
		summary.Inserted++
	}

	im.logg.Infof("import of %s: %d row(s), %d ok, %d error(s)",
		filename, summary.Processed, summary.Inserted, len(summary.Errors))
	return summary, nil
}

// importRow normalizes one record and upserts the client (keyed by telefono)
// and its extinguisher (keyed by nro_serie).
func (im *Importer) importRow(ctx context.Context, record map[string]string) error {
	nombre := strings.TrimSpace(record[ColNombre])
	if nombre == "" {
		return errors.New("nombre is empty")
	}

	telefono, ok := im.plan.NormalizePhone(record[ColTelefono])
	if !ok {
		return fmt.Errorf("invalid phone %q", record[ColTelefono])
	}

	nroSerie := strings.TrimSpace(record[ColNroSerie])
	if nroSerie == "" {
		return errors.New("nro_serie is empty")
	}

	vencimiento, ok := NormalizeDate(record[ColVencimiento])
	if !ok || vencimiento == "" {
		return fmt.Errorf("invalid or missing vencimiento %q", record[ColVencimiento])
	}

	var ultimaRecarga *string
	if recarga, ok := NormalizeDate(record[ColUltimaRecarga]); !ok {
		im.logg.Warnf("dropping unparseable ultima_recarga %q for serial %s", record[ColUltimaRecarga], nroSerie)
	} else if recarga != "" {
		ultimaRecarga = &recarga
	}

	client, err := im.store.UpsertClient(ctx, store.Client{
		Nombre:   nombre,
		Telefono: telefono,
		Empresa:  strings.TrimSpace(record[ColEmpresa]),
		OptIn:    parseOptIn(record[ColOptIn]),
	})
	if err != nil {
		return errors.Wrap(err, "client upsert")
	}

	_, err = im.store.UpsertExtinguisher(ctx, store.Extinguisher{
		ClienteID:     client.ID,
		NroSerie:      nroSerie,
		Tipo:          strings.TrimSpace(record[ColTipo]),
		Vencimiento:   vencimiento,
		UltimaRecarga: ultimaRecarga,
	})
	return errors.Wrap(err, "extinguisher upsert")
}

// ---------------------------------------------------------------------------------//
// File parsing helpers
// --------------------------------------------------------------------------------//

func parseFile(filename string, content []byte) ([][]string, error) {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".xlsx") || strings.HasSuffix(name, ".xls"):
		return parseWorkbook(content)
	case strings.HasSuffix(name, ".csv"):
		return parseDelimited(content)
	}
	return nil, ErrUnsupportedFormat
}

func parseWorkbook(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, errors.Wrap(ErrBadFile, err.Error())
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.Wrap(ErrBadFile, "workbook has no sheets")
	}

	sheet := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, preferredSheet) {
			sheet = name
			break
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrap(ErrBadFile, err.Error())
	}
	return rows, nil
}

func parseDelimited(content []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(ErrBadFile, err.Error())
	}
	return rows, nil
}

func missingColumns(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

// namedCells zips the canonical headers with a row's cells. Short rows leave
// trailing columns as empty strings.
func namedCells(headers []string, cells []string) map[string]string {
	record := make(map[string]string, len(headers))
	for i, h := range headers {
		if i < len(cells) {
			record[h] = cells[i]
		}
	}
	return record
}

func isBlankRow(record map[string]string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseOptIn(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "no", "false", "0", "n":
		return false
	}
	return true
}
