package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/agentstation/renewals/pkg/constants"
	"github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/logging"
	"github.com/agentstation/renewals/pkg/plans"
)

// Source produces catalogs. Loader and CachedLoader both implement it.
type Source interface {
	Load(ctx context.Context, path string) (*Catalog, error)
}

// Loader reads catalog exports from disk.
type Loader struct {
	sheet      string
	renames    map[string]Column
	normalizer plans.Normalizer
	logger     *zerolog.Logger
}

var _ Source = (*Loader)(nil)

// Option configures a Loader.
type Option func(*Loader)

// WithSheet selects the workbook sheet read from xlsx exports.
func WithSheet(sheet string) Option {
	return func(l *Loader) {
		if sheet != "" {
			l.sheet = sheet
		}
	}
}

// WithRenames adds header aliases on top of DefaultRenames.
func WithRenames(renames map[string]Column) Option {
	return func(l *Loader) {
		for k, v := range renames {
			l.renames[headerKey(k)] = v
		}
	}
}

// WithNormalizer sets the identifier normalizer.
func WithNormalizer(n plans.Normalizer) Option {
	return func(l *Loader) { l.normalizer = n }
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a Loader reading the default sheet with the default
// rename table.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		sheet:      constants.DefaultSheet,
		renames:    make(map[string]Column, len(DefaultRenames)),
		normalizer: plans.DefaultNormalizer,
		logger:     logging.Default(),
	}
	for k, v := range DefaultRenames {
		l.renames[k] = v
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Sheet returns the configured sheet name.
func (l *Loader) Sheet() string { return l.sheet }

// Load reads the export at path. Any failure, including a single bad row,
// yields a SourceUnavailableError and no partial data.
func (l *Loader) Load(ctx context.Context, path string) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	var (
		records [][]string
		format  string
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		format = "xlsx"
		records, err = l.readXLSX(path)
	case ".csv":
		format = "csv"
		records, err = readCSV(path)
	default:
		return nil, errors.NewSourceUnavailableError(path,
			fmt.Errorf("unsupported catalog format %q", ext))
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &errors.SourceUnavailableError{Path: path, Missing: columnNames(RequiredColumns)}
	}

	idx, missing := mapHeader(records[0], l.renames)
	if len(missing) > 0 {
		return nil, &errors.SourceUnavailableError{Path: path, Sheet: l.sheetFor(format), Missing: missing}
	}

	var (
		profiles []plans.Profile
		items    []plans.LineItem
	)
	for n, cells := range records[1:] {
		line := n + 2 // 1-based, after the header
		if blank(cells) {
			continue
		}
		row := toRow(cells, idx)
		p, it, err := l.parseRow(row)
		if err != nil {
			var pe *errors.ParseError
			if errors.As(err, &pe) {
				pe.Format, pe.File, pe.Line = format, path, line
			}
			return nil, errors.NewSourceUnavailableError(path, err)
		}
		if p.PlanID == "" {
			l.logger.Debug().Str("path", path).Int("line", line).Msg("Skipping row without plan id")
			continue
		}
		profiles = append(profiles, p)
		items = append(items, it)
	}

	c := New(path, profiles, items)
	l.logger.Debug().
		Str("path", path).
		Int("items", len(c.Items)).
		Int("plans", len(c.Profiles)).
		Dur("duration", time.Since(start)).
		Msg("Catalog loaded")
	return c, nil
}

func (l *Loader) sheetFor(format string) string {
	if format == "xlsx" {
		return l.sheet
	}
	return ""
}

func (l *Loader) parseRow(r Row) (plans.Profile, plans.LineItem, error) {
	id := l.normalizer.Normalize(r.PlanID)

	var expires plans.Date
	if strings.TrimSpace(r.Expires) != "" {
		d, err := plans.ParseDate(r.Expires)
		if err != nil {
			return plans.Profile{}, plans.LineItem{}, &errors.ParseError{
				Column:  string(ColExpires),
				Message: fmt.Sprintf("invalid date %q", r.Expires),
				Err:     err,
			}
		}
		expires = d
	}

	qty := decimal.Zero
	if q := strings.TrimSpace(r.Quantity); q != "" {
		d, err := decimal.NewFromString(strings.ReplaceAll(q, ",", "."))
		if err != nil {
			return plans.Profile{}, plans.LineItem{}, &errors.ParseError{
				Column:  string(ColQuantity),
				Message: fmt.Sprintf("invalid quantity %q", r.Quantity),
				Err:     err,
			}
		}
		qty = d
	}

	p := plans.Profile{
		PlanID:  id,
		Pet:     strings.TrimSpace(r.Pet),
		Owner:   strings.TrimSpace(r.Owner),
		Expires: expires,
		Level:   strings.TrimSpace(r.Level),
	}
	it := plans.LineItem{
		PlanID:   id,
		Service:  strings.TrimSpace(r.Service),
		Quantity: qty,
	}
	return p, it, nil
}

func (l *Loader) readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.NewSourceUnavailableError(path, errors.WrapIO("open", path, err))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			l.logger.Warn().Err(cerr).Str("path", path).Msg("Failed to close workbook")
		}
	}()

	if idx, err := f.GetSheetIndex(l.sheet); err != nil || idx < 0 {
		if err == nil {
			err = fmt.Errorf("sheet %q does not exist", l.sheet)
		}
		return nil, &errors.SourceUnavailableError{Path: path, Sheet: l.sheet, Err: err}
	}

	rows, err := f.GetRows(l.sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &errors.SourceUnavailableError{Path: path, Sheet: l.sheet, Err: err}
	}
	return rows, nil
}

// readCSV reads a comma-separated export. Rows may have differing widths.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewSourceUnavailableError(path, errors.WrapIO("open", path, err))
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.NewSourceUnavailableError(path, errors.WrapParse("csv", path, err))
	}
	return records, nil
}

// toRow picks the canonical cells out of a record. Short records (trailing
// empty cells are dropped by the xlsx reader) read as blank.
func toRow(cells []string, idx map[Column]int) Row {
	get := func(c Column) string {
		i := idx[c]
		if i >= len(cells) {
			return ""
		}
		return cells[i]
	}
	return Row{
		PlanID:   get(ColPlanID),
		Pet:      get(ColPet),
		Owner:    get(ColOwner),
		Service:  get(ColService),
		Quantity: get(ColQuantity),
		Level:    get(ColLevel),
		Expires:  get(ColExpires),
	}
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func columnNames(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = string(c)
	}
	return out
}
