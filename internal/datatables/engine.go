package datatables

import (
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"
)

// Supplier returns the base (unfiltered) collection as a query with its
// model or table already set.
type Supplier func() (*gorm.DB, error)

// identifierPattern is the shape of a column name the engine is willing to
// interpolate into a clause. Anything else is skipped for filtering and
// ordering.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// defaultOrder keeps paging stable when the client requests no sort.
const defaultOrder = "id ASC"

// Engine evaluates one DataTables request against a collection. Results are
// computed lazily on first access and cached until Refresh. An evaluation
// failure is contained: Err reports it, counts read zero and the record set
// is empty, but nothing propagates to the caller as a panic.
type Engine struct {
	req      Request
	supplier Supplier

	computed bool
	rows     []map[string]interface{}
	total    int64
	filtered int64
	err      error
}

// New creates an engine for the request. The supplier is mandatory.
func New(req Request, supplier Supplier) (*Engine, error) {
	if supplier == nil {
		return nil, ErrNilSupplier
	}

	return &Engine{req: req, supplier: supplier}, nil
}

// Records returns the requested page, computing it on first call.
// On evaluation failure it returns an empty set; check Err.
func (e *Engine) Records() []map[string]interface{} {
	e.compute()
	return e.rows
}

// RecordsTotal is the size of the base collection before filtering.
// Only valid after the first Records call.
func (e *Engine) RecordsTotal() int64 {
	e.compute()
	return e.total
}

// RecordsFiltered is the size of the collection after filtering, before
// paging. Only valid after the first Records call.
func (e *Engine) RecordsFiltered() int64 {
	e.compute()
	return e.filtered
}

// Err returns the contained evaluation failure, if any.
func (e *Engine) Err() error {
	e.compute()
	return e.err
}

// Refresh drops the cached result so the next access recomputes.
func (e *Engine) Refresh() {
	e.computed = false
	e.rows = nil
	e.total = 0
	e.filtered = 0
	e.err = nil
}

// Response assembles the wire response for the grid.
func (e *Engine) Response() Response {
	resp := Response{
		Draw:            e.req.Draw,
		RecordsTotal:    e.RecordsTotal(),
		RecordsFiltered: e.RecordsFiltered(),
		Data:            e.Records(),
	}

	if resp.Data == nil {
		resp.Data = []map[string]interface{}{}
	}

	if err := e.Err(); err != nil {
		resp.Error = err.Error()
	}

	return resp
}

func (e *Engine) compute() {
	if e.computed {
		return
	}

	e.computed = true

	defer func() {
		if r := recover(); r != nil {
			e.fail(fmt.Errorf("query evaluation failed: %v", r))
		}
	}()

	if err := e.evaluate(); err != nil {
		e.fail(err)
	}
}

// fail zeroes the result so a contained error still yields a well-defined
// response.
func (e *Engine) fail(err error) {
	e.err = err
	e.rows = nil
	e.total = 0
	e.filtered = 0
}

func (e *Engine) evaluate() error {
	base, err := e.supplier()
	if err != nil {
		return err
	}

	if base == nil {
		return fmt.Errorf("%w: supplier returned nil", ErrNilSupplier)
	}

	if err := base.Session(&gorm.Session{}).Count(&e.total).Error; err != nil {
		return fmt.Errorf("failed to count base collection: %w", err)
	}

	query, hasRegex := e.pushdownFilters(base.Session(&gorm.Session{}))

	if hasRegex {
		return e.evaluateInMemory(query)
	}

	if err := query.Session(&gorm.Session{}).Count(&e.filtered).Error; err != nil {
		return fmt.Errorf("failed to count filtered collection: %w", err)
	}

	page := e.applyOrder(query).Offset(e.req.Start)
	if e.req.Length > 0 {
		page = page.Limit(e.req.Length)
	}

	if err := page.Find(&e.rows).Error; err != nil {
		return fmt.Errorf("failed to load page: %w", err)
	}

	return nil
}

// pushdownFilters applies every plain-string filter to the query and
// reports whether any term is a pattern that forces the in-memory path.
// Blank terms and columns without a resolvable name are no filter at all.
func (e *Engine) pushdownFilters(query *gorm.DB) (*gorm.DB, bool) {
	hasRegex := false

	for _, col := range e.req.Columns {
		field := col.Field()
		if field == "" || col.Search.Value == "" || !identifierPattern.MatchString(field) {
			continue
		}

		if col.Search.Regex {
			hasRegex = true
			continue
		}

		query = query.Where(
			fmt.Sprintf("LOWER(%s) LIKE ?", field),
			"%"+strings.ToLower(col.Search.Value)+"%",
		)
	}

	if e.req.Search.Value != "" {
		if e.req.Search.Regex {
			hasRegex = true
		} else if clause, args := e.globalClause(); clause != "" {
			query = query.Where(clause, args...)
		}
	}

	return query, hasRegex
}

// globalClause builds the ORed substring match across all searchable
// columns.
func (e *Engine) globalClause() (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)

	for _, col := range e.req.Columns {
		field := col.Field()
		if !col.Searchable || field == "" || !identifierPattern.MatchString(field) {
			continue
		}

		clauses = append(clauses, fmt.Sprintf("LOWER(%s) LIKE ?", field))
		args = append(args, "%"+strings.ToLower(e.req.Search.Value)+"%")
	}

	return strings.Join(clauses, " OR "), args
}

func (e *Engine) applyOrder(query *gorm.DB) *gorm.DB {
	ordered := false

	for _, order := range e.req.Orders {
		if order.Column < 0 || order.Column >= len(e.req.Columns) {
			continue
		}

		col := e.req.Columns[order.Column]

		field := col.Field()
		if !col.Orderable || field == "" || !identifierPattern.MatchString(field) {
			continue
		}

		dir := "ASC"
		if strings.EqualFold(order.Dir, "desc") {
			dir = "DESC"
		}

		query = query.Order(fmt.Sprintf("%s %s", field, dir))
		ordered = true
	}

	if !ordered {
		query = query.Order(defaultOrder)
	}

	return query
}

// evaluateInMemory materializes the sorted, plain-filtered result set and
// runs the pattern filters over it, reading each row's columns fresh per
// stage. Paging happens last, as a slice.
func (e *Engine) evaluateInMemory(query *gorm.DB) error {
	var rows []map[string]interface{}

	if err := e.applyOrder(query).Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to materialize collection: %w", err)
	}

	for _, col := range e.req.Columns {
		field := col.Field()
		if field == "" || col.Search.Value == "" || !col.Search.Regex {
			continue
		}

		pattern, err := compilePattern(col.Search.Value)
		if err != nil {
			return fmt.Errorf("invalid column pattern %q: %w", col.Search.Value, err)
		}

		rows = filterRows(rows, func(row map[string]interface{}) bool {
			return pattern.MatchString(cellString(row[field]))
		})
	}

	if e.req.Search.Value != "" && e.req.Search.Regex {
		pattern, err := compilePattern(e.req.Search.Value)
		if err != nil {
			return fmt.Errorf("invalid search pattern %q: %w", e.req.Search.Value, err)
		}

		rows = filterRows(rows, func(row map[string]interface{}) bool {
			for _, col := range e.req.Columns {
				field := col.Field()
				if !col.Searchable || field == "" {
					continue
				}

				if pattern.MatchString(cellString(row[field])) {
					return true
				}
			}

			return false
		})
	}

	e.filtered = int64(len(rows))
	e.rows = slicePage(rows, e.req.Start, e.req.Length)

	return nil
}

// compilePattern compiles a client pattern case-insensitively, matching the
// semantics of the pushdown substring filters.
func compilePattern(value string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + value)
}

// filterRows returns a fresh slice; the input is never mutated, so later
// stages see every column value unchanged.
func filterRows(rows []map[string]interface{}, keep func(map[string]interface{}) bool) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))

	for _, row := range rows {
		if keep(row) {
			out = append(out, row)
		}
	}

	return out
}

func slicePage(rows []map[string]interface{}, start, length int) []map[string]interface{} {
	if start < 0 {
		start = 0
	}

	if start >= len(rows) {
		return nil
	}

	rows = rows[start:]

	// zero or negative length means no limit
	if length > 0 && length < len(rows) {
		rows = rows[:length]
	}

	return rows
}

func cellString(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []byte:
		return string(value)
	default:
		return fmt.Sprintf("%v", value)
	}
}
