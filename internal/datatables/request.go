package datatables

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Search is one free-text search term. Regex marks the value as a pattern
// the engine must evaluate in memory rather than push down.
type Search struct {
	Value string `json:"value"`
	Regex bool   `json:"regex"`
}

// Column describes one grid column of the request.
type Column struct {
	// Data is the row field the column renders.
	Data string `json:"data"`
	// Name is an optional explicit column name; it wins over Data when set.
	Name string `json:"name"`
	// Searchable includes the column in the global search.
	Searchable bool `json:"searchable"`
	// Orderable allows the column in the order clause.
	Orderable bool `json:"orderable"`
	// Search is the per-column search term.
	Search Search `json:"search"`
}

// Field returns the effective column name, or "" when the column has
// neither a name nor a data key and must be skipped for filtering.
func (c Column) Field() string {
	if c.Name != "" {
		return c.Name
	}

	return c.Data
}

// Order is one (column index, direction) sort pair.
type Order struct {
	Column int    `json:"column"`
	Dir    string `json:"dir"`
}

// Request is the parsed DataTables request descriptor.
type Request struct {
	// Draw is an opaque sequence token echoed back to the client.
	Draw int `json:"draw"`
	// Start is the zero-based offset of the requested page.
	Start int `json:"start"`
	// Length is the page size; zero or negative means no limit.
	Length int `json:"length"`
	// Search is the global search term across all searchable columns.
	Search  Search   `json:"search"`
	Columns []Column `json:"columns"`
	Orders  []Order  `json:"order"`

	provided bool
}

// Provided reports whether the caller sent a paging descriptor at all,
// distinguishing "not a tabular request" from "first page request".
func (r Request) Provided() bool {
	return r.provided
}

// Response is the wire format sent back to the grid. Error carries the
// contained evaluation failure message, empty on success.
type Response struct {
	Draw            int                      `json:"draw"`
	RecordsTotal    int64                    `json:"records_total"`
	RecordsFiltered int64                    `json:"records_filtered"`
	Data            []map[string]interface{} `json:"data"`
	Error           string                   `json:"error,omitempty"`
}

// ParseRequest decodes the DataTables query parameters of a Fiber request.
// Absent parameters default to the zero value; the request counts as
// provided once any of the paging parameters is present.
func ParseRequest(c *fiber.Ctx) Request {
	req := Request{
		Draw:   c.QueryInt("draw"),
		Start:  c.QueryInt("start"),
		Length: c.QueryInt("length", -1),
		Search: Search{
			Value: c.Query("search[value]"),
			Regex: c.QueryBool("search[regex]"),
		},
	}

	for _, key := range []string{"draw", "start", "length"} {
		if c.Query(key) != "" {
			req.provided = true
			break
		}
	}

	for i := 0; ; i++ {
		prefix := fmt.Sprintf("columns[%d]", i)
		if c.Query(prefix+"[data]") == "" && c.Query(prefix+"[name]") == "" &&
			c.Query(prefix+"[searchable]") == "" {
			break
		}

		req.Columns = append(req.Columns, Column{
			Data:       c.Query(prefix + "[data]"),
			Name:       c.Query(prefix + "[name]"),
			Searchable: c.QueryBool(prefix+"[searchable]", true),
			Orderable:  c.QueryBool(prefix+"[orderable]", true),
			Search: Search{
				Value: c.Query(prefix + "[search][value]"),
				Regex: c.QueryBool(prefix + "[search][regex]"),
			},
		})
	}

	for i := 0; ; i++ {
		prefix := fmt.Sprintf("order[%d]", i)

		raw := c.Query(prefix + "[column]")
		if raw == "" {
			break
		}

		column, err := strconv.Atoi(raw)
		if err != nil {
			break
		}

		req.Orders = append(req.Orders, Order{
			Column: column,
			Dir:    c.Query(prefix+"[dir]", "asc"),
		})
	}

	return req
}
