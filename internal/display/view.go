package display

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"github.com/mark3labs/apiscope/internal/endpoint"
	"github.com/mark3labs/apiscope/internal/schema"
)

// ViewLevel is one table in a drill-down.
type ViewLevel struct {
	Rows    []any
	Columns []Column
	Label   string
}

// Headers returns the column paths in display order.
func (v *ViewLevel) Headers() []string {
	out := make([]string, len(v.Columns))
	for i, c := range v.Columns {
		out[i] = c.Path
	}
	return out
}

// ViewStack tracks drill-down navigation. The root level is never popped.
type ViewStack struct {
	levels []*ViewLevel
}

// ErrNoSchema is returned when an endpoint has no 200 response schema.
var ErrNoSchema = errors.New("display: endpoint has no 200 response schema")

// RootView opens a stack on rows returned by ep. An array response is
// displayed through its item schema.
func RootView(ep *endpoint.Endpoint, rows []any) (*ViewStack, error) {
	ok := ep.Success()
	if ok == nil || ok.Schema == nil {
		return nil, ErrNoSchema
	}
	s := ok.Schema
	if s.Type == schema.TypeArray {
		s = s.ItemSchema()
	}
	root := &ViewLevel{
		Rows:    rows,
		Columns: ExpandColumns(BuildFieldTree(s), "", true),
		Label:   rootLabel(ep.OperationID),
	}
	return &ViewStack{levels: []*ViewLevel{root}}, nil
}

func rootLabel(operationID string) string {
	prefix, _, _ := strings.Cut(operationID, "_")
	return prefix + "s"
}

// Current returns the level on top of the stack.
func (s *ViewStack) Current() *ViewLevel { return s.levels[len(s.levels)-1] }

// Depth returns the number of levels.
func (s *ViewStack) Depth() int { return len(s.levels) }

// DrillDown opens the array at column in row. It only succeeds for a
// non-empty array whose first element is an object.
func (s *ViewStack) DrillDown(row any, column string) bool {
	var col *Column
	for i := range s.Current().Columns {
		if s.Current().Columns[i].Path == column {
			col = &s.Current().Columns[i]
			break
		}
	}
	if col == nil || col.Field.Kind != Array {
		return false
	}
	items, ok := Lookup(row, column).([]any)
	if !ok || len(items) == 0 {
		return false
	}
	if _, ok := items[0].(map[string]any); !ok {
		return false
	}
	s.levels = append(s.levels, &ViewLevel{
		Rows:    items,
		Columns: ExpandColumns(col.Field.Children, "", false),
		Label:   col.Field.Name,
	})
	return true
}

// Back pops the current level. It reports false at the root.
func (s *ViewStack) Back() bool {
	if len(s.levels) < 2 {
		return false
	}
	s.levels = s.levels[:len(s.levels)-1]
	return true
}

// Breadcrumb names the current level and its parent, e.g. "blocks / transactions".
func (s *ViewStack) Breadcrumb() string {
	cur := s.Current().Label
	if len(s.levels) < 2 {
		return cur
	}
	return s.levels[len(s.levels)-2].Label + " / " + cur
}

// Lookup follows a dotted path through nested objects.
func Lookup(row any, path string) any {
	cur := row
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

// Cell renders one value: arrays show their length, objects show JSON.
func Cell(c Column, row any) string {
	v := Lookup(row, c.Path)
	if c.Field.Kind == Array {
		items, _ := v.([]any)
		return fmt.Sprint(len(items))
	}
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}

// WriteTable renders the current level as aligned text.
func WriteTable(w io.Writer, s *ViewStack) error {
	level := s.Current()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, s.Breadcrumb())
	fmt.Fprintln(tw, strings.Join(level.Headers(), "\t"))
	for _, row := range level.Rows {
		cells := make([]string, len(level.Columns))
		for i, c := range level.Columns {
			cells[i] = Cell(c, row)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
