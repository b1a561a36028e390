package display

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mark3labs/apiscope/internal/endpoint"
	"github.com/mark3labs/apiscope/internal/schema"
)

func props(p map[string]*schema.Schema) map[string]*schema.Node {
	out := make(map[string]*schema.Node, len(p))
	for k, v := range p {
		out[k] = schema.Wrap(v)
	}
	return out
}

// blockSchema is an inlined block with nested transactions.
func blockSchema() *schema.Schema {
	utxo := &schema.Schema{Type: schema.TypeObject, Properties: props(map[string]*schema.Schema{
		"address": {Type: schema.TypeString},
		"amount":  {Type: schema.TypeInteger},
	})}
	tx := &schema.Schema{Type: schema.TypeObject, Properties: props(map[string]*schema.Schema{
		"hash":  {Type: schema.TypeString, Key: true},
		"fee":   {Type: schema.TypeNumber},
		"utxos": {Type: schema.TypeArray, Items: schema.Wrap(utxo)},
	})}
	return &schema.Schema{Type: schema.TypeObject, Properties: props(map[string]*schema.Schema{
		"id":     {Type: schema.TypeString, Key: true},
		"height": {Type: schema.TypeInteger},
		"meta": {OneOf: []*schema.Node{
			schema.Wrap(&schema.Schema{Type: schema.TypeNull}),
			schema.Wrap(&schema.Schema{Type: schema.TypeObject, Properties: props(map[string]*schema.Schema{
				"miner":  {Type: schema.TypeString},
				"origin": {Type: schema.TypeString, Key: true},
			})}),
		}},
		"extra":        {Type: schema.TypeObject},
		"tags":         {Type: schema.TypeArray, Items: schema.Wrap(&schema.Schema{Type: schema.TypeString})},
		"transactions": {Type: schema.TypeArray, Items: schema.Wrap(tx)},
		"unknown":      {},
	})}
}

func paths(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Path
	}
	return out
}

func TestBuildFieldTree(t *testing.T) {
	t.Parallel()
	tree := BuildFieldTree(blockSchema())

	if _, ok := tree["unknown"]; ok {
		t.Errorf("untyped property should be skipped")
	}
	if f := tree["meta"]; f == nil || f.Kind != Object || f.Children["miner"] == nil {
		t.Fatalf("nullable object not resolved: %+v", f)
	}
	txs := tree["transactions"]
	if txs.Kind != Array || txs.Children["hash"] == nil || !txs.Children["hash"].Key {
		t.Fatalf("array children should come from item object: %+v", txs)
	}
	if utxos := txs.Children["utxos"]; utxos.Kind != Array || utxos.Children["amount"] == nil {
		t.Fatalf("nested array children missing: %+v", utxos)
	}
	if tags := tree["tags"]; tags.Kind != Array || tags.Children != nil {
		t.Errorf("array of scalars has no children: %+v", tags)
	}
	if tree["extra"].Kind != Primitive {
		t.Errorf("object without properties should display as a value")
	}
}

func TestExpandColumns_Root(t *testing.T) {
	t.Parallel()
	cols := ExpandColumns(BuildFieldTree(blockSchema()), "", true)

	want := []string{"id", "extra", "height", "meta.miner", "tags", "transactions"}
	if diff := cmp.Diff(want, paths(cols)); diff != "" {
		t.Errorf("columns (-want +got):\n%s", diff)
	}
	for _, c := range cols {
		if c.Field.Kind == Object {
			t.Errorf("column %s is an object", c.Path)
		}
	}
}

func TestExpandColumns_NestedDropsKeys(t *testing.T) {
	t.Parallel()
	tree := BuildFieldTree(blockSchema())
	cols := ExpandColumns(tree["transactions"].Children, "", false)
	if diff := cmp.Diff([]string{"fee", "utxos"}, paths(cols)); diff != "" {
		t.Errorf("columns (-want +got):\n%s", diff)
	}
	cols = ExpandColumns(tree, "block", true)
	if cols[0].Path != "block.id" {
		t.Errorf("prefix not applied: %v", paths(cols))
	}
}

func rows() []any {
	return []any{
		map[string]any{
			"id":     "b1",
			"height": float64(7),
			"meta":   map[string]any{"miner": "m"},
			"transactions": []any{
				map[string]any{"hash": "t1", "fee": float64(1), "utxos": []any{map[string]any{"address": "a", "amount": float64(5)}}},
			},
			"tags": []any{"x"},
		},
		map[string]any{"id": "b2", "transactions": []any{}},
	}
}

func blockEndpoint() *endpoint.Endpoint {
	return &endpoint.Endpoint{
		OperationID: "block_list",
		Responses: map[string]*endpoint.ResponseBody{
			"200": {Schema: &schema.Schema{Type: schema.TypeArray, Items: schema.Wrap(blockSchema())}},
		},
	}
}

func TestViewStack_DrillDownAndBack(t *testing.T) {
	t.Parallel()
	stack, err := RootView(blockEndpoint(), rows())
	if err != nil {
		t.Fatalf("root view: %v", err)
	}
	if stack.Breadcrumb() != "blocks" {
		t.Fatalf("root label: %q", stack.Breadcrumb())
	}

	data := rows()
	if stack.DrillDown(data[1], "transactions") {
		t.Errorf("empty array must not open a level")
	}
	if stack.DrillDown(data[0], "tags") {
		t.Errorf("array of scalars must not open a level")
	}
	if stack.DrillDown(data[0], "height") {
		t.Errorf("scalar column must not open a level")
	}
	if !stack.DrillDown(data[0], "transactions") {
		t.Fatalf("drill into transactions failed")
	}
	if stack.Breadcrumb() != "blocks / transactions" || stack.Depth() != 2 {
		t.Fatalf("unexpected breadcrumb %q", stack.Breadcrumb())
	}
	if diff := cmp.Diff([]string{"fee", "utxos"}, stack.Current().Headers()); diff != "" {
		t.Errorf("headers (-want +got):\n%s", diff)
	}
	tx := stack.Current().Rows[0]
	if !stack.DrillDown(tx, "utxos") || stack.Breadcrumb() != "transactions / utxos" {
		t.Fatalf("second drill failed: %q", stack.Breadcrumb())
	}

	if !stack.Back() || !stack.Back() || stack.Back() {
		t.Fatalf("back should pop two levels then stop at root")
	}
	if stack.Depth() != 1 {
		t.Fatalf("depth = %d", stack.Depth())
	}
}

func TestRootView_NoSchema(t *testing.T) {
	t.Parallel()
	if _, err := RootView(&endpoint.Endpoint{OperationID: "x"}, nil); err != ErrNoSchema {
		t.Fatalf("expected ErrNoSchema, got %v", err)
	}
}

func TestWriteTable(t *testing.T) {
	t.Parallel()
	stack, err := RootView(blockEndpoint(), rows())
	if err != nil {
		t.Fatalf("root view: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteTable(&buf, stack); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %q", buf.String())
	}
	if f := strings.Fields(lines[1]); f[0] != "id" || f[len(f)-1] != "transactions" {
		t.Errorf("header: %q", lines[1])
	}
	if f := strings.Fields(lines[2]); f[0] != "b1" || f[len(f)-1] != "1" {
		t.Errorf("first row: %q", lines[2])
	}
	if Lookup(rows()[0], "meta.miner") != "m" || Lookup(rows()[0], "id.nope") != nil {
		t.Errorf("lookup mismatch")
	}
}
