package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a user selection: compare the value at Path using Op.
type Expr struct {
	Path  string
	Op    Operator
	Value any
}

// NewExpr validates the path and operator of a selection.
func NewExpr(path string, op Operator, value any) (Expr, error) {
	if strings.TrimSpace(path) == "" {
		return Expr{}, ErrEmptyPath
	}
	if !op.Valid() {
		return Expr{}, fmt.Errorf("filter: unknown operator %q", op)
	}
	return Expr{Path: path, Op: op, Value: value}, nil
}

// Compile nests the expressions into a request body. Array markers are
// dropped from every segment, so bodies are always nested by property.
// Expressions sharing a prefix merge into one object; the same path and
// operator given twice keeps the last value.
func Compile(exprs []Expr) map[string]any {
	body := map[string]any{}
	for _, e := range exprs {
		segments := strings.Split(e.Path, ".")
		cur := body
		for _, seg := range segments {
			seg = strings.TrimSuffix(seg, ArraySuffix)
			next, ok := cur[seg].(map[string]any)
			if !ok {
				next = map[string]any{}
				cur[seg] = next
			}
			cur = next
		}
		cur[string(e.Op)] = e.Value
	}
	return body
}

// ParseExpr reads "path:Op:value" as typed on a command line. The value is
// coerced against fields when the path is known there.
func ParseExpr(s string, fields []Field) (Expr, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return Expr{}, fmt.Errorf("filter: %q: want path:Op:value", s)
	}
	op, err := ParseOperator(parts[1])
	if err != nil {
		return Expr{}, err
	}
	var value any = parts[2]
	for _, f := range fields {
		if f.Path == parts[0] {
			if value, err = Coerce(f, op, parts[2]); err != nil {
				return Expr{}, err
			}
			break
		}
	}
	return NewExpr(parts[0], op, value)
}

// Coerce converts raw text into the JSON type of field. In takes a
// comma-separated list and yields a slice.
func Coerce(field Field, op Operator, raw string) (any, error) {
	if op == In {
		items := strings.Split(raw, ",")
		out := make([]any, 0, len(items))
		for _, item := range items {
			v, err := coerceScalar(field, strings.TrimSpace(item))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	return coerceScalar(field, raw)
}

func coerceScalar(field Field, raw string) (any, error) {
	switch field.Type {
	case "integer", "number":
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("filter: %s: %q is not a number", field.Path, raw)
		}
		return n, nil
	case "boolean":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("filter: %s: %q is not a boolean", field.Path, raw)
		}
		return b, nil
	default:
		return raw, nil
	}
}
