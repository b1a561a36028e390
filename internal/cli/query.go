package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/mark3labs/apiscope/internal/display"
	"github.com/mark3labs/apiscope/internal/endpoint"
	"github.com/mark3labs/apiscope/internal/fetch"
	"github.com/mark3labs/apiscope/internal/filter"
	"github.com/mark3labs/apiscope/internal/stream"
)

// QueryConfig captures the options for the query command.
type QueryConfig struct {
	*Settings
	OperationID string
	PathValues  []string
	QueryValues []string
	Filters     []string
	Body        string
	Example     string
	Table       bool
	Drill       []string
}

var queryRunner = runQuery

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <operationId>",
		Short: "Call an endpoint and print its rows",
		Long: "Call an endpoint and print each returned row as one JSON line. " +
			"Streaming endpoints print rows as they arrive; --table renders the rows with their display columns.",
		Example: strings.TrimSpace(`  apiscope query item_get --input openapi.yaml --path id=42
  apiscope query blocks_query --input openapi.yaml --filter height:Gt:100 --filter miner:In:a,b
  apiscope query blocks_query --input openapi.yaml --example all --table --drill 0:transactions`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolveSettings(cmd)
			if err != nil {
				return err
			}
			cfg := &QueryConfig{Settings: s, OperationID: strings.TrimSpace(args[0])}
			flags := cmd.Flags()
			if cfg.PathValues, err = flags.GetStringArray("path"); err != nil {
				return err
			}
			if cfg.QueryValues, err = flags.GetStringArray("query"); err != nil {
				return err
			}
			if cfg.Filters, err = flags.GetStringArray("filter"); err != nil {
				return err
			}
			if cfg.Body, err = flags.GetString("body"); err != nil {
				return err
			}
			if cfg.Example, err = flags.GetString("example"); err != nil {
				return err
			}
			if cfg.Table, err = flags.GetBool("table"); err != nil {
				return err
			}
			if cfg.Drill, err = flags.GetStringArray("drill"); err != nil {
				return err
			}
			return queryRunner(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("base-url", "", "API base URL (defaults to the document's first server)")
	flags.StringArray("path", nil, "Path parameter as name=value (repeatable)")
	flags.StringArray("query", nil, "Query parameter as name=value (repeatable)")
	flags.StringArray("filter", nil, "Filter expression as path:Op:value (repeatable)")
	flags.String("body", "", "Raw JSON request body")
	flags.String("example", "", "Start from the named example request (see describe)")
	flags.Bool("table", false, "Render rows as a table instead of JSON lines")
	flags.StringArray("drill", nil, "With --table, open the array column of a row as row:column (repeatable)")
	return cmd
}

func runQuery(ctx context.Context, w io.Writer, cfg *QueryConfig) error {
	l, err := loadCatalog(ctx, cfg.Settings)
	if err != nil {
		return err
	}
	ep, err := l.lookup(cfg.OperationID)
	if err != nil {
		return err
	}
	opts, err := requestFromFlags(ep, cfg)
	if err != nil {
		return err
	}
	tr, err := l.transport(cfg.Settings)
	if err != nil {
		return err
	}

	log := cfg.Logger.With().Str("operationId", ep.OperationID).Logger()
	var rows []any
	var encErr error
	enc := json.NewEncoder(w)
	h := stream.Handler{
		OnRecord: func(record any) {
			if cfg.Table {
				rows = append(rows, record)
				return
			}
			if encErr == nil {
				encErr = enc.Encode(record)
			}
		},
		OnError: func(err error) {
			var de *stream.DecodeError
			if errors.As(err, &de) {
				log.Warn().Err(err).Int("line", de.Line).Msg("skipping undecodable line")
			}
		},
		OnComplete: func() {
			log.Debug().Msg("response complete")
		},
	}
	if err := fetch.Rows(ctx, tr, ep, opts, h); err != nil {
		return err
	}
	if encErr != nil {
		return fmt.Errorf("write rows: %w", encErr)
	}
	if !cfg.Table {
		return nil
	}
	return writeRowsTable(w, ep, rows, cfg.Drill)
}

// requestFromFlags merges the chosen example with --path, --query, --filter
// and --body values.
func requestFromFlags(ep *endpoint.Endpoint, cfg *QueryConfig) (endpoint.RequestOptions, error) {
	var values []endpoint.ParamValue
	var body any
	if cfg.Example != "" {
		ex, ok := findExample(ep, cfg.Example)
		if !ok {
			return endpoint.RequestOptions{}, newUsageError(fmt.Sprintf("%s: unknown example %q", ep.OperationID, cfg.Example))
		}
		for name, v := range ex.Options.Path {
			values = append(values, endpoint.ParamValue{In: endpoint.Path, Name: name, Value: v})
		}
		for name, v := range ex.Options.Query {
			values = append(values, endpoint.ParamValue{In: endpoint.Query, Name: name, Value: v})
		}
		body = ex.Options.Body
	}

	for _, in := range []struct {
		kind endpoint.ParamKind
		raw  []string
	}{{endpoint.Path, cfg.PathValues}, {endpoint.Query, cfg.QueryValues}} {
		for _, kv := range in.raw {
			v, err := paramValue(ep, in.kind, kv)
			if err != nil {
				return endpoint.RequestOptions{}, err
			}
			values = append(values, v)
		}
	}

	bodyParam, hasBody := ep.BodyParam()
	if len(cfg.Filters) > 0 && cfg.Body != "" {
		return endpoint.RequestOptions{}, newUsageError("--filter and --body are mutually exclusive")
	}
	if len(cfg.Filters) > 0 {
		if !hasBody || bodyParam.In != endpoint.Filter {
			return endpoint.RequestOptions{}, newUsageError(fmt.Sprintf("%s does not take a filter body", ep.OperationID))
		}
		fields := endpoint.FilterFields(ep)
		exprs := make([]filter.Expr, 0, len(cfg.Filters))
		for _, raw := range cfg.Filters {
			e, err := filter.ParseExpr(raw, fields)
			if err != nil {
				return endpoint.RequestOptions{}, newUsageError(err.Error())
			}
			exprs = append(exprs, e)
		}
		body = filter.Compile(exprs)
	}
	if cfg.Body != "" {
		if !hasBody {
			return endpoint.RequestOptions{}, newUsageError(fmt.Sprintf("%s does not take a request body", ep.OperationID))
		}
		var v any
		if err := json.Unmarshal([]byte(cfg.Body), &v); err != nil {
			return endpoint.RequestOptions{}, newUsageError(fmt.Sprintf("--body: %v", err))
		}
		body = v
	}

	for _, p := range ep.Params {
		if p.In != endpoint.Path {
			continue
		}
		if !hasValue(values, p.Name) {
			return endpoint.RequestOptions{}, newUsageError(fmt.Sprintf("%s: missing path parameter %q (use --path %s=...)", ep.OperationID, p.Name, p.Name))
		}
	}
	return endpoint.BuildRequest(ep.Streaming, values, body), nil
}

func findExample(ep *endpoint.Endpoint, name string) (endpoint.ExampleRequest, bool) {
	for _, ex := range endpoint.ExampleRequests(ep) {
		if ex.Name == name {
			return ex, true
		}
	}
	return endpoint.ExampleRequest{}, false
}

func paramValue(ep *endpoint.Endpoint, kind endpoint.ParamKind, kv string) (endpoint.ParamValue, error) {
	name, raw, ok := strings.Cut(kv, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return endpoint.ParamValue{}, newUsageError(fmt.Sprintf("--%s %q: want name=value", kind, kv))
	}
	for _, p := range ep.Params {
		if p.In != kind || p.Name != name {
			continue
		}
		field := filter.Field{Path: name}
		if p.Schema != nil {
			field.Type = p.Schema.Type
		}
		v, err := filter.Coerce(field, filter.Eq, raw)
		if err != nil {
			return endpoint.ParamValue{}, newUsageError(err.Error())
		}
		return endpoint.ParamValue{In: kind, Name: name, Value: v}, nil
	}
	return endpoint.ParamValue{}, newUsageError(fmt.Sprintf("%s has no %s parameter %q", ep.OperationID, kind, name))
}

func hasValue(values []endpoint.ParamValue, name string) bool {
	for _, v := range values {
		if v.In == endpoint.Path && v.Name == name && v.Value != nil {
			return true
		}
	}
	return false
}

func writeRowsTable(w io.Writer, ep *endpoint.Endpoint, rows []any, drills []string) error {
	view, err := display.RootView(ep, rows)
	if err != nil {
		return newUsageError(fmt.Sprintf("%s: %v", ep.OperationID, err))
	}
	for _, d := range drills {
		idx, column, ok := strings.Cut(d, ":")
		n, err := strconv.Atoi(strings.TrimSpace(idx))
		if !ok || err != nil {
			return newUsageError(fmt.Sprintf("--drill %q: want row:column", d))
		}
		cur := view.Current()
		if n < 0 || n >= len(cur.Rows) {
			return newUsageError(fmt.Sprintf("--drill %q: row %d out of range (%d rows)", d, n, len(cur.Rows)))
		}
		if !view.DrillDown(cur.Rows[n], strings.TrimSpace(column)) {
			return newUsageError(fmt.Sprintf("--drill %q: %s is not a non-empty list of objects", d, column))
		}
	}
	return display.WriteTable(w, view)
}
