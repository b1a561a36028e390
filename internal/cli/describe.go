package cli

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/apiscope/internal/display"
	"github.com/mark3labs/apiscope/internal/endpoint"
)

var describeRunner = runDescribe

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "describe <operationId>",
		Short:   "Show the params, filter fields, responses and example calls of an endpoint",
		Example: `  apiscope describe blocks_query --input openapi.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolveSettings(cmd)
			if err != nil {
				return err
			}
			return describeRunner(cmd.Context(), cmd.OutOrStdout(), s, strings.TrimSpace(args[0]))
		},
	}
}

type paramView struct {
	In       string `yaml:"in"`
	Name     string `yaml:"name"`
	Required bool   `yaml:"required"`
	Type     string `yaml:"type,omitempty"`
	Examples []any  `yaml:"examples,omitempty"`
}

type filterFieldView struct {
	Path     string `yaml:"path"`
	Type     string `yaml:"type"`
	Examples []any  `yaml:"examples,omitempty"`
}

type responseView struct {
	MediaType string   `yaml:"mediaType,omitempty"`
	Streaming bool     `yaml:"streaming,omitempty"`
	Columns   []string `yaml:"columns,omitempty"`
}

type exampleView struct {
	Name    string                  `yaml:"name"`
	Request endpoint.RequestOptions `yaml:"request"`
}

type endpointView struct {
	OperationID  string                   `yaml:"operationId"`
	MethodName   string                   `yaml:"methodName"`
	Title        string                   `yaml:"title,omitempty"`
	Method       string                   `yaml:"method"`
	Path         string                   `yaml:"path"`
	Streaming    bool                     `yaml:"streaming"`
	Tags         []string                 `yaml:"tags,omitempty"`
	Params       []paramView              `yaml:"params,omitempty"`
	FilterFields []filterFieldView        `yaml:"filterFields,omitempty"`
	Responses    map[string]*responseView `yaml:"responses,omitempty"`
	Examples     []exampleView            `yaml:"examples,omitempty"`
}

func runDescribe(ctx context.Context, w io.Writer, s *Settings, operationID string) error {
	l, err := loadCatalog(ctx, s)
	if err != nil {
		return err
	}
	ep, err := l.lookup(operationID)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(describeEndpoint(ep)); err != nil {
		return err
	}
	return enc.Close()
}

func describeEndpoint(ep *endpoint.Endpoint) endpointView {
	v := endpointView{
		OperationID: ep.OperationID,
		MethodName:  ep.MethodName,
		Title:       ep.Title,
		Method:      string(ep.Method),
		Path:        ep.Path,
		Streaming:   ep.Streaming,
		Tags:        ep.Tags,
		Responses:   make(map[string]*responseView, len(ep.Responses)),
	}
	for _, p := range ep.Params {
		pv := paramView{In: string(p.In), Name: p.Name, Required: p.Required}
		if p.Schema != nil {
			pv.Type = p.Schema.Type
			pv.Examples = p.Schema.Examples
		}
		v.Params = append(v.Params, pv)
	}
	for _, f := range endpoint.FilterFields(ep) {
		v.FilterFields = append(v.FilterFields, filterFieldView{Path: f.Path, Type: f.Type, Examples: f.Examples})
	}
	for _, code := range ep.StatusCodes() {
		rv := &responseView{}
		if body := ep.Responses[code]; body != nil {
			rv.MediaType = body.MediaType
			rv.Streaming = body.Streaming
			if code == "200" {
				if view, err := display.RootView(ep, nil); err == nil {
					rv.Columns = view.Current().Headers()
				}
			}
		}
		v.Responses[code] = rv
	}
	for _, ex := range endpoint.ExampleRequests(ep) {
		v.Examples = append(v.Examples, exampleView{Name: ex.Name, Request: ex.Options})
	}
	return v
}
