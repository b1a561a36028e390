package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/apiscope/internal/endpoint"
	"github.com/mark3labs/apiscope/internal/fetch"
	genspec "github.com/mark3labs/apiscope/internal/spec"
)

// loaded is a decoded document together with its endpoint catalog.
type loaded struct {
	Doc     *genspec.Document
	Catalog *endpoint.Catalog
	BaseURL string
}

func loadCatalog(ctx context.Context, s *Settings) (*loaded, error) {
	if s.Input == "" {
		return nil, newUsageError("--input is required (set via flag, config file or APISCOPE_INPUT)")
	}

	doc, err := genspec.Load(ctx, s.Input,
		genspec.WithHTTPTimeout(s.Timeout),
		genspec.WithMaxRetries(s.Retries),
		genspec.WithStrict(s.Strict),
		genspec.WithLogger(s.Logger),
	)
	if err != nil {
		// Map structured spec errors into friendly messages
		var se *genspec.SpecError
		if errors.As(err, &se) {
			msg := fmt.Sprintf("spec: %s", se.Message)
			if se.Location != "" {
				msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
			}
			if se.JSONPointer != "" {
				msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
			}
			return nil, newUsageError(msg)
		}
		return nil, err
	}

	methods, err := s.Methods()
	if err != nil {
		return nil, newUsageError(err.Error())
	}
	cat, err := endpoint.BuildCatalog(doc,
		endpoint.WithIncludeTags(s.IncludeTags),
		endpoint.WithExcludeTags(s.ExcludeTags),
		endpoint.WithBodyMethods(methods),
		endpoint.WithLogger(s.Logger),
	)
	if err != nil {
		if cat == nil {
			return nil, err
		}
		s.Logger.Warn().Int("built", len(cat.Endpoints)).Msg("some operations were skipped")
	}

	base := s.BaseURL
	if base == "" && len(doc.Servers) > 0 {
		base = doc.Servers[0].URL
	}
	return &loaded{Doc: doc, Catalog: cat, BaseURL: strings.TrimSpace(base)}, nil
}

func (l *loaded) lookup(operationID string) (*endpoint.Endpoint, error) {
	ep, ok := l.Catalog.Get(operationID)
	if !ok {
		return nil, newUsageError(fmt.Sprintf("unknown operationId %q (see `apiscope endpoints`)", operationID))
	}
	return ep, nil
}

func (l *loaded) transport(s *Settings) (fetch.Transport, error) {
	if l.BaseURL == "" {
		return nil, newUsageError("no base URL: set --base-url or declare servers in the document")
	}
	client := &http.Client{Transport: &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: s.Timeout,
	}}
	return fetch.NewHTTPTransport(l.BaseURL, fetch.WithClient(client), fetch.WithLogger(s.Logger)), nil
}
