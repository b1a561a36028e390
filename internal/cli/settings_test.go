package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestQueryConfigFromFlags(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	var captured *QueryConfig
	queryRunner = func(ctx context.Context, w io.Writer, cfg *QueryConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { queryRunner = runQuery })

	root.SetArgs([]string{
		"--verbose",
		"query", "blocks_query",
		"--input", "spec.yaml",
		"--base-url", "http://localhost:9000",
		"--include-tags", "blocks,txs",
		"--exclude-tags", "admin",
		"--body-methods", "post,get",
		"--timeout", "3s",
		"--strict",
		"--path", "hash=abc",
		"--query", "limit=5",
		"--filter", "height:Gt:100",
		"--filter", "miner:In:a,b",
		"--example", "all",
		"--table",
		"--drill", "0:transactions",
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured == nil {
		t.Fatalf("expected config to be captured")
	}

	if captured.OperationID != "blocks_query" {
		t.Errorf("operationId mismatch: got %q", captured.OperationID)
	}
	if captured.Input != "spec.yaml" {
		t.Errorf("input mismatch: got %q", captured.Input)
	}
	if captured.BaseURL != "http://localhost:9000" {
		t.Errorf("base url mismatch: got %q", captured.BaseURL)
	}
	if want := []string{"blocks", "txs"}; !reflect.DeepEqual(captured.IncludeTags, want) {
		t.Errorf("include tags mismatch: got %v", captured.IncludeTags)
	}
	if want := []string{"admin"}; !reflect.DeepEqual(captured.ExcludeTags, want) {
		t.Errorf("exclude tags mismatch: got %v", captured.ExcludeTags)
	}
	if want := []string{"POST", "GET"}; !reflect.DeepEqual(captured.BodyMethods, want) {
		t.Errorf("body methods mismatch: got %v", captured.BodyMethods)
	}
	if captured.Timeout != 3*time.Second {
		t.Errorf("timeout mismatch: got %v", captured.Timeout)
	}
	if !captured.Strict {
		t.Errorf("expected strict true")
	}
	if !captured.Verbose {
		t.Errorf("expected verbose true")
	}
	if want := []string{"height:Gt:100", "miner:In:a,b"}; !reflect.DeepEqual(captured.Filters, want) {
		t.Errorf("filters mismatch: got %v", captured.Filters)
	}
	if !reflect.DeepEqual(captured.PathValues, []string{"hash=abc"}) || !reflect.DeepEqual(captured.QueryValues, []string{"limit=5"}) {
		t.Errorf("param values mismatch: got %v %v", captured.PathValues, captured.QueryValues)
	}
	if captured.Example != "all" || !captured.Table {
		t.Errorf("expected example all with table, got %q %v", captured.Example, captured.Table)
	}
	if want := []string{"0:transactions"}; !reflect.DeepEqual(captured.Drill, want) {
		t.Errorf("drill mismatch: got %v", captured.Drill)
	}
}

func TestSettingsFromConfigFile_FlagsOverride(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "apiscope.yaml")
	configYAML := "" +
		"input: from-config.yaml\n" +
		"baseURL: http://config\n" +
		"include-tags: [alpha, beta]\n" +
		"concurrency: 2\n" +
		"log:\n" +
		"  level: warn\n"
	if err := os.WriteFile(configPath, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	var captured *Settings
	probeRunner = func(ctx context.Context, w io.Writer, s *Settings) error {
		captured = s
		return nil
	}
	t.Cleanup(func() { probeRunner = runProbe })

	root.SetArgs([]string{
		"--config", configPath,
		"probe",
		"--input", "override.yaml",
		"--concurrency", "9",
		"--log-level", "debug",
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured == nil {
		t.Fatalf("expected settings to be captured")
	}
	if captured.Input != "override.yaml" {
		t.Errorf("expected flag input to override config, got %q", captured.Input)
	}
	if captured.BaseURL != "http://config" {
		t.Errorf("expected base url from config, got %q", captured.BaseURL)
	}
	if want := []string{"alpha", "beta"}; !reflect.DeepEqual(captured.IncludeTags, want) {
		t.Errorf("expected include tags from config, got %v", captured.IncludeTags)
	}
	if captured.Concurrency != 9 {
		t.Errorf("expected concurrency override, got %d", captured.Concurrency)
	}
	if captured.Log.Level != "debug" {
		t.Errorf("expected log level override, got %q", captured.Log.Level)
	}
	if captured.ConfigPath != configPath {
		t.Errorf("config path mismatch: got %q", captured.ConfigPath)
	}
}

func TestSettings_Errors(t *testing.T) {
	dir := t.TempDir()
	unknown := filepath.Join(dir, "unknown.yaml")
	if err := os.WriteFile(unknown, []byte("color: blue\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown config field", []string{"--config", unknown, "endpoints"}, "unknown field"},
		{"missing config file", []string{"--config", filepath.Join(dir, "missing.yaml"), "endpoints"}, "missing.yaml"},
		{"tag overlap", []string{"endpoints", "--include-tags", "a", "--exclude-tags", "a"}, "overlap"},
		{"bad body method", []string{"endpoints", "--body-methods", "fetch"}, "unsupported method"},
		{"missing input", []string{"endpoints"}, "--input is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := NewRootCmd()
			root.SetOut(io.Discard)
			root.SetErr(io.Discard)
			root.SetArgs(tt.args)

			err := root.Execute()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !errors.Is(err, ErrUsage) {
				t.Fatalf("expected usage error, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in error, got: %v", tt.want, err)
			}
		})
	}
}
