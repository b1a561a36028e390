package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fsnotify/fsnotify"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/mark3labs/apiscope/internal/endpoint"
)

// EndpointsConfig captures the options for the endpoints command.
type EndpointsConfig struct {
	*Settings
	JSON     bool
	Watch    bool
	Debounce time.Duration
}

var endpointsRunner = runEndpoints

func newEndpointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "List the endpoints compiled from the document",
		Example: strings.TrimSpace(`  apiscope endpoints --input openapi.yaml
  apiscope endpoints --input openapi.yaml --include-tags blocks --json
  apiscope endpoints --input openapi.yaml --watch`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolveSettings(cmd)
			if err != nil {
				return err
			}
			cfg := &EndpointsConfig{Settings: s}
			if cfg.JSON, err = cmd.Flags().GetBool("json"); err != nil {
				return err
			}
			if cfg.Watch, err = cmd.Flags().GetBool("watch"); err != nil {
				return err
			}
			if cfg.Debounce, err = cmd.Flags().GetDuration("debounce"); err != nil {
				return err
			}
			return endpointsRunner(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.Bool("json", false, "Print the catalog as JSON")
	flags.BoolP("watch", "w", false, "Rebuild the catalog when the document file changes")
	flags.Duration("debounce", 300*time.Millisecond, "Debounce interval for watch mode")
	return cmd
}

func runEndpoints(ctx context.Context, w io.Writer, cfg *EndpointsConfig) error {
	if !cfg.Watch {
		return listEndpoints(ctx, w, cfg)
	}
	return watchEndpoints(ctx, w, cfg)
}

func listEndpoints(ctx context.Context, w io.Writer, cfg *EndpointsConfig) error {
	l, err := loadCatalog(ctx, cfg.Settings)
	if err != nil {
		return err
	}
	if cfg.JSON {
		return writeCatalogJSON(w, l.Catalog)
	}
	return writeCatalogTable(w, l.Catalog)
}

type endpointSummary struct {
	OperationID string   `json:"operationId"`
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	Title       string   `json:"title,omitempty"`
	Streaming   bool     `json:"streaming"`
	Tags        []string `json:"tags,omitempty"`
}

func writeCatalogJSON(w io.Writer, cat *endpoint.Catalog) error {
	out := make([]endpointSummary, 0, len(cat.Endpoints))
	for _, ep := range cat.Endpoints {
		out = append(out, endpointSummary{
			OperationID: ep.OperationID,
			Method:      string(ep.Method),
			Path:        ep.Path,
			Title:       ep.Title,
			Streaming:   ep.Streaming,
			Tags:        ep.Tags,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeCatalogTable(w io.Writer, cat *endpoint.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OPERATION\tMETHOD\tPATH\tSTREAM\tTAGS\tTITLE")
	for _, ep := range cat.Endpoints {
		stream := ""
		if ep.Streaming {
			stream = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			ep.OperationID, ep.Method, ep.Path, stream, strings.Join(ep.Tags, ","), ep.Title)
	}
	return tw.Flush()
}

func watchEndpoints(ctx context.Context, w io.Writer, cfg *EndpointsConfig) error {
	if u, err := url.Parse(cfg.Input); err == nil && u.Scheme != "" && u.Host != "" {
		return newUsageError("--watch needs a local document, not a URL")
	}
	target, err := filepath.Abs(cfg.Input)
	if err != nil {
		return newUsageError(fmt.Sprintf("resolve input path: %v", err))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("adding directory to watcher: %w", err)
	}
	log := cfg.Logger.With().Str("input", target).Logger()
	log.Info().Msg("watching document")

	if err := listEndpoints(ctx, w, cfg); err != nil {
		log.Error().Err(err).Msg("build failed")
	}

	var debounce *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.NewTimer(cfg.Debounce)
			fire = debounce.C
		case <-fire:
			fire = nil
			log.Info().Msg("document changed, rebuilding")
			if err := listEndpoints(ctx, w, cfg); err != nil {
				log.Error().Err(err).Msg("build failed")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watcher error")
		}
	}
}
