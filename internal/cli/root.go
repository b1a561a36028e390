package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the apiscope CLI.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apiscope",
		Short: "Explore and query APIs described by OpenAPI documents",
		Long: "apiscope compiles an OpenAPI/Swagger document into a catalog of callable endpoints, " +
			"builds filter bodies from their schemas and streams NDJSON results as tables or rows.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Convert Cobra flag errors (like unknown flags) into usage errors that
	// also show the command's help text.
	cmd.SetFlagErrorFunc(flagError)

	pf := cmd.PersistentFlags()
	pf.StringP("config", "c", "", "Config file path (YAML)")
	pf.BoolP("verbose", "v", false, "Enable verbose (debug) logging")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.String("input", "", "Path or URL to the Swagger/OpenAPI document")
	pf.StringSlice("include-tags", nil, "Only include operations with these tags")
	pf.StringSlice("exclude-tags", nil, "Exclude operations with these tags")
	pf.StringSlice("body-methods", nil, "HTTP methods allowed to carry a request body")
	pf.Bool("strict", false, "Fail when the document does not validate")
	pf.Duration("timeout", 0, "HTTP timeout for fetching the document and awaiting API responses")

	for _, sub := range []*cobra.Command{
		newEndpointsCmd(),
		newDescribeCmd(),
		newQueryCmd(),
		newProbeCmd(),
		newInitCmd(),
	} {
		sub.SetFlagErrorFunc(flagError)
		cmd.AddCommand(sub)
	}

	return cmd
}

func flagError(c *cobra.Command, err error) error {
	return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}
