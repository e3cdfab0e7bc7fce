// Package cli implements the plantctl command tree. Every command talks to a
// running plantd through catalogclient.
package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/talkincode/plantcatalog/internal/catalogclient"
)

const (
	DefaultServer = "http://127.0.0.1:1816"
	serverEnv     = "PLANTCTL_SERVER"
)

// NewRootCmd builds a fresh plantctl command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "plantctl",
		Short: "Plant catalog client",
		Long: `plantctl manages a plant catalog served by plantd.

BROWSING:
  browse      Interactive catalog with search and filters
  list        List plants, newest first
  get         Show one plant
  categories  List the categories in use
  stats       Price statistics for the matching plants

EDITING:
  add         Create a plant
  update      Change fields of a plant
  delete      Remove a plant
  seed        Load the starter catalog

DATA:
  export      Write the matching plants as csv or xlsx

EXAMPLES:
  plantctl list --search aloe --max-price 500
  plantctl add --name "Aloe Vera" --price 199 --category Indoor --category Succulent
  plantctl export --format xlsx -o plants.xlsx`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	server := os.Getenv(serverEnv)
	if server == "" {
		server = DefaultServer
	}
	rootCmd.PersistentFlags().StringP("server", "s", server, "plantd base URL (env "+serverEnv+")")
	rootCmd.PersistentFlags().Duration("timeout", 15*time.Second, "request timeout")

	rootCmd.AddCommand(
		newListCmd(),
		newGetCmd(),
		newAddCmd(),
		newUpdateCmd(),
		newDeleteCmd(),
		newCategoriesCmd(),
		newStatsCmd(),
		newExportCmd(),
		newSeedCmd(),
		newBrowseCmd(),
	)
	return rootCmd
}

// Execute runs plantctl and reports a failure on stderr
func Execute() int {
	zap.ReplaceGlobals(zap.NewNop())
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}

// clientFor builds an API client from the persistent flags
func clientFor(cmd *cobra.Command) *catalogclient.Client {
	server, _ := cmd.Flags().GetString("server")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return catalogclient.New(server, catalogclient.WithTimeout(timeout), catalogclient.WithLogger(zap.L()))
}

func printError(w io.Writer, err error) {
	var apiErr *catalogclient.APIError
	if !errors.As(err, &apiErr) {
		fmt.Fprintln(w, errorStyle.Render("Error: "+err.Error()))
		return
	}
	fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("Error (%d): %s", apiErr.Status, apiErr.Message)))
	fields := make([]string, 0, len(apiErr.Fields))
	for f := range apiErr.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(w, "  %s: %s\n", f, apiErr.Fields[f])
	}
}

func joinTags(tags []string) string {
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, ", ")
}
