package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/talkincode/plantcatalog/internal/catalogstate"
	"github.com/talkincode/plantcatalog/internal/cli/browse"
)

func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Interactive catalog with search and filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			debounce, _ := cmd.Flags().GetDuration("debounce")
			store := catalogstate.New(clientFor(cmd),
				catalogstate.WithDebounce(debounce),
				catalogstate.WithLogger(zap.L()))
			defer store.Close()

			if p := paramsFromFlags(cmd); !p.Equal(store.State().Filters) {
				store.Dispatch(catalogstate.SetSearchInput{Text: p.Search})
				store.Dispatch(catalogstate.CommitSearch{})
				store.Dispatch(catalogstate.SetCategory{Category: p.Category})
				store.Dispatch(catalogstate.SetPriceRange{Min: p.MinPrice, Max: p.MaxPrice})
				store.Dispatch(catalogstate.SetAvailability{AvailableOnly: p.AvailableOnly})
			}
			return browse.Run(store)
		},
	}
	addFilterFlags(cmd.Flags())
	cmd.Flags().Duration("debounce", catalogstate.DefaultDebounce, "quiet period before search text is applied")
	return cmd
}
