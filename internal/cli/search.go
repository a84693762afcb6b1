package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pubsync/pubsync/internal/controller"
	"github.com/pubsync/pubsync/internal/sync/asyncstate"
	"github.com/pubsync/pubsync/internal/sync/search"
	"github.com/spf13/cobra"
)

// newSearchCmd runs a publication search
func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search publications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(args[0]) == "" {
				return errors.New("search query cannot be empty")
			}
			pages, _ := cmd.Flags().GetInt("pages")
			if pages < 1 {
				pages = 1
			}

			coord := controller.NewSearch(current.gw, search.Options{
				PageSize: current.cfg.PageSize,
				Debounce: current.cfg.Debounce,
			})
			defer coord.Close()

			updates, unsubscribe := coord.State().Subscribe(8)
			defer unsubscribe()
			coord.Search(args[0])

			loaded := 0
			for {
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case st, ok := <-updates:
					if !ok {
						return errors.New("search closed")
					}
					switch st.Kind() {
					case asyncstate.KindError:
						msg, _ := st.Message()
						return fmt.Errorf("search failed: %s", msg)
					case asyncstate.KindSuccess:
						loaded++
						snap := coord.Snapshot()
						if loaded < pages && !snap.Exhausted && coord.LoadMore() {
							continue
						}
						printPublications(snap.Items)
						return nil
					}
				}
			}
		},
	}
	cmd.Flags().Int("pages", 1, "Number of result pages to load")
	return cmd
}

func init() {
	rootCmd.AddCommand(newSearchCmd())
}
