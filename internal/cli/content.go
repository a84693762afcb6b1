package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pubsync/pubsync/internal/controller"
	"github.com/pubsync/pubsync/internal/gateway"
	"github.com/pubsync/pubsync/internal/sync/optimistic"
	"github.com/spf13/cobra"
)

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// newCategoriesCmd lists categories, or shows one category with its subcategories
func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories [ID]",
		Short: "List categories or show one category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := controller.NewCatalog(current.gw)
			if len(args) == 0 {
				env := cat.LoadCategories(cmd.Context())
				if err := env.Err(); err != nil {
					return err
				}
				if jsonOutput {
					printJSON(*env.Payload)
					return nil
				}
				for _, c := range *env.Payload {
					fmt.Printf("%-6d %s", c.ID, c.Name)
					if c.Description != "" {
						dimLabel.Printf("  %s", c.Description)
					}
					fmt.Println()
				}
				return nil
			}

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			one := cat.LoadCategory(cmd.Context(), id)
			if err := one.Err(); err != nil {
				return err
			}
			subs := cat.LoadSubcategories(cmd.Context(), id)
			if err := subs.Err(); err != nil {
				return err
			}
			if jsonOutput {
				printJSON(map[string]any{"category": *one.Payload, "subcategories": *subs.Payload})
				return nil
			}
			fmt.Printf("%s\n", one.Payload.Name)
			for _, s := range *subs.Payload {
				fmt.Printf("  %-6d %s\n", s.ID, s.Name)
			}
			return nil
		},
	}
}

// newFeedCmd prints publications from the feed
func newFeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the latest publications",
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, _ := cmd.Flags().GetInt("pages")
			feed := controller.NewFeed(current.gw, current.cfg.PageSize)
			for i := 0; i < pages && !feed.Exhausted(); i++ {
				if err := feed.LoadMore(cmd.Context()).Err(); err != nil {
					return err
				}
			}
			printPublications(feed.Publications())
			return nil
		},
	}
	cmd.Flags().Int("pages", 1, "Number of pages to load")
	return cmd
}

func printPublications(items []gateway.Publication) {
	if jsonOutput {
		printJSON(items)
		return
	}
	if len(items) == 0 {
		fmt.Println("No publications")
		return
	}
	for _, p := range items {
		marks := ""
		if p.Liked {
			marks += " ♥"
		}
		if p.Bookmarked {
			marks += " ★"
		}
		fmt.Printf("%-6d %s%s\n", p.ID, p.Title, marks)
		dimLabel.Printf("       %d likes, %s\n", p.Likes, p.CreatedAt.Format(time.DateOnly))
	}
}

// newToggleCmd builds the like and bookmark commands
func newToggleCmd(use, short, on, off string, toggle func(*controller.Feed, *cobra.Command, int64) (optimistic.Entry, <-chan optimistic.Outcome)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " PUBLICATION_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := current.requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			feed := controller.NewFeed(current.gw, current.cfg.PageSize)
			_, done := toggle(feed, cmd, id)
			out := <-done
			if !out.OK {
				return fmt.Errorf("%s failed: %s", use, out.Message)
			}
			if jsonOutput {
				printJSON(map[string]any{"id": id, "active": out.Entry.Active})
				return nil
			}
			if out.Entry.Active {
				okLabel.Printf("✓ %s %d\n", on, id)
			} else {
				okLabel.Printf("✓ %s %d\n", off, id)
			}
			return nil
		},
	}
}

// newCommentCmd manages comments
func newCommentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Add or delete comments",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add PUBLICATION_ID TEXT",
		Short: "Comment on a publication",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := current.requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			env := controller.NewComments(current.gw).Create(cmd.Context(), id, args[1])
			if err := env.Err(); err != nil {
				return err
			}
			if jsonOutput {
				printJSON(*env.Payload)
				return nil
			}
			okLabel.Printf("✓ Comment %d added\n", env.Payload.ID)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete COMMENT_ID",
		Short: "Delete a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := current.requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := controller.NewComments(current.gw).Delete(cmd.Context(), id).Err(); err != nil {
				return err
			}
			if jsonOutput {
				printJSON(map[string]int{"result": 1})
				return nil
			}
			okLabel.Printf("✓ Comment %d deleted\n", id)
			return nil
		},
	})
	return cmd
}

func init() {
	rootCmd.AddCommand(newCategoriesCmd())
	rootCmd.AddCommand(newFeedCmd())
	rootCmd.AddCommand(newToggleCmd("like", "Like or unlike a publication", "Liked", "Unliked",
		func(f *controller.Feed, cmd *cobra.Command, id int64) (optimistic.Entry, <-chan optimistic.Outcome) {
			return f.ToggleLike(cmd.Context(), id)
		}))
	rootCmd.AddCommand(newToggleCmd("bookmark", "Bookmark or unbookmark a publication", "Bookmarked", "Removed bookmark for",
		func(f *controller.Feed, cmd *cobra.Command, id int64) (optimistic.Entry, <-chan optimistic.Outcome) {
			return f.ToggleBookmark(cmd.Context(), id)
		}))
	rootCmd.AddCommand(newCommentCmd())
}
