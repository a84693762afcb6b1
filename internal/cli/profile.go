package cli

import (
	"fmt"
	"os"

	"github.com/pubsync/pubsync/internal/controller"
	"github.com/pubsync/pubsync/internal/gateway"
	"github.com/pubsync/pubsync/internal/sync/envelope"
	"github.com/spf13/cobra"
)

// newProfileCmd shows and edits the signed-in user's profile
func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printUser(controller.NewProfile(current.gw, current.cache).Load(cmd.Context()))
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set-username NAME",
		Short: "Change your user name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := controller.NewProfile(current.gw, current.cache)
			return printUser(p.UpdateUsername(cmd.Context(), args[0]))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-picture FILE",
		Short: "Upload a new profile picture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("unable to read image: %w", err)
			}
			p := controller.NewProfile(current.gw, current.cache)
			return printUser(p.UpdatePicture(cmd.Context(), image))
		},
	})
	return cmd
}

func printUser(env envelope.Envelope[gateway.User]) error {
	if err := env.Err(); err != nil {
		return err
	}
	u := env.Payload
	if jsonOutput {
		printJSON(u)
		return nil
	}
	fmt.Printf("ID:       %d\n", u.ID)
	fmt.Printf("Username: %s\n", u.Username)
	fmt.Printf("Email:    %s\n", u.Email)
	fmt.Printf("Role:     %s\n", u.Role)
	if u.PictureURL != "" {
		fmt.Printf("Picture:  %s\n", u.PictureURL)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(newProfileCmd())
}
