package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pubsync/pubsync/internal/controller"
	"github.com/pubsync/pubsync/internal/gateway"
	"github.com/spf13/cobra"
)

// newLoginCmd creates and returns a new login command
func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the server",
		Long: `Sign in with your email and password. The session is stored locally and
reused by later commands until you log out or the token expires.

Example:
  pubsync login --email me@example.com --password secret
  pubsync login --email me@example.com   # prompts for the password`,
		RunE: runLogin,
	}

	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password")
	return cmd
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		var err error
		if password, err = prompt("Password: "); err != nil {
			return err
		}
	}

	auth := controller.NewAuth(current.gw, current.cache)
	env := auth.Login(cmd.Context(), gateway.Credentials{Email: email, Password: password})
	if err := env.Err(); err != nil {
		return err
	}
	printAuth("Login successful", *env.Payload)
	return nil
}

// newRegisterCmd creates and returns a new register command
func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Long: `Create an account. On success you are signed in with the new account.

Example:
  pubsync register --username alice --email alice@example.com --password s3cret-pass`,
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")

			auth := controller.NewAuth(current.gw, current.cache)
			env := auth.Register(cmd.Context(), gateway.Registration{
				Username: username,
				Email:    email,
				Password: password,
			})
			if err := env.Err(); err != nil {
				return err
			}
			printAuth("Registration successful", *env.Payload)
			return nil
		},
	}

	cmd.Flags().String("username", "", "User name")
	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password, at least 8 characters")
	return cmd
}

func printAuth(msg string, res gateway.AuthResult) {
	if jsonOutput {
		printJSON(map[string]any{
			"status":  "success",
			"user_id": res.UserID,
			"role":    res.Role,
		})
		return
	}
	okLabel.Printf("✓ %s\n", msg)
	fmt.Printf("User ID: %d\nRole: %s\n", res.UserID, res.Role)
}

// newLogoutCmd creates and returns a new logout command
func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			auth := controller.NewAuth(current.gw, current.cache)
			if err := auth.Logout(cmd.Context()); err != nil {
				return err
			}
			if jsonOutput {
				printJSON(map[string]int{"result": 1})
			} else {
				okLabel.Println("✓ Logged out")
			}
			return nil
		},
	}
}

// newWhoamiCmd creates and returns a command printing the stored session
func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user from the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := current.cache.Current()
			if jsonOutput {
				printJSON(sc)
				return nil
			}
			if !sc.IsAuthenticated() {
				fmt.Println("Not logged in")
				return nil
			}
			fmt.Printf("User ID: %s\nRole: %s\n", sc.UserID.String(), sc.Role.String())
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
}

func prompt(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("unable to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
