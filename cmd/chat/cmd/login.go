package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nfrund/chatroom/internal/domain"
)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in to the chat server",
	Long: `Log in and keep the session on disk.

The password is always prompted for, without echo when run in a terminal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	d, err := services()
	if err != nil {
		return err
	}

	p := newPrompter(cmd)
	username := ""
	if len(args) == 1 {
		username = args[0]
	} else if username, err = p.line("Username: "); err != nil {
		return err
	}
	password, err := p.password("Password: ")
	if err != nil {
		return err
	}

	id, err := d.Auth.Login(cmd.Context(), username, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return errors.New("invalid username or password")
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", id.Username)
	return nil
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
