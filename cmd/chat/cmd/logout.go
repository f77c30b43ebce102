package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session",
	Long: `End the session on the server and remove it locally. The local session
is removed even when the server cannot be reached. Open rooms in other
terminals notice and leave.`,
	Args: cobra.NoArgs,
	RunE: runLogout,
}

func runLogout(cmd *cobra.Command, _ []string) error {
	d, err := services()
	if err != nil {
		return err
	}
	if !d.Auth.IsAuthenticated() {
		fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
		return nil
	}

	if err := d.Auth.Logout(cmd.Context()); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: server logout failed: %v\n", err)
	}
	if d.Auth.IsAuthenticated() {
		return fmt.Errorf("could not remove the session at %s", d.Sessions.Path())
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
