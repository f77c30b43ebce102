package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var onlineCmd = &cobra.Command{
	Use:     "online",
	Short:   "List the users the server reports online",
	Args:    cobra.NoArgs,
	PreRunE: requireLogin,
	RunE:    runOnline,
}

func runOnline(cmd *cobra.Command, _ []string) error {
	d, err := services()
	if err != nil {
		return err
	}
	id, err := identity()
	if err != nil {
		return err
	}

	users, err := d.Auth.OnlineUsers(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(users) == 0 {
		fmt.Fprintln(out, "Nobody is online")
		return nil
	}
	for _, u := range users {
		if u == id.Username {
			fmt.Fprintf(out, "%s (you)\n", u)
			continue
		}
		fmt.Fprintln(out, u)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(onlineCmd)
}
