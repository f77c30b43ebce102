package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var whoamiRemote bool

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Short:   "Show the logged-in user",
	Args:    cobra.NoArgs,
	PreRunE: requireLogin,
	RunE:    runWhoami,
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	d, err := services()
	if err != nil {
		return err
	}
	if whoamiRemote {
		if _, err := d.Auth.FetchCurrentUser(cmd.Context()); err != nil {
			return err
		}
	}

	id, err := identity()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s, logged in %s\n", id.Username, humanize.Time(id.LoginTime))
	for _, key := range slices.Sorted(maps.Keys(id.Profile)) {
		if key == "username" {
			continue
		}
		fmt.Fprintf(out, "  %s: %v\n", key, id.Profile[key])
	}
	return nil
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
	whoamiCmd.Flags().BoolVar(&whoamiRemote, "remote", false, "Refresh the profile from the server first")
}
