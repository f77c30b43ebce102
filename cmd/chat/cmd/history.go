package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nfrund/chatroom/internal/view"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:     "history <user>",
	Short:   "Show the private messages exchanged with a user",
	Args:    cobra.ExactArgs(1),
	PreRunE: requireLogin,
	RunE:    runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	d, err := services()
	if err != nil {
		return err
	}
	id, err := identity()
	if err != nil {
		return err
	}

	messages, err := d.Auth.PrivateHistory(cmd.Context(), id.Username, args[0])
	if err != nil {
		return err
	}
	if historyLimit > 0 && len(messages) > historyLimit {
		messages = messages[len(messages)-historyLimit:]
	}

	out := cmd.OutOrStdout()
	if len(messages) == 0 {
		fmt.Fprintf(out, "No messages with %s yet\n", args[0])
		return nil
	}
	now := time.Now()
	for _, pm := range messages {
		fmt.Fprintf(out, "[%s] %s: %s\n", view.FormatTime(pm.Timestamp.Time, now), pm.Sender, pm.Content)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Show only the last n messages")
}
