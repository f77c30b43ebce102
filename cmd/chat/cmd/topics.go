package cmd

import (
	"github.com/spf13/cobra"
)

// topicsCmd represents the topics command
var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Explore the broker destinations the client uses",
	Long: `The topics command lists the STOMP destinations the client subscribes to
and sends to, which helps when debugging against a broker.

Available subcommands:
  list      List all destinations
  get       Get detailed information about a destination
  validate  Validate a destination definition

Examples:
  chat topics list
  chat topics list --direction send
  chat topics get chat.private_queue
  chat topics validate chat.public`,
}

func init() {
	rootCmd.AddCommand(topicsCmd)
}
