package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	chattopics "github.com/nfrund/chatroom/cmd/chat/internal/topics"
	"github.com/nfrund/chatroom/internal/topics"
)

var getOutputFormat string

// topicsGetCmd represents the topics get command
var topicsGetCmd = &cobra.Command{
	Use:   "get <topic-name>",
	Short: "Get detailed information about a destination",
	Long: `Show name, direction, description, pattern, parameters and an example
for one destination.

Examples:
  chat topics get chat.public
  chat topics get chat.private_queue --format json`,
	Args: cobra.ExactArgs(1),
	RunE: topicsGetHandler,
}

func topicsGetHandler(cmd *cobra.Command, args []string) error {
	topic, found := topics.Get(args[0])
	if !found {
		return fmt.Errorf("topic '%s' not found, use 'chat topics list' to see all topics", args[0])
	}
	return chattopics.DisplayTopicDetails(cmd.OutOrStdout(), topic, getOutputFormat)
}

func init() {
	topicsCmd.AddCommand(topicsGetCmd)

	topicsGetCmd.Flags().StringVarP(&getOutputFormat, "format", "f", "table", "Output format (table, json)")
}
