package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	chattopics "github.com/nfrund/chatroom/cmd/chat/internal/topics"
	"github.com/nfrund/chatroom/internal/topics"
)

var (
	listOutputFormat    string
	listDirectionFilter string
)

// topicsListCmd represents the topics list command
var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all destinations",
	Long: `List every destination registered by the client, in table or JSON format.

Examples:
  chat topics list                     # table format
  chat topics list --format json       # JSON format
  chat topics list --direction send    # only destinations the client sends to`,
	Args: cobra.NoArgs,
	RunE: topicsListHandler,
}

func topicsListHandler(cmd *cobra.Command, _ []string) error {
	var list []topics.Topic
	for _, t := range topics.List() {
		if listDirectionFilter != "" && string(t.Direction) != listDirectionFilter {
			continue
		}
		list = append(list, t)
	}

	out := cmd.OutOrStdout()
	switch listOutputFormat {
	case "json":
		return chattopics.DisplayTopicsJSON(out, list)
	case "table":
		if len(list) == 0 {
			fmt.Fprintf(out, "No topics found matching direction '%s'\n", listDirectionFilter)
			return nil
		}
		chattopics.DisplayTopicsTable(out, list)
		return nil
	default:
		return fmt.Errorf("unsupported output format '%s', use 'table' or 'json'", listOutputFormat)
	}
}

func init() {
	topicsCmd.AddCommand(topicsListCmd)

	topicsListCmd.Flags().StringVarP(&listOutputFormat, "format", "f", "table", "Output format (table, json)")
	topicsListCmd.Flags().StringVarP(&listDirectionFilter, "direction", "d", "", "Filter by direction (subscribe, send)")
}
