package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	chattopics "github.com/nfrund/chatroom/cmd/chat/internal/topics"
	"github.com/nfrund/chatroom/internal/topics"
)

// topicsValidateCmd represents the topics validate command
var topicsValidateCmd = &cobra.Command{
	Use:   "validate <topic-name>",
	Short: "Validate a destination definition",
	Long: `Check that a topic name is well formed and that its registered definition
is complete: an absolute destination pattern, a description, a direction and
an example matching the pattern.

Examples:
  chat topics validate chat.public
  chat topics validate Invalid.Topic     # name format error`,
	Args: cobra.ExactArgs(1),
	RunE: topicsValidateHandler,
}

func topicsValidateHandler(cmd *cobra.Command, args []string) error {
	name := args[0]
	out := cmd.OutOrStdout()

	if !topics.ValidName(name) {
		err := topics.ErrInvalidTopicName
		chattopics.DisplayValidationResult(out, topics.Topic{Name: name}, err)
		return err
	}

	topic, found := topics.Get(name)
	if !found {
		err := fmt.Errorf("topic '%s' not found", name)
		chattopics.DisplayValidationResult(out, topic, err)
		return err
	}

	err := topic.Validate()
	chattopics.DisplayValidationResult(out, topic, err)
	return err
}

func init() {
	topicsCmd.AddCommand(topicsValidateCmd)
}
