package topics

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/nfrund/chatroom/internal/topics"
)

// TopicDisplay represents a topic for display purposes
type TopicDisplay struct {
	Name        string   `json:"name"`
	Direction   string   `json:"direction"`
	Description string   `json:"description"`
	Pattern     string   `json:"pattern"`
	Params      []string `json:"params,omitempty"`
	Example     string   `json:"example"`
}

func toDisplay(t topics.Topic) TopicDisplay {
	return TopicDisplay{
		Name:        t.Name,
		Direction:   string(t.Direction),
		Description: t.Description,
		Pattern:     t.Pattern,
		Params:      t.Params(),
		Example:     t.Example,
	}
}

// DisplayTopicsTable displays topics in a formatted table
func DisplayTopicsTable(w io.Writer, list []topics.Topic) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "NAME\tDIRECTION\tPATTERN\tDESCRIPTION")
	fmt.Fprintln(tw, "----\t---------\t-------\t-----------")
	for _, t := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			t.Name,
			t.Direction,
			t.Pattern,
			truncateString(t.Description, 40))
	}
}

// DisplayTopicsJSON displays topics in JSON format
func DisplayTopicsJSON(w io.Writer, list []topics.Topic) error {
	displays := make([]TopicDisplay, len(list))
	for i, t := range list {
		displays[i] = toDisplay(t)
	}

	output := struct {
		Topics []TopicDisplay `json:"topics"`
		Count  int            `json:"count"`
	}{
		Topics: displays,
		Count:  len(displays),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// DisplayTopicDetails displays detailed information for a specific topic
func DisplayTopicDetails(w io.Writer, t topics.Topic, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(toDisplay(t))
	case "table":
	default:
		return fmt.Errorf("unsupported output format '%s', use 'table' or 'json'", format)
	}

	fmt.Fprintf(w, "Name:        %s\n", t.Name)
	fmt.Fprintf(w, "Direction:   %s\n", t.Direction)
	fmt.Fprintf(w, "Description: %s\n", t.Description)
	fmt.Fprintf(w, "Pattern:     %s\n", t.Pattern)
	if params := t.Params(); len(params) > 0 {
		fmt.Fprintf(w, "Params:      %s\n", strings.Join(params, ", "))
	}
	fmt.Fprintf(w, "Example:     %s\n", t.Example)
	return nil
}

// DisplayValidationResult displays topic validation results with appropriate formatting
func DisplayValidationResult(w io.Writer, t topics.Topic, err error) {
	if err != nil {
		fmt.Fprintf(w, "❌ Topic '%s' is invalid: %v\n", t.Name, err)
		return
	}

	fmt.Fprintf(w, "✅ Topic '%s' is valid\n", t.Name)
	fmt.Fprintf(w, "   Direction: %s\n", t.Direction)
	fmt.Fprintf(w, "   Pattern: %s\n", t.Pattern)
}

// truncateString truncates a string to maxLen characters, adding "..." if truncated
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
