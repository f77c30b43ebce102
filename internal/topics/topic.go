package topics

import (
	"fmt"
	"strings"
)

// Direction tells whether the client subscribes to a destination or sends to it.
type Direction string

const (
	Subscribe Direction = "subscribe"
	Send      Direction = "send"
)

// Topic is a broker destination known to the client.
type Topic struct {
	// Name is the stable identifier, e.g. "chat.public".
	Name string
	// Description is human-readable documentation.
	Description string
	// Pattern is the destination with optional {parameters}.
	Pattern string
	// Example is a concrete destination matching Pattern.
	Example string
	// Direction is how the client uses the destination.
	Direction Direction
}

// Destination formats the topic pattern with vars.
func (t Topic) Destination(vars map[string]string) (string, error) {
	result := t.Pattern
	for k, v := range vars {
		if v == "" || strings.ContainsAny(v, "/{}*#> ") {
			return "", fmt.Errorf("topic %s: invalid value %q for parameter %s", t.Name, v, k)
		}
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}

	// Verify all placeholders were replaced
	if strings.Contains(result, "{") || strings.Contains(result, "}") {
		return "", fmt.Errorf("topic %s: missing required parameters in %s", t.Name, result)
	}

	return result, nil
}

// Params lists the placeholder names in the pattern, in order.
func (t Topic) Params() []string {
	var params []string
	rest := t.Pattern
	for {
		start := strings.Index(rest, "{")
		if start < 0 {
			return params
		}
		end := strings.Index(rest[start:], "}")
		if end < 0 {
			return params
		}
		params = append(params, rest[start+1:start+end])
		rest = rest[start+end+1:]
	}
}

// String returns the topic's name
func (t Topic) String() string {
	return t.Name
}
