package topics

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidTopicName is returned when a topic name is invalid
	ErrInvalidTopicName = errors.New("topic name must be dot separated lowercase words, e.g. 'chat.public'")

	// ErrInvalidTopicPattern is returned when a topic pattern is invalid
	ErrInvalidTopicPattern = errors.New("topic pattern must be an absolute destination with optional {parameters}")

	// ErrMissingDescription is returned when a topic is missing a description
	ErrMissingDescription = errors.New("topic is missing a description")

	// ErrMissingExample is returned when a topic is missing an example
	ErrMissingExample = errors.New("topic is missing an example")

	// ErrInvalidDirection is returned when a topic is neither subscribe nor send
	ErrInvalidDirection = errors.New("topic direction must be subscribe or send")
)

var (
	topicNameRegex    = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)*$`)
	topicPatternRegex = regexp.MustCompile(`^(/([A-Za-z0-9._\-]+|\{[a-z_]+\}))+$`)
)

// Validate checks that a topic is well formed:
// the name is dotted snake_case, the pattern is an absolute destination,
// description and example are present and the example fits the pattern.
func (t Topic) Validate() error {
	if !topicNameRegex.MatchString(t.Name) {
		return ErrInvalidTopicName
	}

	if !topicPatternRegex.MatchString(t.Pattern) {
		return ErrInvalidTopicPattern
	}

	if strings.TrimSpace(t.Description) == "" {
		return ErrMissingDescription
	}

	if strings.TrimSpace(t.Example) == "" {
		return ErrMissingExample
	}

	if t.Direction != Subscribe && t.Direction != Send {
		return ErrInvalidDirection
	}

	if !exampleMatches(t.Pattern, t.Example) {
		return errors.New("example should match the pattern structure")
	}

	return nil
}

func exampleMatches(pattern, example string) bool {
	want := strings.Split(pattern, "/")
	got := strings.Split(example, "/")
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if strings.HasPrefix(want[i], "{") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if want[i] != got[i] {
			return false
		}
	}
	return true
}

// ValidName reports whether name is a well-formed topic name.
func ValidName(name string) bool {
	return topicNameRegex.MatchString(name)
}
