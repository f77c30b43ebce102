package topics

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry     = make(map[string]Topic)
	registryLock sync.RWMutex
)

// Register validates and registers a topic.
func Register(topic Topic) error {
	if err := topic.Validate(); err != nil {
		return fmt.Errorf("topic %q: %w", topic.Name, err)
	}

	registryLock.Lock()
	defer registryLock.Unlock()

	if _, exists := registry[topic.Name]; exists {
		return fmt.Errorf("topic already registered: %s", topic.Name)
	}
	registry[topic.Name] = topic
	return nil
}

// MustRegister registers a topic and panics on error. It is meant for
// package-level topic definitions, where a failure is a programming error.
func MustRegister(topic Topic) Topic {
	if err := Register(topic); err != nil {
		panic(err)
	}
	return topic
}

// Get returns a topic by name
func Get(name string) (Topic, bool) {
	registryLock.RLock()
	defer registryLock.RUnlock()

	topic, exists := registry[name]
	return topic, exists
}

// List returns all registered topics sorted by name
func List() []Topic {
	registryLock.RLock()
	defer registryLock.RUnlock()

	result := make([]Topic, 0, len(registry))
	for _, topic := range registry {
		result = append(result, topic)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
