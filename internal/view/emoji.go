package view

import (
	"fmt"
)

// Emojis is the palette offered by /emoji.
var Emojis = [...]string{
	"😂", "🥹", "😅", "😁", "🤨", "😎", "🥳", "😏", "😒", "😔", "☹️", "😣",
	"😫", "😭", "😡", "😤", "🤔", "🫣", "🤫", "😐", "🙄", "👍", "👎", "❤️",
}

// AddEmoji appends palette entry index to draft.
func AddEmoji(draft string, index int) (string, error) {
	if index < 0 || index >= len(Emojis) {
		return draft, fmt.Errorf("no emoji %d, pick 0-%d", index, len(Emojis)-1)
	}
	return draft + Emojis[index], nil
}
