package view

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTime(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"zero", time.Time{}, ""},
		{"seconds ago", now.Add(-30 * time.Second), "just now"},
		{"earlier today", time.Date(2024, 5, 10, 9, 15, 0, 0, time.UTC), "09:15"},
		{"later today", now.Add(2 * time.Hour), "14:00"},
		{"days ago", now.Add(-48 * time.Hour), "2 days ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTime(tt.at, now))
		})
	}
}

func TestNormalize(t *testing.T) {
	// "e" followed by a combining acute accent composes to a single rune.
	assert.Equal(t, "caf\u00e9", Normalize("cafe\u0301\r\n"))
	assert.Equal(t, "line one\nline two", Normalize("line one\nline two\n"))
	assert.Equal(t, "", Normalize("\n"))
}

func TestAddEmoji(t *testing.T) {
	got, err := AddEmoji("nice ", 21)
	require.NoError(t, err)
	assert.Equal(t, "nice 👍", got)

	got, err = AddEmoji("nice ", len(Emojis))
	require.Error(t, err)
	assert.Equal(t, "nice ", got)

	_, err = AddEmoji("", -1)
	assert.Error(t, err)
}

func TestTypingNotifier(t *testing.T) {
	sent := 0
	n := NewTypingNotifier(time.Hour, func(context.Context) error {
		sent++
		return nil
	})

	ok, err := n.Notify(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	for range 5 {
		ok, err = n.Notify(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 1, sent)
}

func TestTypingNotifier_SendError(t *testing.T) {
	boom := errors.New("boom")
	n := NewTypingNotifier(time.Millisecond, func(context.Context) error { return boom })

	ok, err := n.Notify(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)
}
