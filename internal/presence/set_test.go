package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_LastEventWins(t *testing.T) {
	tests := []struct {
		name   string
		events []string // "+user" joins, "-user" leaves
		want   []string
	}{
		{"join then leave", []string{"+bob", "-bob"}, []string{}},
		{"leave then join", []string{"-bob", "+bob"}, []string{"bob"}},
		{"double join", []string{"+bob", "+bob"}, []string{"bob"}},
		{"interleaved", []string{"+bob", "+carol", "-bob", "+dave", "-carol", "+bob"}, []string{"bob", "dave"}},
		{"leave unknown", []string{"-zoe"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSet()
			for _, ev := range tt.events {
				if ev[0] == '+' {
					s.Join(ev[1:])
				} else {
					s.Leave(ev[1:])
				}
			}
			assert.Equal(t, tt.want, s.List())
			assert.Equal(t, len(tt.want), s.Len())
		})
	}
}

func TestSet_MergeNeverRemoves(t *testing.T) {
	s := NewSet()
	s.Join("me")
	s.Join("bob")

	added := s.Merge([]string{"carol"}, s.Mark())
	assert.Equal(t, []string{"carol"}, added)
	assert.Equal(t, []string{"bob", "carol", "me"}, s.List())
}

func TestSet_MergeKeepsNewerLeave(t *testing.T) {
	s := NewSet()
	s.Join("me")
	mark := s.Mark()

	// bob leaves while the listing that still contains him is in flight.
	s.Leave("bob")
	added := s.Merge([]string{"bob", "carol"}, mark)

	assert.Equal(t, []string{"carol"}, added)
	assert.False(t, s.Online("bob"))
	assert.Equal(t, []string{"carol", "me"}, s.List())
}

func TestSet_MergeOverridesOlderLeave(t *testing.T) {
	s := NewSet()
	s.Leave("bob")
	mark := s.Mark()

	added := s.Merge([]string{"bob"}, mark)
	assert.Equal(t, []string{"bob"}, added)
	assert.True(t, s.Online("bob"))
}

func TestSet_IgnoresEmptyNames(t *testing.T) {
	s := NewSet()
	s.Join("")
	s.Merge([]string{""}, s.Mark())
	assert.Zero(t, s.Len())
	assert.Empty(t, s.List())
}
