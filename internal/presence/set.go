// Package presence tracks which users are online as seen by one client.
package presence

import (
	"sort"
)

// Status is the last observed state of a user.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Mark is a position in the event sequence of a Set.
type Mark uint64

type entry struct {
	status Status
	seq    uint64
}

// Set holds the online users. Membership reflects the last live event seen
// for each user; a bulk listing fetched from the server is merged in without
// undoing events that arrived while it was in flight.
//
// A Set is not safe for concurrent use; its owner serializes access.
type Set struct {
	users map[string]entry
	seq   uint64
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{users: make(map[string]entry)}
}

// Join marks username online.
func (s *Set) Join(username string) {
	s.record(username, StatusOnline)
}

// Leave marks username offline.
func (s *Set) Leave(username string) {
	s.record(username, StatusOffline)
}

func (s *Set) record(username string, status Status) {
	if username == "" {
		return
	}
	s.seq++
	s.users[username] = entry{status: status, seq: s.seq}
}

// Mark returns the current position; pass it to Merge to ignore listings
// older than events observed after this point.
func (s *Set) Mark() Mark {
	return Mark(s.seq)
}

// Merge adds the listed users that are not known to have left after since.
// It never removes anyone. It returns the users that became online.
func (s *Set) Merge(usernames []string, since Mark) []string {
	var added []string
	for _, name := range usernames {
		if name == "" {
			continue
		}
		e, known := s.users[name]
		if known && e.status == StatusOnline {
			continue
		}
		if known && e.seq > uint64(since) {
			// A live Leave newer than the listing wins.
			continue
		}
		s.users[name] = entry{status: StatusOnline, seq: e.seq}
		added = append(added, name)
	}
	return added
}

// Online reports whether username is online.
func (s *Set) Online(username string) bool {
	return s.users[username].status == StatusOnline
}

// Len returns the number of online users.
func (s *Set) Len() int {
	n := 0
	for _, e := range s.users {
		if e.status == StatusOnline {
			n++
		}
	}
	return n
}

// List returns the online users sorted by name.
func (s *Set) List() []string {
	out := make([]string, 0, len(s.users))
	for name, e := range s.users {
		if e.status == StatusOnline {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
