package chat

import (
	"maps"
	"sort"
	"time"

	"github.com/nfrund/chatroom/internal/domain"
)

// Typing is the current typing indicator.
type Typing struct {
	Username  string
	ExpiresAt time.Time
}

// Snapshot is an immutable copy of the session state.
type Snapshot struct {
	State    State
	Username string
	// Online users, sorted.
	Online []string
	// Messages of the group channel in arrival order, with unique ids.
	Messages []domain.ChatEvent
	Typing   *Typing
	Unread   map[string]int
	// Open conversations, sorted.
	Open []string
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:    m.state,
		Username: m.username(),
		Online:   m.presence.List(),
		Messages: append([]domain.ChatEvent(nil), m.messages...),
		Unread:   maps.Clone(m.unread),
		Open:     make([]string, 0, len(m.open)),
	}
	if m.typing != nil {
		t := *m.typing
		snap.Typing = &t
	}
	for partner := range m.open {
		snap.Open = append(snap.Open, partner)
	}
	sort.Strings(snap.Open)
	return snap
}

// Watch returns a channel that receives the latest snapshot after every
// change. Slow readers only miss intermediate snapshots, never the latest.
// The current snapshot is available immediately. The channel is closed by
// cancel or by Close.
func (m *Manager) Watch() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	snap := m.snapshotLocked()
	closed := m.closed
	m.mu.Unlock()

	ch <- snap
	if closed {
		close(ch)
		return ch, func() {}
	}

	id := m.nextWatcher
	m.nextWatcher++
	m.watchers[id] = ch

	cancel := func() {
		m.notifyMu.Lock()
		defer m.notifyMu.Unlock()
		if c, ok := m.watchers[id]; ok {
			delete(m.watchers, id)
			close(c)
		}
	}
	return ch, cancel
}

// notify delivers the current snapshot to every watcher.
func (m *Manager) notify() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	snap := m.snapshotLocked()
	online := m.presence.Len()
	m.mu.Unlock()

	m.metrics.onlineUsers.Set(float64(online))
	for _, ch := range m.watchers {
		offer(ch, snap)
	}
}

// closeWatchers sends the final snapshot and closes every watcher.
func (m *Manager) closeWatchers() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	for id, ch := range m.watchers {
		offer(ch, snap)
		close(ch)
		delete(m.watchers, id)
	}
}

// offer replaces any pending snapshot in ch with snap.
func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
