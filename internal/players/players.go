package players

import (
	"sync"

	"github.com/ultikits/invbackup/internal/snapshot"
)

// Options selects which optional sections to include when reading or
// applying a snapshot. The primary inventory is always included.
type Options struct {
	Armor      bool
	Enderchest bool
	Exp        bool
}

// PlayerInfo is the positional context captured alongside a backup. It is
// display-only on the record and may go stale.
type PlayerInfo struct {
	UUID     string
	Name     string
	World    string
	X, Y, Z  float64
	ExpLevel int
}

// LiveState is a handle onto one present player's mutable state. The backup
// engine has no knowledge of how the host exposes that state; it only reads
// sections into a snapshot and writes them back wholesale.
type LiveState interface {
	Info() (PlayerInfo, error)

	// ReadSections captures the player's current state. Sections excluded
	// by opts are left empty in the returned content.
	ReadSections(opts Options) (*snapshot.Content, error)

	// WriteSections replaces the player's state with the snapshot. The
	// destination sections are cleared and overwritten, never merged.
	WriteSections(c *snapshot.Content, opts Options) error
}

// Registry enumerates currently-present players.
type Registry interface {
	Get(uuid string) (LiveState, bool)
	Online() []LiveState
}

// MemoryRegistry is a Registry backed by a map, for embedded hosts and
// tests. Safe for concurrent use.
type MemoryRegistry struct {
	mu      sync.RWMutex
	players map[string]LiveState
}

// NewMemoryRegistry creates an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{players: make(map[string]LiveState)}
}

// Add registers a player as present under the given UUID.
func (r *MemoryRegistry) Add(uuid string, p LiveState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[uuid] = p
}

// Remove marks a player as no longer present.
func (r *MemoryRegistry) Remove(uuid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, uuid)
}

// Get returns the live state for a present player.
func (r *MemoryRegistry) Get(uuid string) (LiveState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[uuid]
	return p, ok
}

// Online returns all present players.
func (r *MemoryRegistry) Online() []LiveState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]LiveState, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	return out
}
