package cliconfig

import (
	"sort"
	"sync"
)

// ListMode selects how the group list is interpreted.
type ListMode string

const (
	ModeWhitelist ListMode = "whitelist"
	ModeBlacklist ListMode = "blacklist"
)

// GroupList is the mutable in-memory allow/deny set edited by the
// management endpoint. It is never persisted; edits are lost on restart.
type GroupList struct {
	mu   sync.RWMutex
	mode ListMode
	ids  map[int64]struct{}
}

// NewGroupList creates a list with the given mode and initial members.
// An unrecognized mode falls back to whitelist.
func NewGroupList(mode ListMode, ids []int64) *GroupList {
	if mode != ModeWhitelist && mode != ModeBlacklist {
		mode = ModeWhitelist
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return &GroupList{mode: mode, ids: set}
}

// Mode returns the list interpretation mode.
func (g *GroupList) Mode() ListMode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mode
}

// Allowed reports whether messages from the group pass the list.
func (g *GroupList) Allowed(id int64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, present := g.ids[id]
	if g.mode == ModeBlacklist {
		return !present
	}
	return present
}

// Add inserts a group. Returns false if it was already listed.
func (g *GroupList) Add(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.ids[id]; exists {
		return false
	}
	g.ids[id] = struct{}{}
	return true
}

// Remove deletes a group. Returns false if it was not listed.
func (g *GroupList) Remove(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.ids[id]; !exists {
		return false
	}
	delete(g.ids, id)
	return true
}

// IDs returns the listed groups in ascending order.
func (g *GroupList) IDs() []int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]int64, 0, len(g.ids))
	for id := range g.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
