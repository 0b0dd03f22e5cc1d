// Package gallery holds generated result groups and exports their images.
package gallery

import (
	"sync"

	"github.com/existflow/joyful/internal/model"
)

// Results is the ordered list of result groups shown to the user.
// New groups go to the end; deleting one never touches the others.
type Results struct {
	mu     sync.Mutex
	groups []model.ResultGroup
}

// NewResults returns an empty list
func NewResults() *Results {
	return &Results{}
}

// Append adds a group after the existing ones
func (r *Results) Append(g model.ResultGroup) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = append(r.groups, g)
}

// Delete removes the group with id and reports whether it existed
func (r *Results) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, g := range r.groups {
		if g.ID == id {
			r.groups = append(r.groups[:i], r.groups[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every group
func (r *Results) Clear() {
	r.mu.Lock()
	r.groups = nil
	r.mu.Unlock()
}

// Groups returns a snapshot, oldest first
func (r *Results) Groups() []model.ResultGroup {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ResultGroup, len(r.groups))
	copy(out, r.groups)
	return out
}

// Get returns the group with id
func (r *Results) Get(id string) (model.ResultGroup, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.groups {
		if g.ID == id {
			return g, true
		}
	}
	return model.ResultGroup{}, false
}

// Len returns the number of groups
func (r *Results) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups)
}

// ShowPlaceholder is true while there is nothing to show
func (r *Results) ShowPlaceholder() bool {
	return r.Len() == 0
}
