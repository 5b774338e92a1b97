package session

import (
	"sync"

	"github.com/korjavin/sanbot/survey"
)

// State is the conversational state of one user. Idle is both the initial
// state and the resting state between activities.
type State int

const (
	StateIdle State = iota
	StateRegistering
	StateAnswering
	StateAwaitingFeedback
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRegistering:
		return "registering"
	case StateAnswering:
		return "answering"
	case StateAwaitingFeedback:
		return "awaiting_feedback"
	}
	return "unknown"
}

// Entry is the mutable per-user record: the conversation state tag and the
// in-progress survey session, if any. Access it only through Repository.Do.
type Entry struct {
	State  State
	Survey *survey.Session

	mu sync.Mutex
}

// Reset clears the survey and returns the entry to idle. Finalization calls
// this on success and on failure alike, so a session never dangles.
func (e *Entry) Reset() {
	e.State = StateIdle
	e.Survey = nil
}

// Repository owns all per-user conversation state. Operations for one user
// id are serialized through that user's lock; operations for different users
// only contend on the brief map lookup.
type Repository struct {
	mu      sync.Mutex
	entries map[int64]*Entry
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{entries: make(map[int64]*Entry)}
}

// Do runs fn with exclusive access to the user's entry, creating an idle
// entry on first use. fn must not call back into the repository for the
// same user.
func (r *Repository) Do(userID int64, fn func(*Entry)) {
	r.mu.Lock()
	entry, ok := r.entries[userID]
	if !ok {
		entry = &Entry{}
		r.entries[userID] = entry
	}
	r.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	fn(entry)
}
