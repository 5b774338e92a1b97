package session

import (
	"sync"
	"testing"

	"github.com/korjavin/sanbot/survey"
)

func TestDoCreatesIdleEntry(t *testing.T) {
	repo := NewRepository()

	repo.Do(1, func(e *Entry) {
		if e.State != StateIdle {
			t.Errorf("new entry state = %v, want idle", e.State)
		}
		if e.Survey != nil {
			t.Error("new entry has a survey session")
		}
	})
}

func TestDoReturnsSameEntry(t *testing.T) {
	repo := NewRepository()

	repo.Do(1, func(e *Entry) {
		e.State = StateAnswering
		e.Survey = survey.NewSession()
	})
	repo.Do(1, func(e *Entry) {
		if e.State != StateAnswering || e.Survey == nil {
			t.Errorf("entry not preserved across Do calls: state=%v survey=%v", e.State, e.Survey)
		}
	})
}

func TestUsersAreIsolated(t *testing.T) {
	repo := NewRepository()

	repo.Do(1, func(e *Entry) {
		e.State = StateAnswering
		e.Survey = survey.NewSession()
		e.Survey.Answers[1] = 3
	})

	repo.Do(2, func(e *Entry) {
		if e.State != StateIdle || e.Survey != nil {
			t.Errorf("second user inherited first user's state: %v", e.State)
		}
	})
}

func TestReset(t *testing.T) {
	repo := NewRepository()

	repo.Do(1, func(e *Entry) {
		e.State = StateAnswering
		e.Survey = survey.NewSession()
		e.Reset()
		if e.State != StateIdle || e.Survey != nil {
			t.Errorf("Reset left state=%v survey=%v", e.State, e.Survey)
		}
	})
}

func TestSameUserOperationsAreSerialized(t *testing.T) {
	repo := NewRepository()
	const workers = 100

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			repo.Do(1, func(e *Entry) {
				if e.Survey == nil {
					e.Survey = survey.NewSession()
				}
				// Unsynchronized read-modify-write; only the per-user lock
				// makes this safe.
				e.Survey.CurrentIndex++
			})
		}()
	}
	wg.Wait()

	repo.Do(1, func(e *Entry) {
		if e.Survey.CurrentIndex != workers {
			t.Errorf("index = %d, want %d", e.Survey.CurrentIndex, workers)
		}
	})
}

func TestStateStrings(t *testing.T) {
	// Exhaustiveness check: every state has a distinct readable name.
	states := []State{StateIdle, StateRegistering, StateAnswering, StateAwaitingFeedback}
	seen := make(map[string]bool)
	for _, s := range states {
		name := s.String()
		if name == "unknown" {
			t.Errorf("state %d has no name", s)
		}
		if seen[name] {
			t.Errorf("duplicate state name %q", name)
		}
		seen[name] = true
	}
}
