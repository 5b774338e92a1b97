package scheduler

import (
	"sync"
	"time"

	"github.com/korjavin/sanbot/database"
	"github.com/rs/zerolog/log"
)

const (
	neverTakenText = "You haven't taken the SAN assessment yet. Send /begin to see where you stand."
	takeAgainText  = "It's time to check in again. Send /begin to retake the SAN assessment."
)

// Sender delivers a reminder to one user. Implemented by the bot.
type Sender interface {
	Send(userID int64, text string) error
}

// Scheduler periodically reminds every registered user to take the
// assessment. It only reads user and result state and never holds a lock
// the message-handling path could wait on.
type Scheduler struct {
	db       *database.DB
	sender   Sender
	interval time.Duration

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// New creates a scheduler that fires every interval once started.
func New(db *database.DB, sender Sender, interval time.Duration) *Scheduler {
	return &Scheduler{
		db:       db,
		sender:   sender,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the reminder loop.
func (s *Scheduler) Start() {
	log.Info().Dur("interval", s.interval).Msg("starting reminder scheduler")
	go s.run()
}

// Stop halts the loop and waits for the current firing, if any, to finish.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
	log.Info().Msg("reminder scheduler stopped")
}

func (s *Scheduler) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Broadcast()
		case <-s.stop:
			return
		}
	}
}

// Broadcast sends one reminder to every registered user. A failure for one
// user is logged and skipped; the rest of the broadcast continues.
func (s *Scheduler) Broadcast() {
	users, err := s.db.ListUsers()
	if err != nil {
		log.Error().Err(err).Msg("reminder: failed to list users")
		return
	}

	for _, user := range users {
		_, taken, err := s.db.LatestResultAt(user.ID)
		if err != nil {
			log.Error().Err(err).Int64("user_id", user.ID).Msg("reminder: failed to look up results")
			continue
		}

		text := takeAgainText
		if !taken {
			text = neverTakenText
		}

		if err := s.sender.Send(user.ID, text); err != nil {
			log.Warn().Err(err).Int64("user_id", user.ID).Msg("reminder: delivery failed")
		}
	}
}
