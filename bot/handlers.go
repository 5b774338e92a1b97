package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/korjavin/sanbot/ai"
	"github.com/korjavin/sanbot/session"
	"github.com/korjavin/sanbot/survey"
	"github.com/rs/zerolog/log"
)

const (
	minNameLen = 2
	maxNameLen = 50
)

const (
	notUnderstoodText = "Sorry, I didn't understand that. Send /help to see what I can do."
	tryLaterText      = "Something went wrong on my side. Please try again later."
	unavailableText   = "The survey is currently unavailable. Please try again later."
	restartSurveyText = "I lost track of your survey. Please start over with /begin."
	ratingRangeText   = "Please rate the pair with one of the buttons, from -3 to +3."
	useButtonsText    = "Please use the buttons under the question to answer."

	welcomeText = `Hi! I run the SAN (well-being, activity, mood) assessment.

You'll be shown 30 pairs of opposite states and asked to rate each pair
from -3 to +3, where:
+3 — the first state describes you best
 0 — hard to say
-3 — the opposite state describes you best

Commands:
/begin — take the assessment
/register — register for periodic reminders
/trend — AI summary of your recent results
/feedback — leave feedback
/help — this message`
)

// handleMessage processes incoming messages
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	if message.From == nil {
		return
	}
	text := strings.TrimSpace(message.Text)
	log.Debug().Int64("user_id", message.From.ID).Str("text", text).Msg("received message")

	switch {
	case strings.HasPrefix(text, "/"+cmdStart):
		b.handleStart(message)
	case strings.HasPrefix(text, "/"+cmdHelp):
		b.handleStart(message)
	case strings.HasPrefix(text, "/"+cmdBegin), text == btnStartSurvey:
		b.handleBegin(message)
	case strings.HasPrefix(text, "/"+cmdRegister):
		b.handleRegister(message)
	case strings.HasPrefix(text, "/"+cmdFeedback):
		b.handleFeedback(message)
	case strings.HasPrefix(text, "/"+cmdTrend):
		b.handleTrend(message)
	default:
		b.handleText(message)
	}
}

// handleStart greets the user and shows the main keyboard.
func (b *Bot) handleStart(message *tgbotapi.Message) {
	msg := tgbotapi.NewMessage(message.Chat.ID, welcomeText)
	msg.ReplyMarkup = mainKeyboard
	if _, err := b.api.Send(msg); err != nil {
		log.Warn().Err(err).Int64("chat_id", message.Chat.ID).Msg("failed to send welcome message")
	}
}

// handleBegin starts a new survey if the user is idle and the catalog is
// available.
func (b *Bot) handleBegin(message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	b.sessions.Do(userID, func(e *session.Entry) {
		if e.State != session.StateIdle {
			b.sendMessage(chatID, notUnderstoodText)
			return
		}
		if b.engine == nil {
			b.sendMessage(chatID, unavailableText)
			return
		}

		e.State = session.StateAnswering
		e.Survey = survey.NewSession()

		q, ok := b.engine.NextQuestion(e.Survey)
		if !ok {
			// Empty progression cannot happen with a validated catalog.
			e.Reset()
			b.sendMessage(chatID, unavailableText)
			return
		}
		b.sendQuestion(chatID, q)
	})
}

// handleRegister moves an unregistered idle user into the registration
// conversation.
func (b *Bot) handleRegister(message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	b.sessions.Do(userID, func(e *session.Entry) {
		if e.State != session.StateIdle {
			b.sendMessage(chatID, notUnderstoodText)
			return
		}

		user, err := b.db.GetUser(userID)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("failed to look up user")
			b.sendMessage(chatID, tryLaterText)
			return
		}
		if user != nil {
			b.sendMessage(chatID, fmt.Sprintf("You are already registered as %s.", user.Name))
			return
		}

		e.State = session.StateRegistering
		b.sendMessage(chatID, fmt.Sprintf("What name should I call you? (%d-%d characters)", minNameLen, maxNameLen))
	})
}

// handleFeedback moves an idle user into the feedback conversation.
func (b *Bot) handleFeedback(message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	b.sessions.Do(userID, func(e *session.Entry) {
		if e.State != session.StateIdle {
			b.sendMessage(chatID, notUnderstoodText)
			return
		}
		e.State = session.StateAwaitingFeedback
		b.sendMessage(chatID, "I'm listening. Send me your feedback in one message.")
	})
}

// handleTrend runs trend enrichment over the user's recent results. This is
// a read-only query, so the session lane is held only for the state check.
func (b *Bot) handleTrend(message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	idle := false
	b.sessions.Do(userID, func(e *session.Entry) {
		idle = e.State == session.StateIdle
	})
	if !idle {
		b.sendMessage(chatID, notUnderstoodText)
		return
	}

	results, err := b.db.FetchRecent(userID, trendLimit)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to fetch recent results")
		b.sendMessage(chatID, tryLaterText)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.aiTimeout)
	defer cancel()

	text, err := b.ai.EnrichTrend(ctx, results)
	if errors.Is(err, ai.ErrNoResults) {
		b.sendMessage(chatID, "You have no completed assessments yet. Send /begin to take your first one.")
		return
	}
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("trend enrichment failed")
		b.sendMessage(chatID, "I couldn't analyze your results right now. Please try again later.")
		return
	}
	b.sendMessage(chatID, text)
}

// handleText routes free text by conversation state.
func (b *Bot) handleText(message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	b.sessions.Do(userID, func(e *session.Entry) {
		switch e.State {
		case session.StateRegistering:
			b.finishRegistration(chatID, userID, e, message.Text)
		case session.StateAwaitingFeedback:
			b.storeFeedback(chatID, userID, e, message.Text)
		case session.StateAnswering:
			b.sendMessage(chatID, useButtonsText)
		case session.StateIdle:
			b.sendMessage(chatID, notUnderstoodText)
		default:
			b.sendMessage(chatID, notUnderstoodText)
		}
	})
}

// finishRegistration validates the submitted name and persists the user.
// An invalid name re-prompts and leaves the state unchanged.
func (b *Bot) finishRegistration(chatID, userID int64, e *session.Entry, text string) {
	name := strings.TrimSpace(text)
	if n := utf8.RuneCountInString(name); n < minNameLen || n > maxNameLen {
		b.sendMessage(chatID, fmt.Sprintf("That name doesn't fit. Please send a name between %d and %d characters.", minNameLen, maxNameLen))
		return
	}

	if err := b.db.CreateUser(userID, name); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to create user")
		b.sendMessage(chatID, tryLaterText)
		return
	}

	e.State = session.StateIdle
	b.sendMessage(chatID, fmt.Sprintf("Nice to meet you, %s! I'll remind you to check in from time to time.", name))
}

// storeFeedback stores any text verbatim and returns the user to idle.
func (b *Bot) storeFeedback(chatID, userID int64, e *session.Entry, text string) {
	e.State = session.StateIdle

	if err := b.db.SaveFeedback(userID, text); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to save feedback")
		b.sendMessage(chatID, tryLaterText)
		return
	}
	b.sendMessage(chatID, "Thanks for the feedback!")
}

// handleCallback processes rating button presses.
func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	data := callback.Data
	if !strings.HasPrefix(data, ratingPrefix) {
		log.Debug().Str("data", data).Msg("ignoring unknown callback")
		return
	}
	rating, err := strconv.Atoi(strings.TrimPrefix(data, ratingPrefix))
	if err != nil {
		log.Debug().Str("data", data).Msg("ignoring malformed rating callback")
		return
	}

	b.answerCallback(callback.ID)

	userID := callback.From.ID
	chatID := callback.Message.Chat.ID

	var completed *survey.Scores
	b.sessions.Do(userID, func(e *session.Entry) {
		if e.State != session.StateAnswering || e.Survey == nil {
			// Typically a button press surviving a process restart.
			e.Reset()
			b.sendMessage(chatID, restartSurveyText)
			return
		}

		if err := b.engine.RecordAnswer(e.Survey, rating); err != nil {
			b.sendMessage(chatID, ratingRangeText)
			return
		}

		if q, ok := b.engine.NextQuestion(e.Survey); ok {
			b.sendQuestion(chatID, q)
			return
		}

		completed = b.finalize(chatID, userID, e)
	})

	// Enrichment runs outside the user's lane so a slow external call never
	// blocks the user's next messages.
	if completed != nil {
		b.enrichResult(chatID, userID, *completed)
	}
}

// finalize computes and durably stores the scores of a completed session.
// The session is cleared on every path; base scores are never contingent on
// enrichment.
func (b *Bot) finalize(chatID, userID int64, e *session.Entry) *survey.Scores {
	scores, err := b.engine.ComputeScores(e.Survey)
	e.Reset()
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to compute scores")
		b.sendMessage(chatID, restartSurveyText)
		return nil
	}

	if _, err := b.db.AppendResult(userID, scores.WellBeing, scores.Activity, scores.Mood); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to store result")
		b.sendMessage(chatID, tryLaterText)
		return nil
	}

	b.sendMessage(chatID, fmt.Sprintf(
		"Your results:\nWell-being: %.1f\nActivity: %.1f\nMood: %.1f\n\nThe norm is 5.0-5.5.",
		scores.WellBeing, scores.Activity, scores.Mood))

	return &scores
}

// enrichResult is the best-effort second phase: any failure is logged and
// swallowed, the stored scores stand on their own.
func (b *Bot) enrichResult(chatID, userID int64, scores survey.Scores) {
	ctx, cancel := context.WithTimeout(context.Background(), b.aiTimeout)
	defer cancel()

	text, err := b.ai.EnrichResult(ctx, scores.WellBeing, scores.Activity, scores.Mood)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("result enrichment failed")
		return
	}

	if err := b.db.AttachAnalysis(userID, text); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("failed to attach analysis")
	}
	b.sendMessage(chatID, text)
}
