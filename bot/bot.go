package bot

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/korjavin/sanbot/config"
	"github.com/korjavin/sanbot/database"
	"github.com/korjavin/sanbot/models"
	"github.com/korjavin/sanbot/session"
	"github.com/korjavin/sanbot/survey"
	"github.com/rs/zerolog/log"
)

const (
	cmdStart    = "start"
	cmdBegin    = "begin"
	cmdRegister = "register"
	cmdFeedback = "feedback"
	cmdTrend    = "trend"
	cmdHelp     = "help"

	ratingPrefix   = "rate:"
	btnStartSurvey = "Start survey"

	trendLimit = 5
)

// telegramAPI is the part of tgbotapi.BotAPI the bot actually uses, so
// handler tests can substitute a fake transport.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// enricher generates interpretive text for results. Implemented by ai.Client.
type enricher interface {
	EnrichResult(ctx context.Context, wellBeing, activity, mood float64) (string, error)
	EnrichTrend(ctx context.Context, results []models.SurveyResult) (string, error)
}

// Bot wires the Telegram transport to the survey engine, the session
// repository and the stores.
type Bot struct {
	api       telegramAPI
	db        *database.DB
	ai        enricher
	engine    *survey.Engine // nil when the catalog failed to load
	sessions  *session.Repository
	aiTimeout time.Duration
}

// New creates a new bot instance. A catalog that fails to load is logged and
// leaves survey entry disabled; the rest of the bot keeps working.
func New(cfg *config.Config, db *database.DB, enrich enricher) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	botAPI.Debug = os.Getenv("DEBUG") == "true"

	b := &Bot{
		api:       botAPI,
		db:        db,
		ai:        enrich,
		sessions:  session.NewRepository(),
		aiTimeout: cfg.AITimeout,
	}

	catalog, err := survey.LoadCatalog(cfg.QuestionsPath)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.QuestionsPath).Msg("failed to load question catalog, survey entry disabled")
		return b, nil
	}
	engine, err := survey.NewEngine(catalog)
	if err != nil {
		log.Error().Err(err).Msg("failed to build survey engine, survey entry disabled")
		return b, nil
	}
	b.engine = engine
	log.Info().Int("questions", len(catalog)).Msg("question catalog loaded")

	return b, nil
}

// Start starts the bot and listens for updates. Each update is handled on
// its own goroutine; same-user ordering comes from the session repository.
func (b *Bot) Start() {
	log.Info().Msg("starting bot polling")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		update := update
		go b.handleUpdate(update)
	}
}

// Stop stops the update loop.
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered while handling update")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(update.Message)
	}
}

// Send implements scheduler.Sender. In private chats the chat id equals the
// user id.
func (b *Bot) Send(userID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(userID, text))
	return err
}

// sendMessage sends a text message, logging delivery failures.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}

// sendQuestion presents one paired-opposite item with the rating keyboard.
func (b *Bot) sendQuestion(chatID int64, q models.Question) {
	text := fmt.Sprintf("%d/%d: %s or %s?", q.Number, survey.CatalogSize, q.Positive, q.Negative)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = ratingKeyboard
	if _, err := b.api.Send(msg); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send question")
	}
}

// answerCallback acknowledges a callback query immediately to prevent
// "query is too old" errors.
func (b *Bot) answerCallback(callbackID string) {
	callback := tgbotapi.NewCallback(callbackID, "")
	if _, err := b.api.Request(callback); err != nil {
		log.Warn().Err(err).Msg("failed to answer callback query")
	}
}

var ratingKeyboard = buildRatingKeyboard()

func buildRatingKeyboard() tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for rating := -3; rating <= 3; rating++ {
		label := strconv.Itoa(rating)
		if rating > 0 {
			label = "+" + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", ratingPrefix, rating)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

var mainKeyboard = tgbotapi.NewReplyKeyboard(
	tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnStartSurvey)),
)
