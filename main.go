package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/korjavin/sanbot/ai"
	"github.com/korjavin/sanbot/bot"
	"github.com/korjavin/sanbot/config"
	"github.com/korjavin/sanbot/database"
	"github.com/korjavin/sanbot/logger"
	"github.com/korjavin/sanbot/scheduler"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(cfg.Env)
	log.Info().Msg("starting sanbot")

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	enricher := ai.New(cfg.DeepseekAPIKey, cfg.AITimeout)

	b, err := bot.New(cfg, db, enricher)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize bot")
	}

	reminders := scheduler.New(db, b, cfg.ReminderInterval)
	reminders.Start()

	go b.Start()
	log.Info().Msg("bot initialized successfully")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	reminders.Stop()
	b.Stop()
}
