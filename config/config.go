package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all the configuration for the application
type Config struct {
	Env              string        `env:"ENV" env-default:"local"`
	BotToken         string        `env:"BOT_TOKEN" env-required:"true"`
	DeepseekAPIKey   string        `env:"DEEPSEEK_API_KEY"`
	DatabasePath     string        `env:"DB_PATH" env-default:"./data/sanbot.db"`
	QuestionsPath    string        `env:"QUESTIONS_PATH" env-default:"assets/questions.json"`
	ReminderInterval time.Duration `env:"REMINDER_INTERVAL" env-default:"60m"`
	AITimeout        time.Duration `env:"AI_TIMEOUT" env-default:"60s"`
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
