package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const configFile = "data/config.yaml"

const telegramTokenEnv = "TELEGRAM_TOKEN"

type config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	App       AppConfig       `yaml:"app"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Memcached MemcachedConfig `yaml:"memcached"`
	API       APIConfig       `yaml:"api"`
}

type Service struct {
	config config
}

func New() (*Service, error) {
	s := &Service{}

	// secrets live in .env, everything else in the yaml file
	_ = godotenv.Load()

	rawYAML, err := os.ReadFile(configFile)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}

	err = yaml.Unmarshal(rawYAML, &s.config)
	if err != nil {
		return nil, errors.Wrap(err, "parsing yaml")
	}

	if token := os.Getenv(telegramTokenEnv); token != "" {
		s.config.Telegram.ApiToken = token
	}

	return s, nil
}

func (s *Service) Telegram() *TelegramConfig {
	return &s.config.Telegram
}

func (s *Service) App() *AppConfig {
	return &s.config.App
}

func (s *Service) Schedule() *ScheduleConfig {
	return &s.config.Schedule
}

func (s *Service) Postgres() *PostgresConfig {
	return &s.config.Postgres
}

func (s *Service) Kafka() *KafkaConfig {
	return &s.config.Kafka
}

func (s *Service) Memcached() *MemcachedConfig {
	return &s.config.Memcached
}

func (s *Service) API() *APIConfig {
	return &s.config.API
}
