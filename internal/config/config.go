package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigFile = "data/config.yaml"
	configFileEnvKey  = "CONFIG_FILE"

	telegramTokenEnvKey    = "TELEGRAM_TOKEN"
	postgresPasswordEnvKey = "POSTGRES_PASSWORD"
)

type config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	App       AppConfig       `yaml:"app"`
	Storage   StorageConfig   `yaml:"storage"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Memcached MemcachedConfig `yaml:"memcached"`
	Server    ServerConfig    `yaml:"server"`
	Grpc      GrpcConfig      `yaml:"grpc"`
	Jaeger    JaegerConfig    `yaml:"jaeger"`
}

type Service struct {
	config config
}

// New reads the YAML config file (CONFIG_FILE or data/config.yaml) and then
// applies secrets from the environment. A .env file is loaded first if present.
func New() (*Service, error) {
	_ = godotenv.Load()

	path := os.Getenv(configFileEnvKey)
	if path == "" {
		path = defaultConfigFile
	}

	rawYAML, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}
	return Parse(rawYAML)
}

// Parse builds a Service from raw YAML, filling defaults and environment overrides.
func Parse(rawYAML []byte) (*Service, error) {
	s := &Service{config: defaults()}

	err := yaml.Unmarshal(rawYAML, &s.config)
	if err != nil {
		return nil, errors.Wrap(err, "parsing yaml")
	}

	if token := os.Getenv(telegramTokenEnvKey); token != "" {
		s.config.Telegram.ApiToken = token
	}
	if pswd := os.Getenv(postgresPasswordEnvKey); pswd != "" {
		s.config.Storage.Postgres.Pswd = pswd
	}

	if err = s.validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	return s, nil
}

func defaults() config {
	return config{
		App: AppConfig{
			Symbol:       defaultCurrencySymbol,
			TimeZone:     defaultTimeZone,
			Series:       SeriesYearMonth,
			ReportLayout: defaultReportLayout,
		},
		Storage: StorageConfig{
			Backend: BackendMemory,
			Sqlite:  SqliteConfig{DBPath: defaultSqlitePath},
		},
		Server: ServerConfig{Address: defaultServerAddr},
		Grpc:   GrpcConfig{Port: defaultGrpcPort, Addr: defaultGrpcAddr},
		Jaeger: JaegerConfig{Service: defaultJaegerService},
	}
}

func (s *Service) validate() error {
	if err := s.config.App.validate(); err != nil {
		return err
	}
	return s.config.Storage.validate()
}

func (s *Service) Telegram() *TelegramConfig {
	return &s.config.Telegram
}

func (s *Service) App() *AppConfig {
	return &s.config.App
}

func (s *Service) Storage() *StorageConfig {
	return &s.config.Storage
}

func (s *Service) Postgres() *PostgresConfig {
	return &s.config.Storage.Postgres
}

func (s *Service) Sqlite() *SqliteConfig {
	return &s.config.Storage.Sqlite
}

func (s *Service) Kafka() *KafkaConfig {
	return &s.config.Kafka
}

func (s *Service) Memcached() *MemcachedConfig {
	return &s.config.Memcached
}

func (s *Service) Server() *ServerConfig {
	return &s.config.Server
}

func (s *Service) Grpc() *GrpcConfig {
	return &s.config.Grpc
}

func (s *Service) Jaeger() *JaegerConfig {
	return &s.config.Jaeger
}
