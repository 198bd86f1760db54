package config

import "github.com/pkg/errors"

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSqlite   = "sqlite"

	defaultSqlitePath = "data/tracker.db"
)

type StorageConfig struct {
	Backend  string         `yaml:"backend"`
	Postgres PostgresConfig `yaml:"postgres"`
	Sqlite   SqliteConfig   `yaml:"sqlite"`
}

func (s *StorageConfig) Kind() string {
	return s.Backend
}

func (s *StorageConfig) validate() error {
	switch s.Backend {
	case BackendMemory:
		return nil
	case BackendPostgres:
		if s.Postgres.Hostname == "" || s.Postgres.Db == "" {
			return errors.Errorf("postgres backend needs host and db")
		}
		return nil
	case BackendSqlite:
		if s.Sqlite.DBPath == "" {
			return errors.Errorf("sqlite backend needs a path")
		}
		return nil
	}
	return errors.Errorf("unknown storage backend %q", s.Backend)
}

type SqliteConfig struct {
	DBPath string `yaml:"path"`
}

func (s *SqliteConfig) Path() string {
	return s.DBPath
}
