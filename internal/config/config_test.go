package config

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FillsDefaults(t *testing.T) {
	s, err := Parse([]byte("telegram:\n  token: abc\n"))
	require.NoError(t, err)

	assert.Equal(t, "abc", s.Telegram().Token())
	assert.Equal(t, 60, s.Telegram().UpdateTimeout())
	assert.Equal(t, "₹", s.App().CurrencySymbol())
	assert.Equal(t, SeriesYearMonth, s.App().SeriesMode())
	assert.Equal(t, BackendMemory, s.Storage().Kind())
	assert.Equal(t, ":8080", s.Server().Addr())
	assert.False(t, s.Kafka().Enabled())
	assert.False(t, s.Memcached().Enabled())
}

func TestParse_EnvOverridesSecrets(t *testing.T) {
	t.Setenv(telegramTokenEnvKey, "from-env")
	t.Setenv(postgresPasswordEnvKey, "secret")

	raw := `
telegram:
  token: from-file
storage:
  backend: postgres
  postgres:
    host: db
    db: tracker
    password: from-file
`
	s, err := Parse([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "from-env", s.Telegram().Token())
	assert.Equal(t, "secret", s.Postgres().Password())
	assert.Equal(t, "db", s.Postgres().Host())
}

func TestParse_RejectsUnknownValues(t *testing.T) {
	cases := map[string]string{
		"series":   "app:\n  series-mode: weekly\n",
		"zone":     "app:\n  time-zone: Mars/Olympus\n",
		"backend":  "storage:\n  backend: mongo\n",
		"postgres": "storage:\n  backend: postgres\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestValidate_ErrorsCarryStack(t *testing.T) {
	type stackTracer interface {
		StackTrace() errors.StackTrace
	}

	cases := map[string]error{
		"series":  (&AppConfig{Series: "weekly", TimeZone: defaultTimeZone}).validate(),
		"zone":    (&AppConfig{Series: SeriesYearMonth, TimeZone: "Mars/Olympus"}).validate(),
		"backend": (&StorageConfig{Backend: "mongo"}).validate(),
		"sqlite":  (&StorageConfig{Backend: BackendSqlite}).validate(),
	}
	for name, err := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, err)
			_, ok := errors.Cause(err).(stackTracer)
			assert.True(t, ok)
		})
	}
}

func TestAppConfig_Location(t *testing.T) {
	app := AppConfig{TimeZone: "UTC"}
	assert.Equal(t, time.UTC, app.Location())

	app.TimeZone = "Nowhere/Else"
	assert.Equal(t, time.UTC, app.Location())
}
