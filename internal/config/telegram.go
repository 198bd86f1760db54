package config

const defaultUpdateTimeout = 60

type TelegramConfig struct {
	ApiToken       string `yaml:"token"`
	TimeoutSeconds int    `yaml:"update-timeout-seconds"`
}

func (t *TelegramConfig) Token() string {
	return t.ApiToken
}

func (t *TelegramConfig) UpdateTimeout() int {
	if t.TimeoutSeconds <= 0 {
		return defaultUpdateTimeout
	}
	return t.TimeoutSeconds
}
