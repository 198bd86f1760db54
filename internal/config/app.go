package config

import (
	"time"

	"github.com/pkg/errors"
)

const (
	defaultCurrencySymbol = "₹"
	defaultTimeZone       = "Local"
	defaultReportLayout   = "01.2006"

	SeriesYearMonth = "year-month"
	SeriesMonthOnly = "month-only"
)

type AppConfig struct {
	Symbol       string `yaml:"currency-symbol"`
	TimeZone     string `yaml:"time-zone"`
	Series       string `yaml:"series-mode"`
	ReportLayout string `yaml:"report-month-layout"`
}

func (s *AppConfig) CurrencySymbol() string {
	return s.Symbol
}

// Location falls back to UTC when the configured zone cannot be loaded.
func (s *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (s *AppConfig) SeriesMode() string {
	return s.Series
}

func (s *AppConfig) MonthLayout() string {
	return s.ReportLayout
}

func (s *AppConfig) validate() error {
	if s.Series != SeriesYearMonth && s.Series != SeriesMonthOnly {
		return errors.Errorf("unknown series mode %q", s.Series)
	}
	if _, err := time.LoadLocation(s.TimeZone); err != nil {
		return errors.Errorf("unknown time zone %q", s.TimeZone)
	}
	return nil
}
