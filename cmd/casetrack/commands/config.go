package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"casetrack-backend/internal/calendar"
	"casetrack-backend/internal/components/telemetry"
	"casetrack-backend/internal/ecourts/gateway"
	"casetrack-backend/lib/configutil"
	configlibsql "casetrack-backend/lib/configutil/libsql"

	"dario.cat/mergo"
)

type ArchiveConfig struct {
	// Dir is the badger directory, empty disables the archive.
	Dir string `json:"dir"`
	TTL string `json:"ttl"`
}

type EcourtsConfig struct {
	BaseURL           string  `json:"base_url"`
	CaptchaURL        string  `json:"captcha_url"`
	MaxAttempts       int     `json:"max_attempts"`
	RetryDelay        string  `json:"retry_delay"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	ConnectTimeout    string  `json:"connect_timeout"`
	ReadTimeout       string  `json:"read_timeout"`
	Tesseract         string  `json:"tesseract"`
	CaptchaRetries    int     `json:"captcha_retries"`
	CaptchaDelay      string  `json:"captcha_delay"`
	SessionTTL        string  `json:"session_ttl"`
}

type RefreshConfig struct {
	Hour     *int   `json:"hour"`
	Minute   int    `json:"minute"`
	Timezone string `json:"timezone"`
	Pacing   string `json:"pacing"`
	Workers  int64  `json:"workers"`
	Enabled  *bool  `json:"enabled"`
}

type CalendarConfig struct {
	Smtp calendar.SmtpConfig `json:"smtp"`
	To   []string            `json:"to"`
}

type Config struct {
	Database configlibsql.Struct  `json:"database"`
	Archive  ArchiveConfig        `json:"archive"`
	Ecourts  EcourtsConfig        `json:"ecourts"`
	Refresh  RefreshConfig        `json:"refresh"`
	Calendar CalendarConfig       `json:"calendar"`
	Otlp     telemetry.OtlpConfig `json:"otlp"`
}

func defaultConfig() Config {
	enabled := true
	hour := 3
	return Config{
		Database: configlibsql.Struct{File: "casetrack.db"},
		Archive:  ArchiveConfig{TTL: "720h"},
		Ecourts: EcourtsConfig{
			BaseURL:           gateway.DefaultBaseURL,
			CaptchaURL:        gateway.DefaultCaptchaURL,
			MaxAttempts:       3,
			RetryDelay:        "1s",
			RequestsPerSecond: 2,
			ConnectTimeout:    "5s",
			ReadTimeout:       "10s",
			Tesseract:         "tesseract",
			CaptchaRetries:    100,
			CaptchaDelay:      "200ms",
			SessionTTL:        "15m",
		},
		Refresh: RefreshConfig{
			Hour:     &hour,
			Timezone: "Asia/Kolkata",
			Pacing:   "2s",
			Workers:  2,
			Enabled:  &enabled,
		},
	}
}

// LoadConfig reads name with its local overrides and fills unset fields with the
// defaults. A missing file means all defaults.
func LoadConfig(name string) (Config, error) {
	cfg, err := configutil.ReadRecursively[Config](name)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config %s: %w", name, err)
	}
	err = mergo.Merge(&cfg, defaultConfig())
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	for _, d := range []struct {
		name  string
		value string
	}{
		{"archive.ttl", c.Archive.TTL},
		{"ecourts.retry_delay", c.Ecourts.RetryDelay},
		{"ecourts.connect_timeout", c.Ecourts.ConnectTimeout},
		{"ecourts.read_timeout", c.Ecourts.ReadTimeout},
		{"ecourts.captcha_delay", c.Ecourts.CaptchaDelay},
		{"ecourts.session_ttl", c.Ecourts.SessionTTL},
		{"refresh.pacing", c.Refresh.Pacing},
	} {
		_, err := time.ParseDuration(d.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.name, err))
		}
	}
	if *c.Refresh.Hour < 0 || *c.Refresh.Hour > 23 {
		errs = append(errs, fmt.Errorf("refresh.hour: %d is not an hour of the day", *c.Refresh.Hour))
	}
	if c.Refresh.Minute < 0 || c.Refresh.Minute > 59 {
		errs = append(errs, fmt.Errorf("refresh.minute: %d is not a minute", c.Refresh.Minute))
	}
	_, err := time.LoadLocation(c.Refresh.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("refresh.timezone: %w", err))
	}
	return errors.Join(errs...)
}

// duration is only called on validated configs.
func duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}
