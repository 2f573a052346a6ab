package commands

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"casetrack-backend/internal/archive"
	"casetrack-backend/internal/calendar"
	"casetrack-backend/internal/components/chrono"
	"casetrack-backend/internal/components/retry"
	"casetrack-backend/internal/components/telemetry"
	"casetrack-backend/internal/ecourts"
	"casetrack-backend/internal/ecourts/captcha"
	"casetrack-backend/internal/ecourts/client"
	"casetrack-backend/internal/ecourts/gateway"
	"casetrack-backend/internal/store"
	"casetrack-backend/internal/tracker"

	"github.com/spf13/cobra"
)

// env holds everything a command needs, built from the config.
type env struct {
	cfg      Config
	tel      telemetry.API
	location *time.Location
	time     chrono.TimeAPI
	otel     telemetry.Otel

	db      *sql.DB
	store   *store.Store
	archive *archive.Archive
	solver  gateway.CaptchaSolver
	pool    *client.Pool
	tracker *tracker.Tracker
}

func newEnv(ctx context.Context, cfg Config) (e *env, err error) {
	e = &env{cfg: cfg, tel: telemetry.SlogAPI{}}
	defer func() {
		if err != nil {
			e.Close()
		}
	}()

	e.otel, err = telemetry.SetupOtel(ctx, "casetrack", cfg.Otlp)
	if err != nil {
		return nil, err
	}

	e.location, err = time.LoadLocation(cfg.Refresh.Timezone)
	if err != nil {
		return nil, err
	}
	e.time = chrono.NewStandardTime(e.location)

	e.db, err = cfg.Database.OpenDB()
	if err != nil {
		return nil, err
	}
	e.store, err = store.Open(ctx, e.db, e.time, e.tel)
	if err != nil {
		return nil, err
	}

	if cfg.Archive.Dir != "" {
		e.archive, err = archive.Open(archive.Options{
			Dir:     cfg.Archive.Dir,
			BaseURL: cfg.Ecourts.BaseURL,
			TTL:     duration(cfg.Archive.TTL),
		})
		if err != nil {
			return nil, err
		}
	}

	ocr, err := captcha.NewTesseract(cfg.Ecourts.Tesseract)
	if err != nil {
		// captcha operations fail with ErrCaptchaUnavailable, the rest still work
		slog.Warn("captcha solving disabled", "err", err)
	} else {
		e.solver = captcha.NewSolver(ocr, captcha.Options{
			Attempts: cfg.Ecourts.CaptchaRetries,
			Delay:    duration(cfg.Ecourts.CaptchaDelay),
		}, e.tel)
	}

	e.pool = client.NewPool(64, duration(cfg.Ecourts.SessionTTL), e.newClient)

	var cal calendar.Calendar = calendar.Noop{}
	if cfg.Calendar.Smtp.Server != "" {
		cal = calendar.NewEmail(calendar.EmailOptions{
			Smtp: cfg.Calendar.Smtp,
			To:   cfg.Calendar.To,
		}, nil, e.time, e.tel)
	}

	options := tracker.DefaultOptions()
	options.Pacing = duration(cfg.Refresh.Pacing)
	options.Workers = cfg.Refresh.Workers
	e.tracker, err = tracker.New(e.store, tracker.PoolSource(e.pool), cal, e.time, options, e.tel)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (e *env) newClient(court ecourts.Court) (*client.Client, error) {
	opts := gateway.DefaultOptions()
	opts.BaseURL = e.cfg.Ecourts.BaseURL
	opts.CaptchaURL = e.cfg.Ecourts.CaptchaURL
	opts.ConnectTimeout = duration(e.cfg.Ecourts.ConnectTimeout)
	opts.ReadTimeout = duration(e.cfg.Ecourts.ReadTimeout)
	opts.RequestsPerSecond = e.cfg.Ecourts.RequestsPerSecond
	opts.Retry = retry.Policy{
		Attempts: e.cfg.Ecourts.MaxAttempts,
		Delay:    duration(e.cfg.Ecourts.RetryDelay),
	}
	opts.Solver = e.solver

	var documents client.DocumentArchive
	if e.archive != nil {
		opts.Recorder = e.archive
		documents = e.archive
	}

	gw, err := gateway.New(court, opts, e.tel)
	if err != nil {
		return nil, err
	}
	return client.New(gw, documents, e.tel), nil
}

func (e *env) Close() {
	var errs []error
	if e.archive != nil {
		errs = append(errs, e.archive.Close())
	}
	if e.db != nil {
		errs = append(errs, e.db.Close())
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	errs = append(errs, e.otel.Shutdown(ctx))

	err := errors.Join(errs...)
	if err != nil {
		slog.Warn("failed to close cleanly", "err", err)
	}
}

// withEnv loads the config and runs fn with a fresh env.
func withEnv(fn func(ctx context.Context, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		e, err := newEnv(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(cmd.Context(), e, args)
	}
}
