// Package captcha solves the portal's image challenges.
package captcha

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"casetrack-backend/internal/components/assert"
	"casetrack-backend/internal/components/retry"
	"casetrack-backend/internal/components/telemetry"
	"casetrack-backend/internal/ecourts"
	"casetrack-backend/internal/ecourts/gateway"

	"github.com/disintegration/imaging"
)

const report_solver_solve = "solver.solve"

// TokenLength is the only length of a valid token.
const TokenLength = 5

type Options struct {
	// Attempts is the solve budget, each attempt fetches a new challenge.
	Attempts int
	Delay    time.Duration
}

func DefaultOptions() Options {
	return Options{
		Attempts: 100,
		Delay:    200 * time.Millisecond,
	}
}

// Solver implements gateway.CaptchaSolver.
type Solver struct {
	ocr    OCR
	policy retry.Policy
	tel    telemetry.API
}

func NewSolver(ocr OCR, opts Options, tel telemetry.API) *Solver {
	assert.NotNil(ocr)
	assert.NotNil(tel)
	return &Solver{
		ocr: ocr,
		policy: retry.Policy{
			Attempts:  opts.Attempts,
			Delay:     opts.Delay,
			Retryable: retry.Any(ecourts.ErrCaptcha, ecourts.ErrTransient),
		},
		tel: telemetry.NewScopedAPI("captcha", tel),
	}
}

func (s *Solver) Solve(ctx context.Context, src gateway.ImageSource) (string, error) {
	var token string
	err := s.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		var err error
		token, err = s.attempt(ctx, src)
		if err != nil {
			s.tel.ReportDebug("attempt failed", attempt, err)
		}
		return err
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			err = &ecourts.CaptchaFailureError{Attempts: exhausted.Attempts, Last: exhausted.Last}
		}
		s.tel.ReportWarning(report_solver_solve, err)
		return "", err
	}
	return token, nil
}

func (s *Solver) attempt(ctx context.Context, src gateway.ImageSource) (string, error) {
	raw, err := src.CaptchaImage(ctx)
	if err != nil {
		return "", err
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: decode challenge: %w", ecourts.ErrCaptcha, err)
	}

	text, err := s.ocr.Recognize(ctx, Preprocess(img))
	if err != nil {
		return "", err
	}
	if len(text) != TokenLength {
		return "", fmt.Errorf("%w: recognized %d characters '%s'", ecourts.ErrCaptcha, len(text), text)
	}
	return text, nil
}
