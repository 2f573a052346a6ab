package captcha

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strings"

	"casetrack-backend/internal/ecourts"

	"github.com/disintegration/imaging"
)

// charWhitelist is every character a challenge is drawn from.
const charWhitelist = "abcdefghijklmnopqrstuvwxyz0123456789"

// OCR recognizes the single word in an image.
type OCR interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// Tesseract runs the tesseract cli.
type Tesseract struct {
	path string
}

// NewTesseract resolves binary on PATH, a missing binary makes captcha solving
// unavailable.
func NewTesseract(binary string) (Tesseract, error) {
	if binary == "" {
		binary = "tesseract"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return Tesseract{}, fmt.Errorf("%w: %w", ecourts.ErrCaptchaUnavailable, err)
	}
	return Tesseract{path: path}, nil
}

func (t Tesseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	f, err := os.CreateTemp("", "captcha-*.png")
	if err != nil {
		return "", err
	}
	defer os.Remove(f.Name())

	err = imaging.Encode(f, img, imaging.PNG)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("write challenge: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(
		ctx, t.path,
		f.Name(), "stdout",
		"--oem", "1",
		"--psm", "8",
		"-c", "tessedit_char_whitelist="+charWhitelist,
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: tesseract: %w: %s", ecourts.ErrCaptcha, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
