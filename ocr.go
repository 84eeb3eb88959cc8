package efaktur

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// TextRecognizer turns an image into its text transcription. The pipeline
// depends only on this contract, so recognition engines can be swapped or
// mocked in tests.
type TextRecognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// enhanceForOCR prepares an image for text recognition: grayscale for
// contrast, sharpen so strokes stay readable, then mild contrast and
// brightness adjustments.
func enhanceForOCR(img image.Image) image.Image {
	out := imaging.Grayscale(img)
	out = imaging.Sharpen(out, 1.5)
	out = imaging.AdjustContrast(out, 20)
	out = imaging.AdjustBrightness(out, 5)
	return out
}

// TesseractRecognizer runs the tesseract CLI on a temporary PNG. It is the
// default recognizer; tesseract with the Indonesian language pack handles
// e-Faktur documents well.
type TesseractRecognizer struct {
	// Command is the tesseract binary, "tesseract" when empty.
	Command string
	// Languages is passed via -l, "eng+ind" when empty.
	Languages string
}

// NewTesseractRecognizer returns a recognizer using the tesseract binary from
// PATH and the eng+ind language packs.
func NewTesseractRecognizer() *TesseractRecognizer {
	return &TesseractRecognizer{}
}

func (r *TesseractRecognizer) command() string {
	if r.Command != "" {
		return r.Command
	}
	return "tesseract"
}

func (r *TesseractRecognizer) languages() string {
	if r.Languages != "" {
		return r.Languages
	}
	return "eng+ind"
}

// Recognize writes img to a temporary file and runs tesseract over it.
func (r *TesseractRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	if _, err := exec.LookPath(r.command()); err != nil {
		return "", fmt.Errorf("tesseract not available: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "efaktur-ocr")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	inputPath := filepath.Join(tmpDir, "page.png")
	f, err := os.Create(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create temp image: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write temp image: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.command(), inputPath, "stdout", "-l", r.languages())
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}
