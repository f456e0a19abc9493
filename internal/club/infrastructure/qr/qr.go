// Package qr renders check-in codes as PNG images.
package qr

import (
	"errors"
	"image/color"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the rendered edge length in pixels.
const DefaultSize = 256

var ErrEmptyPayload = errors.New("qr payload is empty")

// Level is the error-correction level.
type Level string

const (
	LevelLow     Level = "low"
	LevelMedium  Level = "medium"
	LevelHigh    Level = "high"
	LevelHighest Level = "highest"
)

func (l Level) recovery() qrcode.RecoveryLevel {
	switch l {
	case LevelLow:
		return qrcode.Low
	case LevelHigh:
		return qrcode.High
	case LevelHighest:
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

// Options controls rendering. The zero value gives a 256px black-on-white
// medium-level code with a quiet zone.
type Options struct {
	Size       int
	Level      Level
	Foreground color.Color
	Background color.Color
	NoMargin   bool
}

// Render encodes payload as a PNG.
func Render(payload string, opts Options) ([]byte, error) {
	if payload == "" {
		return nil, ErrEmptyPayload
	}

	code, err := qrcode.New(payload, opts.Level.recovery())
	if err != nil {
		return nil, err
	}
	if opts.Foreground != nil {
		code.ForegroundColor = opts.Foreground
	}
	if opts.Background != nil {
		code.BackgroundColor = opts.Background
	}
	code.DisableBorder = opts.NoMargin

	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}
	return code.PNG(size)
}
