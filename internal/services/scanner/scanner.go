// Package scanner turns what staff present at the gate (a photo of the
// parent's QR code, or a pasted credential) into the scanned string the
// token engine validates.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

type Mode string

const (
	ModeImage Mode = "image"
	ModeText  Mode = "text"
)

var (
	ErrNoCode      = errors.New("no QR code found in image")
	ErrEmptyInput  = errors.New("empty scan input")
	ErrUnsupported = errors.New("scan input not supported in this mode")
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeImage, "":
		return ModeImage, nil
	case ModeText:
		return ModeText, nil
	}
	return "", fmt.Errorf("unknown scanner mode %q", s)
}

// Accepts reports whether an input kind may be used under m. Image mode
// still takes typed codes as a fallback.
func (m Mode) Accepts(in Input) bool {
	switch in.(type) {
	case TextInput:
		return true
	case ImageInput:
		return m == ModeImage
	}
	return false
}

// Input is one scan source.
type Input interface {
	Read(ctx context.Context) (string, error)
}

// TextInput is a manually entered or pasted credential.
type TextInput struct {
	Text string
}

func NewTextInput(text string) TextInput { return TextInput{Text: text} }

func (in TextInput) Read(context.Context) (string, error) {
	s := strings.TrimSpace(in.Text)
	if s == "" {
		return "", ErrEmptyInput
	}
	return s, nil
}

// ImageInput decodes the first QR code in a PNG or JPEG image.
type ImageInput struct {
	r io.Reader
}

func NewImageInput(r io.Reader) ImageInput { return ImageInput{r: r} }

func (in ImageInput) Read(ctx context.Context) (string, error) {
	if in.r == nil {
		return "", ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	img, _, err := image.Decode(in.r)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("prepare bitmap: %w", err)
	}
	hints := map[gozxing.DecodeHintType]interface{}{gozxing.DecodeHintType_TRY_HARDER: true}
	result, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCode, err)
	}
	return result.GetText(), nil
}
