package token

import (
	"errors"
	"fmt"

	"geopickup/internal/models"

	qrcode "github.com/skip2/go-qrcode"
)

const DefaultQRSize = 256

// RenderQRCode draws the token's deep link as a PNG of size x size pixels.
func RenderQRCode(t *models.PickupToken, size int) ([]byte, error) {
	if t == nil || t.QRCodeData == "" {
		return nil, errors.New("no QR data to render")
	}
	if size <= 0 {
		size = DefaultQRSize
	}
	png, err := qrcode.Encode(t.QRCodeData, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	return png, nil
}
