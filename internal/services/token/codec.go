package token

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"geopickup/internal/models"
)

const (
	// Scheme is the deep-link prefix every QR credential starts with.
	Scheme = "geofenceschool://"

	validatorPath = "validator?token="

	// timestampLayout matches ISO-8601 UTC with millisecond precision.
	timestampLayout = "2006-01-02T15:04:05.000Z"
)

var tokenParamRe = regexp.MustCompile(`[?&]token=([^&]+)`)

// FormatTimestamp renders t the way the payload carries it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// EncodeURI serializes the payload into the deep-link credential:
// JSON, then standard base64, then percent-encoded as the token parameter.
func EncodeURI(p models.TokenPayload) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	raw := bytes.TrimRight(buf.Bytes(), "\n")
	encoded := base64.StdEncoding.EncodeToString(raw)
	return Scheme + validatorPath + url.QueryEscape(encoded), nil
}

// ExtractToken returns the base64 part of a scanned value. Deep links are
// URL-parsed first and fall back to a regex; anything else is taken as raw
// base64.
func ExtractToken(scanned string) string {
	scanned = strings.TrimSpace(scanned)
	if !strings.HasPrefix(scanned, Scheme) && !strings.Contains(scanned, validatorPath) {
		return scanned
	}

	u, err := url.Parse(strings.Replace(scanned, Scheme, "https://", 1))
	if err == nil {
		if param := u.Query().Get("token"); param != "" {
			// an unescaped '+' reads back as a space
			return strings.ReplaceAll(param, " ", "+")
		}
	}

	if m := tokenParamRe.FindStringSubmatch(scanned); m != nil {
		if unescaped, err := url.PathUnescape(m[1]); err == nil {
			return unescaped
		}
		return m[1]
	}
	return scanned
}

// DecodePayload base64-decodes and parses a token. It also returns the raw
// JSON bytes, which identify the credential.
func DecodePayload(tokenData string) (*models.TokenPayload, []byte, error) {
	raw, err := base64.StdEncoding.DecodeString(tokenData)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(tokenData, "="))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decode token: %w", err)
		}
	}
	var p models.TokenPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return &p, raw, nil
}

// Digest is the stable identity of a credential in the consumed-token registry.
func Digest(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func parseTimestamp(ts string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, ts)
}
