package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Keys of the key-value persistence surface.
const (
	KeyCheckIns        = "pickupCheckIns"
	keyCurrentTokenFmt = "currentPickupToken:%s"
)

// BlobVersion is the schema version written into every stored blob.
const BlobVersion = 1

var ErrUnsupportedBlobVersion = errors.New("unsupported blob version")

// CurrentTokenKey is where a user's current pickup token is kept.
func CurrentTokenKey(userID string) string {
	return fmt.Sprintf(keyCurrentTokenFmt, userID)
}

// KVStore stores JSON blobs under fixed keys. Get reports false when the key
// is absent.
type KVStore interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
}

type blobEnvelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// EncodeBlob wraps value in the versioned envelope.
func EncodeBlob(value interface{}) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal blob: %w", err)
	}
	return json.Marshal(blobEnvelope{Version: BlobVersion, Data: data})
}

// DecodeBlob unwraps a versioned envelope into dest. Blobs written before
// versioning (no envelope) are decoded as-is.
func DecodeBlob(raw []byte, dest interface{}) error {
	var env blobEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Version == 0 || env.Data == nil {
		if err := json.Unmarshal(raw, dest); err != nil {
			return fmt.Errorf("failed to unmarshal blob: %w", err)
		}
		return nil
	}
	if env.Version > BlobVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedBlobVersion, env.Version)
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal blob: %w", err)
	}
	return nil
}
