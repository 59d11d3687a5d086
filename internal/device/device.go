// Package device manages the installation's device identifier, the opaque
// token attached to every outbound sync record so pulls can tell local
// pushes from remote ones.
package device

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"

	"github.com/bookedly/replica/internal/store"
)

const idKey = "device_id"

// Ensure returns the installation's device identifier, generating and
// persisting one on first use. The identifier is never rotated for the
// lifetime of the installation.
func Ensure(ctx context.Context, kv store.KV) (string, error) {
	key := store.Key(idKey, "")

	id, err := kv.Get(ctx, key)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !errors.Is(err, store.ErrKeyNotFound) {
		return "", fmt.Errorf("failed to read device id: %w", err)
	}

	id, err = generate()
	if err != nil {
		return "", err
	}

	if err := kv.Set(ctx, key, id); err != nil {
		return "", fmt.Errorf("failed to persist device id: %w", err)
	}

	log.Info().Str("device_id", id).Msg("device identifier created")

	return id, nil
}

// generate builds a Base58-encoded 16-byte random token.
func generate() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate device id: %w", err)
	}

	return base58.Encode(buf), nil
}
