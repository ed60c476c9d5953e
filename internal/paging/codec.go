// Package paging encodes cursor positions into opaque, tamper-proof tokens.
package paging

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrInvalidCursor is returned for tokens that cannot be decoded.
var ErrInvalidCursor = errors.New("invalid cursor")

// Position is the decoded content of a cursor token.
type Position struct {
	Offset int `json:"offset"`
}

// Codec encrypts and decrypts cursor tokens with a secret key.
type Codec struct {
	key    [32]byte
	logger *zap.Logger
}

// NewCodec creates a codec from a secret. An empty secret generates a
// random key, which makes tokens valid for the lifetime of the process only.
func NewCodec(secret string, logger *zap.Logger) (*Codec, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Codec{logger: logger}
	if secret == "" {
		if _, err := io.ReadFull(rand.Reader, c.key[:]); err != nil {
			return nil, fmt.Errorf("failed to generate cursor key: %w", err)
		}
		return c, nil
	}
	c.key = sha256.Sum256([]byte(secret))
	return c, nil
}

// Encode returns the token for a position.
func (c *Codec) Encode(pos Position) (string, error) {
	payload, err := json.Marshal(pos)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce for cursor: %w", err)
	}

	encrypted := secretbox.Seal(nonce[:], payload, &nonce, &c.key)
	return base64.RawURLEncoding.EncodeToString(encrypted), nil
}

// Decode returns the position stored in a token.
func (c *Codec) Decode(token string) (Position, error) {
	c.logger.Debug("decoding cursor", zap.String("token", token))

	encrypted, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	if len(encrypted) < nonceSize+secretbox.Overhead {
		return Position{}, fmt.Errorf("%w: expected at least %d bytes, got %d",
			ErrInvalidCursor, nonceSize+secretbox.Overhead, len(encrypted))
	}

	var nonce [nonceSize]byte
	copy(nonce[:], encrypted[:nonceSize])
	decrypted, ok := secretbox.Open(nil, encrypted[nonceSize:], &nonce, &c.key)
	if !ok {
		return Position{}, fmt.Errorf("%w: failed to decrypt", ErrInvalidCursor)
	}

	var pos Position
	if err := json.Unmarshal(decrypted, &pos); err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if pos.Offset < 0 {
		return Position{}, fmt.Errorf("%w: negative offset", ErrInvalidCursor)
	}
	return pos, nil
}
