// Package auth issues and verifies the identity tokens that carry the
// authenticated user id into the server.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// PASETO v4 requires a 256-bit (32-byte) symmetric key.
	keyLength = 32
	// Expected hex-encoded length (32 bytes = 64 hex characters).
	keyHexLength = 64

	// KeyFileName is the key file created under the data directory.
	KeyFileName = "identity.key"
)

// LoadOrGenerateKey loads the identity token key from <dataPath>/identity.key,
// generating and saving a new one when the file does not exist.
// Returns the decoded 32-byte key.
func LoadOrGenerateKey(dataPath string) ([]byte, error) {
	keyPath := filepath.Join(dataPath, KeyFileName)

	//#nosec G304 -- key path is derived from the configured data path
	keyBytes, err := os.ReadFile(keyPath)
	if err == nil {
		return decodeKey(string(keyBytes))
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read identity key: %w", err)
	}

	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate identity key: %w", err)
	}

	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("save identity key: %w", err)
	}

	return key, nil
}

// LoadKey reads an existing key without generating one.
func LoadKey(dataPath string) ([]byte, error) {
	//#nosec G304 -- key path is derived from the configured data path
	keyBytes, err := os.ReadFile(filepath.Join(dataPath, KeyFileName))
	if err != nil {
		return nil, fmt.Errorf("read identity key: %w", err)
	}
	return decodeKey(string(keyBytes))
}

func decodeKey(raw string) ([]byte, error) {
	keyHex := strings.TrimSpace(raw)
	if len(keyHex) != keyHexLength {
		return nil, fmt.Errorf("invalid identity key length: expected %d hex chars, got %d", keyHexLength, len(keyHex))
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid identity key format: not valid hex: %w", err)
	}
	return key, nil
}
