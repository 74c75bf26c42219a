package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id cost parameters. Raising these later does not invalidate
// stored hashes: Verify reads the cost back out of the encoded string.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// Argon2HashService implements ports.HashService with Argon2id and the
// standard $argon2id$... encoded form.
type Argon2HashService struct{}

// NewArgon2HashService creates the password hasher.
func NewArgon2HashService() *Argon2HashService {
	return &Argon2HashService{}
}

// Hash derives an Argon2id key under a fresh random salt and encodes it
// as $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>.
func (s *Argon2HashService) Hash(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify re-derives the key with the cost and salt stored in encodedHash
// and compares in constant time.
func (s *Argon2HashService) Verify(password string, encodedHash string) (bool, error) {
	salt, key, cost, err := parseArgon2Hash(encodedHash)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, cost.time, cost.memory, cost.threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

type argon2Cost struct {
	memory  uint32
	time    uint32
	threads uint8
}

// parseArgon2Hash splits the encoded form back into salt, derived key
// and cost parameters.
func parseArgon2Hash(encodedHash string) ([]byte, []byte, argon2Cost, error) {
	var cost argon2Cost

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, nil, cost, fmt.Errorf("malformed argon2 hash: %d segments", len(parts))
	}
	if parts[1] != "argon2id" {
		return nil, nil, cost, fmt.Errorf("unsupported hash algorithm %q", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, cost, fmt.Errorf("parsing argon2 version: %w", err)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &cost.memory, &cost.time, &cost.threads); err != nil {
		return nil, nil, cost, fmt.Errorf("parsing argon2 cost: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, cost, fmt.Errorf("decoding salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, cost, fmt.Errorf("decoding hash: %w", err)
	}
	return salt, key, cost, nil
}
