// Package security hashes the admin passcode with Argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<KiB>,t=<passes>,p=<lanes>$<salt>$<key>
//
// which is what MKS_ADMIN_PASSCODE_HASH holds.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/mksagencies/storefront-backend/pkg/config"
)

var ErrInvalidHash = errors.New("invalid argon2id hash")

var b64 = base64.RawStdEncoding

type argonParams struct {
	memory  uint32
	passes  uint32
	lanes   uint8
	saltLen uint32
	keyLen  uint32
}

// HashPasscode derives a PHC-encoded Argon2id hash of passcode using the
// cost parameters in cfg, clamped to sane bounds.
func HashPasscode(passcode string, cfg config.PasswordConfig) (string, error) {
	if passcode == "" {
		return "", errors.New("passcode cannot be empty")
	}

	p := argonParams{
		memory:  clamp(cfg.ArgonMemoryKB, 8, 512*1024),
		passes:  clamp(cfg.ArgonTime, 1, 10),
		lanes:   uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		saltLen: clamp(cfg.ArgonSaltLen, 8, 64),
		keyLen:  clamp(cfg.ArgonKeyLen, 16, 64),
	}
	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(passcode), salt, p.passes, p.memory, p.lanes, p.keyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.passes, p.lanes, b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// VerifyPasscode reports whether passcode matches encoded. A malformed hash is
// an error, never a silent mismatch.
func VerifyPasscode(passcode, encoded string) (bool, error) {
	p, salt, key, err := decode(encoded)
	if err != nil {
		return false, err
	}
	computed := argon2.IDKey([]byte(passcode), salt, p.passes, p.memory, p.lanes, p.keyLen)
	return subtle.ConstantTimeCompare(key, computed) == 1, nil
}

func decode(encoded string) (argonParams, []byte, []byte, error) {
	parts := strings.Split(strings.TrimSpace(encoded), "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	var p argonParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.passes, &p.lanes); err != nil {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	if p.memory == 0 || p.passes == 0 || p.lanes == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	salt, err := b64.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	p.saltLen = uint32(len(salt))
	p.keyLen = uint32(len(key))
	return p, salt, key, nil
}

func clamp(v, lo, hi int) uint32 {
	switch {
	case v < lo:
		return uint32(lo)
	case v > hi:
		return uint32(hi)
	}
	return uint32(v)
}
