package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16

	defaultMaxPassword = 1024

	algorithmID = "argon2id"
)

// ErrPasswordTooLong rejects plaintext beyond the configured maximum before
// any hashing work is done.
var ErrPasswordTooLong = errors.New("password exceeds maximum length")

// Config fixes the Argon2id work factors. Treated as immutable after
// [NewArgon2].
type Config struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MaxPassword int // maximum plaintext bytes; defaults to 1024 when 0
}

// Argon2 hashes and verifies passwords with a fixed work factor.
type Argon2 struct {
	config Config
}

// NewArgon2 validates the work factors and returns a ready hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.MaxPassword <= 0 {
		cfg.MaxPassword = defaultMaxPassword
	}
	return &Argon2{config: cfg}, nil
}

// Hash derives a salted Argon2id hash and encodes it in PHC string format.
// Plaintext is used exactly as provided, no Unicode normalization.
func (a *Argon2) Hash(plaintext string) (string, error) {
	if len(plaintext) > a.config.MaxPassword {
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	sum := argon2.IDKey(
		[]byte(plaintext),
		salt,
		a.config.Time,
		a.config.Memory,
		a.config.Parallelism,
		a.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(sum),
	), nil
}

// Verify recomputes the hash with the parameters embedded in encodedHash and
// compares in constant time. A mismatch returns (false, nil); only a
// malformed stored hash produces an error.
func (a *Argon2) Verify(plaintext string, encodedHash string) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(plaintext),
		parsed.salt,
		parsed.time,
		parsed.memory,
		parsed.parallelism,
		uint32(len(parsed.hash)),
	)

	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

type parsedPHC struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

func parsePHC(encodedHash string) (*parsedPHC, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("unsupported algorithm")
	}

	if !strings.HasPrefix(parts[2], "v=") {
		return nil, errors.New("missing argon2 version")
	}
	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	params := &parsedPHC{}
	for _, pair := range strings.Split(parts[3], ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, errors.New("invalid parameter entry")
		}
		v, err := strconv.ParseUint(kv[1], 10, 32)
		if err != nil {
			return nil, errors.New("invalid parameter value")
		}
		switch kv[0] {
		case "m":
			params.memory = uint32(v)
		case "t":
			params.time = uint32(v)
		case "p":
			if v == 0 || v > 255 {
				return nil, errors.New("invalid parallelism parameter")
			}
			params.parallelism = uint8(v)
		default:
			return nil, errors.New("unsupported parameter")
		}
	}
	if params.memory < minMemoryKB || params.time < minTimeCost || params.parallelism < minParallelism {
		return nil, errors.New("parameters below safe minimums")
	}

	params.salt, err = base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(params.salt) < int(minSaltLength) {
		return nil, errors.New("invalid salt")
	}

	params.hash, err = base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(params.hash) == 0 {
		return nil, errors.New("invalid hash")
	}

	return params, nil
}

func validateConfig(cfg Config) error {
	if cfg.Memory < minMemoryKB {
		return errors.New("password memory must be >= 8192 KB")
	}
	if cfg.Time < minTimeCost {
		return errors.New("password time must be >= 1")
	}
	if cfg.Parallelism < minParallelism {
		return errors.New("password parallelism must be >= 1")
	}
	if cfg.SaltLength < minSaltLength {
		return errors.New("password salt length must be >= 16")
	}
	if cfg.KeyLength < minKeyLength {
		return errors.New("password key length must be >= 16")
	}
	return nil
}
