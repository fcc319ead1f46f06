package hashing

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
)

// OWASP baseline parameters for argon2id.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // KiB
	argon2Threads = 4
	argon2SaltLen = 16
	argon2KeyLen  = 32
)

var _ Hasher = (*Argon2idHasher)(nil)

// Argon2idHasher encodes digests in PHC string format:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
type Argon2idHasher struct {
	time    uint32
	memory  uint32
	threads uint8
}

type Argon2Option func(*Argon2idHasher)

// WithArgon2Params overrides the cost parameters used for new digests.
// Existing digests are always verified with the parameters they encode.
func WithArgon2Params(time, memoryKiB uint32, threads uint8) Argon2Option {
	return func(h *Argon2idHasher) {
		h.time = time
		h.memory = memoryKiB
		h.threads = threads
	}
}

func NewArgon2idHasher(options ...Argon2Option) *Argon2idHasher {
	h := &Argon2idHasher{
		time:    argon2Time,
		memory:  argon2Memory,
		threads: argon2Threads,
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

func (h *Argon2idHasher) Hash(plain string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, "[Argon2idHasher.Hash] failed to generate salt")
	}

	key := argon2.IDKey([]byte(plain), salt, h.time, h.memory, h.threads, argon2KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory,
		h.time,
		h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (h *Argon2idHasher) Compare(plain, digest string) bool {
	parsed, err := parseArgon2Digest(digest)
	if err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(plain), parsed.salt, parsed.time, parsed.memory, parsed.threads, uint32(len(parsed.key)))
	return subtle.ConstantTimeCompare(computed, parsed.key) == 1
}

type argon2Digest struct {
	time    uint32
	memory  uint32
	threads uint8
	salt    []byte
	key     []byte
}

func parseArgon2Digest(digest string) (*argon2Digest, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, errors.New("invalid argon2id digest format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, errors.Wrap(err, "invalid argon2id version")
	}
	if version != argon2.Version {
		return nil, errors.Errorf("unsupported argon2id version %d", version)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, errors.Wrap(err, "invalid argon2id parameters")
	}
	if threads == 0 || threads > 255 || time == 0 {
		return nil, errors.New("argon2id parameters out of range")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, errors.Wrap(err, "invalid argon2id salt")
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, errors.Wrap(err, "invalid argon2id key")
	}
	if len(key) == 0 || len(key) > 1024 {
		return nil, errors.New("invalid argon2id key length")
	}

	return &argon2Digest{
		time:    time,
		memory:  memory,
		threads: uint8(threads),
		salt:    salt,
		key:     key,
	}, nil
}
