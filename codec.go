package budgetgate

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"golang.org/x/crypto/hkdf"
)

// EnvelopeLifetime is how long an envelope stays decryptable after Encrypt.
const EnvelopeLifetime = 7 * 24 * time.Hour

const (
	envelopeKeyInfo     = "budgetgate session envelope v1"
	envelopeContentType = "budgetgate+json"
)

// Codec seals strings into envelopes: compact JWE objects (direct A256GCM)
// whose authenticated plaintext carries the data and an absolute expiry.
type Codec struct {
	key      []byte
	now      func() time.Time
	lifetime time.Duration
}

type CodecOption func(*Codec)

// WithClock replaces time.Now for encryption and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

type envelopePayload struct {
	Data string `json:"data"`
	Exp  int64  `json:"exp"`
}

// NewCodec derives the envelope key from secret. An empty secret is a
// configuration error; there is no plaintext fallback.
func NewCodec(secret string, opts ...CodecOption) (*Codec, error) {
	if secret == "" {
		return nil, &ConfigurationError{Field: "session.encryption_key", Reason: "must not be empty"}
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(envelopeKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive envelope key: %w", err)
	}

	c := &Codec{
		key:      key,
		now:      time.Now,
		lifetime: EnvelopeLifetime,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Encrypt returns a fresh envelope for plaintext. Two calls with the same
// input produce different envelopes.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	if c == nil || len(c.key) == 0 {
		return "", &ConfigurationError{Field: "session.encryption_key", Reason: "must not be empty"}
	}

	payload, err := json.Marshal(envelopePayload{
		Data: plaintext,
		Exp:  c.now().Add(c.lifetime).UnixMilli(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}

	opts := (&jose.EncrypterOptions{}).WithContentType(envelopeContentType)
	enc, err := jose.NewEncrypter(jose.A256GCM, jose.Recipient{Algorithm: jose.DIRECT, Key: c.key}, opts)
	if err != nil {
		return "", fmt.Errorf("create encrypter: %w", err)
	}
	obj, err := enc.Encrypt(payload)
	if err != nil {
		return "", fmt.Errorf("encrypt envelope: %w", err)
	}
	return obj.CompactSerialize()
}

// Decrypt opens an envelope produced by Encrypt. Any failure, including an
// expired envelope, reports false.
func (c *Codec) Decrypt(envelope string) (string, bool) {
	if c == nil || len(c.key) == 0 || !canonicalCompact(envelope) {
		return "", false
	}

	obj, err := jose.ParseEncrypted(envelope,
		[]jose.KeyAlgorithm{jose.DIRECT},
		[]jose.ContentEncryption{jose.A256GCM},
	)
	if err != nil {
		return "", false
	}
	raw, err := obj.Decrypt(c.key)
	if err != nil {
		return "", false
	}

	var p envelopePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Exp <= 0 {
		return "", false
	}
	if !c.now().Before(time.UnixMilli(p.Exp)) {
		return "", false
	}
	return p.Data, true
}

// canonicalCompact reports whether s is five dot-separated segments, each in
// the unique unpadded base64url form of its bytes. Decoders ignore the unused
// low bits of a final character, so without this check one envelope has
// several accepted spellings.
func canonicalCompact(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 5 {
		return false
	}
	for _, part := range parts {
		raw, err := base64.RawURLEncoding.Strict().DecodeString(part)
		if err != nil || base64.RawURLEncoding.EncodeToString(raw) != part {
			return false
		}
	}
	return true
}
