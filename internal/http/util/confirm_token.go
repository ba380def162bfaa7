package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidConfirmToken = errors.New("invalid or expired confirmation token")
	ErrMissingSecret       = errors.New("confirmation secret is not configured")
)

// ConfirmSigner mints the short-lived tokens embedded in the restricted info
// page's continue link. The token is a UX confirmation step, not a security
// gate: it only proves the info page was rendered for this short id.
type ConfirmSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewConfirmSigner returns a signer issuing compact HMAC tokens.
func NewConfirmSigner(secret []byte, ttl time.Duration) *ConfirmSigner {
	return &ConfirmSigner{
		secret: secret,
		ttl:    ttl,
	}
}

// Issue mints a confirmation token bound to the short id.
func (s *ConfirmSigner) Issue(shortID string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}

	payload := make([]byte, 12) // 4 bytes expiry + 8 random bytes
	expires := uint32(time.Now().Add(s.ttl).Unix())
	binary.BigEndian.PutUint32(payload[:4], expires)
	if _, err := rand.Read(payload[4:]); err != nil {
		return "", err
	}

	payloadEnc := base64.RawURLEncoding.EncodeToString(payload)
	signature := s.sign(shortID, payload)
	sigEnc := base64.RawURLEncoding.EncodeToString(signature[:16])
	return fmt.Sprintf("%s.%s", payloadEnc, sigEnc), nil
}

// Validate checks signature integrity and TTL of the token.
func (s *ConfirmSigner) Validate(shortID, token string) error {
	if len(s.secret) == 0 {
		return ErrMissingSecret
	}

	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return ErrInvalidConfirmToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return ErrInvalidConfirmToken
	}

	sigProvided, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ErrInvalidConfirmToken
	}
	if len(sigProvided) != 16 {
		return ErrInvalidConfirmToken
	}

	expected := s.sign(shortID, payload)
	if !hmac.Equal(sigProvided, expected[:16]) {
		return ErrInvalidConfirmToken
	}

	if len(payload) < 4 {
		return ErrInvalidConfirmToken
	}
	expires := binary.BigEndian.Uint32(payload[:4])
	if time.Now().Unix() > int64(expires) {
		return ErrInvalidConfirmToken
	}

	return nil
}

func (s *ConfirmSigner) sign(shortID string, payload []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(shortID))
	mac.Write([]byte("|"))
	mac.Write(payload)
	return mac.Sum(nil)
}
