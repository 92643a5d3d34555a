package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const aeadKeyInfo = "access-token-codec-v2"

// aeadScheme is the current encoding: AES-256-GCM with a key derived from the
// application secret, nonce prepended, framed as unpadded URL-safe base64.
type aeadScheme struct {
	key []byte
}

func newAEADScheme(secret string) *aeadScheme {
	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(aeadKeyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		// hkdf reads from sha256 output and cannot run dry for a 32-byte key
		panic(fmt.Sprintf("derive codec key: %v", err))
	}
	return &aeadScheme{key: key}
}

func (s *aeadScheme) Name() string {
	return "aead"
}

func (s *aeadScheme) Encode(raw string) (string, error) {
	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(raw), nil)
	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

func (s *aeadScheme) Decode(opaque string) (string, bool) {
	ciphertext, err := base64.RawURLEncoding.DecodeString(opaque)
	if err != nil {
		return "", false
	}

	gcm, err := s.gcm()
	if err != nil {
		return "", false
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", false
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	raw, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", false
	}
	return string(raw), true
}

func (s *aeadScheme) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}
