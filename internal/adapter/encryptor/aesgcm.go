package encryptor

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"

	"github.com/semmidev/vaultkeep/internal/domain"
)

const (
	ivSize  = 16
	tagSize = 16
	keySize = 32
)

// kdfSalt is fixed so artifacts written by earlier releases stay decryptable.
var kdfSalt = []byte("salt")

// AESGCM encrypts backup documents with AES-256-GCM under a passphrase-derived key.
// Blobs are base64(iv || tag || ciphertext).
type AESGCM struct {
	aead cipher.AEAD
}

func NewAESGCM(passphrase string) (*AESGCM, error) {
	if passphrase == "" {
		return nil, domain.NewConfigurationError("encryption key is not configured", nil)
	}

	key, err := scrypt.Key([]byte(passphrase), kdfSalt, 1<<14, 8, 1, keySize)
	if err != nil {
		return nil, domain.NewConfigurationError("failed to derive key", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, domain.NewConfigurationError("failed to create AES cipher", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, domain.NewConfigurationError("failed to create GCM cipher", err)
	}

	return &AESGCM{aead: aead}, nil
}

func (c *AESGCM) Encrypt(plaintext []byte) ([]byte, error) {
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, domain.NewIOError("failed to generate iv", err)
	}

	// Seal returns ciphertext || tag; the stored layout puts the tag first.
	sealed := c.aead.Seal(nil, iv, plaintext, nil)
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	raw := make([]byte, 0, ivSize+tagSize+len(ciphertext))
	raw = append(raw, iv...)
	raw = append(raw, tag...)
	raw = append(raw, ciphertext...)

	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out, nil
}

func (c *AESGCM) Decrypt(blob []byte) ([]byte, error) {
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(blob)))
	n, err := base64.StdEncoding.Decode(raw, blob)
	if err != nil {
		return nil, domain.NewIntegrityError("encrypted payload is not valid base64", err)
	}
	raw = raw[:n]

	if len(raw) < ivSize+tagSize {
		return nil, domain.NewIntegrityError(fmt.Sprintf("encrypted payload too short (%d bytes)", len(raw)), nil)
	}

	iv := raw[:ivSize]
	tag := raw[ivSize : ivSize+tagSize]
	ciphertext := raw[ivSize+tagSize:]

	sealed := make([]byte, 0, len(ciphertext)+tagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := c.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, domain.NewIntegrityError("failed to authenticate encrypted payload", err)
	}
	return plaintext, nil
}
