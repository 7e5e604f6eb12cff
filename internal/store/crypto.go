package store

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Blob format: magic(8) + salt(16) + nonce(12) + ciphertext (GCM tag inline).
const (
	blobMagic  = "PDVGCM01"
	saltSize   = 16
	pbkdfIters = 100000
	keySize    = 32
)

// IsEncrypted reports whether data carries the encrypted blob magic number.
func IsEncrypted(data []byte) bool {
	return len(data) >= len(blobMagic) && bytes.Equal(data[:len(blobMagic)], []byte(blobMagic))
}

// BlobCipher encrypts store blobs with AES-GCM under a passphrase-derived
// key. Each Seal uses a fresh salt and nonce.
type BlobCipher struct {
	passphrase string
}

func NewBlobCipher(passphrase string) *BlobCipher {
	return &BlobCipher{passphrase: passphrase}
}

func (c *BlobCipher) gcm(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(c.passphrase), salt, pbkdfIters, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (c *BlobCipher) Seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	gcm, err := c.gcm(salt)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, len(blobMagic)+saltSize+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, blobMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

func (c *BlobCipher) Open(data []byte) ([]byte, error) {
	if !IsEncrypted(data) {
		return nil, fmt.Errorf("blob is not encrypted")
	}
	data = data[len(blobMagic):]
	if len(data) < saltSize {
		return nil, fmt.Errorf("encrypted blob truncated")
	}
	salt, data := data[:saltSize], data[saltSize:]

	gcm, err := c.gcm(salt)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	if len(data) < gcm.NonceSize() {
		return nil, fmt.Errorf("encrypted blob truncated")
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt blob: %w", err)
	}
	return plaintext, nil
}
