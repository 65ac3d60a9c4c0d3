// Package secure seals short text payloads with AES-256-CBC in the
// "ivHex:cipherHex" wire format.
package secure

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrNoKey is returned when no secret is configured.
	ErrNoKey = errors.New("encryption key not configured")
	// ErrMalformed is returned for payloads that are not ivHex:cipherHex.
	ErrMalformed = errors.New("malformed ciphertext")
)

const keySize = 32

// Cipher encrypts and decrypts with a key derived from a shared secret.
type Cipher struct {
	block cipher.Block
}

// DeriveKey pads secret with '!' and truncates it to 32 bytes.
func DeriveKey(secret string) []byte {
	key := []byte(secret)
	if len(key) >= keySize {
		return key[:keySize]
	}
	return append(key, bytes.Repeat([]byte("!"), keySize-len(key))...)
}

// New creates a Cipher from secret.
func New(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, ErrNoKey
	}
	block, err := aes.NewCipher(DeriveKey(secret))
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &Cipher{block: block}, nil
}

// Encrypt returns ivHex:cipherHex for plaintext using a random IV.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	data := pad([]byte(plaintext))
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out, data)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(payload string) (string, error) {
	ivHex, dataHex, ok := strings.Cut(payload, ":")
	if !ok {
		return "", ErrMalformed
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrMalformed
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil || len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", ErrMalformed
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(out, data)

	plain, err := unpad(out)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// pad applies PKCS#7 padding.
func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", ErrMalformed)
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrMalformed)
		}
	}
	return b[:len(b)-n], nil
}
