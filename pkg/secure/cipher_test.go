package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey(t *testing.T) {
	assert.Equal(t, []byte("abc"+strings.Repeat("!", 29)), DeriveKey("abc"))
	long := strings.Repeat("k", 40)
	assert.Equal(t, []byte(strings.Repeat("k", 32)), DeriveKey(long))
	assert.Len(t, DeriveKey(""), 32)
}

func TestRoundTrip(t *testing.T) {
	c, err := New("test-secret")
	require.NoError(t, err)

	for _, msg := range []string{"", "short", strings.Repeat("résumé ", 50), strings.Repeat("a", 16)} {
		sealed, err := c.Encrypt(msg)
		require.NoError(t, err)

		got, err := c.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, msg, got)
	}
}

func TestFormat(t *testing.T) {
	c, err := New("test-secret")
	require.NoError(t, err)

	sealed, err := c.Encrypt("hello")
	require.NoError(t, err)

	ivHex, dataHex, ok := strings.Cut(sealed, ":")
	require.True(t, ok)
	assert.Len(t, ivHex, 32)
	assert.Len(t, dataHex, 32, "5 bytes pad to one block")

	// independent CBC decrypt with the derived key
	iv, _ := hex.DecodeString(ivHex)
	data, _ := hex.DecodeString(dataHex)
	block, err := aes.NewCipher(DeriveKey("test-secret"))
	require.NoError(t, err)
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	assert.Equal(t, "hello", string(out[:5]))
	assert.Equal(t, byte(11), out[15])
}

func TestRandomIV(t *testing.T) {
	c, err := New("test-secret")
	require.NoError(t, err)
	a, _ := c.Encrypt("same")
	b, _ := c.Encrypt("same")
	assert.NotEqual(t, a, b)
}

func TestDecryptErrors(t *testing.T) {
	c, err := New("test-secret")
	require.NoError(t, err)

	for _, bad := range []string{"nocolon", "zz:00", "00:00", strings.Repeat("0", 32) + ":abc"} {
		_, err := c.Decrypt(bad)
		assert.ErrorIs(t, err, ErrMalformed, bad)
	}

	other, err := New("other-secret")
	require.NoError(t, err)
	sealed, _ := c.Encrypt("hello world")
	if got, err := other.Decrypt(sealed); err == nil {
		assert.NotEqual(t, "hello world", got)
	}
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrNoKey)
}
