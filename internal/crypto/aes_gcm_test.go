package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

var testKey = bytes.Repeat([]byte{0x42}, 32)

func TestSealOpenRoundTrip(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	sealed, err := s.SealString("applicant@example.edu")
	require.NoError(t, err)
	require.NotContains(t, string(sealed), "applicant", "plaintext must not survive sealing")

	opened, err := s.OpenString(sealed)
	require.NoError(t, err)
	require.Equal(t, "applicant@example.edu", opened)
}

func TestSealProducesFreshNonces(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	a, err := s.SealString("same input")
	require.NoError(t, err)
	b, err := s.SealString("same input")
	require.NoError(t, err)
	require.NotEqual(t, a, b, "two seals of one value must differ")
}

func TestNewSealerRejectsBadKey(t *testing.T) {
	_, err := NewSealer([]byte("short"))
	require.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	sealed, err := s.SealString("applicant@example.edu")
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xFF
	_, err = s.Open(sealed)
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestOpenRejectsTruncatedBlob(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	_, err = s.Open([]byte{0x01, 0x02})
	require.ErrorIs(t, err, ErrInvalidCiphertext)
}
