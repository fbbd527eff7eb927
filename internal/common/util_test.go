package common

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRandHexString_LengthAndAlphabet(t *testing.T) {
	s, err := MakeRandHexString(32)
	require.NoError(t, err)
	assert.Len(t, s, 64)

	raw, err := hex.DecodeString(s)
	require.NoError(t, err, "string is not valid hex")
	assert.Len(t, raw, 32)
}

func TestMakeRandHexString_ZeroSize(t *testing.T) {
	s, err := MakeRandHexString(0)
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestMakeRandHexString_Distinct(t *testing.T) {
	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		s, err := MakeRandHexString(32)
		require.NoError(t, err)
		_, dup := seen[s]
		require.False(t, dup, "duplicate value after %d draws", i)
		seen[s] = struct{}{}
	}
}

func TestWipeByteArray(t *testing.T) {
	buf := []byte("secret1")
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}

	WipeByteArray(nil)
}
