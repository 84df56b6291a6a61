package numparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint16Bases(t *testing.T) {
	v, err := Uint16("0x00ff")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x00ff), v)

	v, err = Uint16("0b101")
	require.NoError(t, err)
	assert.Equal(t, uint16(5), v)

	v, err = Uint16("42")
	require.NoError(t, err)
	assert.Equal(t, uint16(42), v)
}

func TestUint16Rejects(t *testing.T) {
	_, err := Uint16("")
	assert.Error(t, err)

	_, err = Uint16("-1")
	assert.Error(t, err)

	_, err = Uint16("0x10000")
	assert.Error(t, err, "must not fit in 16 bits")
}

func TestUint64WiderRange(t *testing.T) {
	v, err := Uint64("0x100000000")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x100000000), v)
}
