package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for i := 0; i < count; i++ {
		id, err := Generate("item")
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	id, err := Generate("col")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, "col_"))
	// prefix + separator + 21-char nanoid
	assert.Len(t, id, len("col_")+21)
}

func TestNewTemp(t *testing.T) {
	id := NewTemp()

	assert.True(t, strings.HasPrefix(id, TempPrefix))
	assert.True(t, IsTemp(id))

	parts := strings.Split(id, "_")
	require.Len(t, parts, 3, "temp_<timestamp>_<random>")
	assert.NotEmpty(t, parts[2])
}

func TestNewShare(t *testing.T) {
	id := NewShare()

	assert.True(t, strings.HasPrefix(id, "share_"))
	assert.False(t, IsTemp(id))

	parts := strings.Split(id, "_")
	require.Len(t, parts, 3)
}

func TestIsTemp(t *testing.T) {
	assert.True(t, IsTemp("temp_1712000000000_ab12cd3"))
	assert.False(t, IsTemp("item_V1StGXR8Z5jdHi6BmyT"))
	assert.False(t, IsTemp("42"))
	assert.False(t, IsTemp(""))
}
