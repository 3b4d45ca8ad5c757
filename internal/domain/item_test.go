package domain

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeItemType(t *testing.T) {
	tests := []struct {
		input    string
		expected ItemType
	}{
		{"note", TypeNote},
		{"link", TypeLink},
		{"code", TypeCode},
		{"prompt", TypePrompt},
		// fuzzy substring matches
		{"LINK", TypeLink},
		{"  Link ", TypeLink},
		{"code-snippet", TypeCode},
		{"ai-prompt", TypePrompt},
		{"hyperlink", TypeLink},
		// unrecognized falls back to note
		{"", TypeNote},
		{"garbage", TypeNote},
		{"document", TypeNote},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeItemType(tt.input), "input %q", tt.input)
	}
}

func TestItemNormalize(t *testing.T) {
	item := Item{
		ID:          "temp_123_abc",
		Type:        "weird",
		Observation: strings.Repeat("x", MaxObservationLength+100),
	}

	item.Normalize()

	assert.Equal(t, TypeNote, item.Type)
	assert.Equal(t, DefaultCollectionID, item.Collection)
	assert.NotNil(t, item.Tags)
	assert.Len(t, item.Observation, MaxObservationLength)
}

func TestItemNormalizeClampsObservationOnRuneBoundary(t *testing.T) {
	// 100 runes over the limit, two bytes each. A byte-based clamp would cut
	// the 251st "ã" in half and leave invalid UTF-8 behind.
	item := Item{
		Type:        "note",
		Observation: strings.Repeat("ã", MaxObservationLength+100),
	}

	item.Normalize()

	assert.Equal(t, MaxObservationLength, utf8.RuneCountInString(item.Observation))
	assert.True(t, utf8.ValidString(item.Observation))
	assert.Equal(t, strings.Repeat("ã", MaxObservationLength), item.Observation)
}

func TestItemIsLink(t *testing.T) {
	assert.True(t, (&Item{Type: TypeLink, URL: "https://example.com"}).IsLink())
	assert.False(t, (&Item{Type: TypeLink}).IsLink())
	assert.False(t, (&Item{Type: TypeNote, URL: "https://example.com"}).IsLink())
}

func TestShareConfigAccessible(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	t.Run("private is never accessible", func(t *testing.T) {
		s := &ShareConfig{Status: SharePrivate, ShareID: "share_1_a"}
		assert.False(t, s.Accessible(now))
	})

	t.Run("expired share is gone", func(t *testing.T) {
		s := &ShareConfig{Status: SharePublic, ExpiresAt: &past}
		assert.False(t, s.Accessible(now))
	})

	t.Run("future expiry still serves", func(t *testing.T) {
		s := &ShareConfig{Status: SharePublic, ExpiresAt: &future}
		assert.True(t, s.Accessible(now))
	})

	t.Run("view budget exhausts access", func(t *testing.T) {
		s := &ShareConfig{Status: ShareLink, MaxViews: 2, ViewCount: 2}
		assert.False(t, s.Accessible(now))

		s.ViewCount = 1
		assert.True(t, s.Accessible(now))
	})

	t.Run("zero max views means unlimited", func(t *testing.T) {
		s := &ShareConfig{Status: SharePublic, ViewCount: 10000}
		assert.True(t, s.Accessible(now))
	})

	t.Run("nil share is not accessible", func(t *testing.T) {
		var s *ShareConfig
		assert.False(t, s.Accessible(now))
	})
}

func TestNormalizeCollectionIcon(t *testing.T) {
	assert.Equal(t, "book", NormalizeCollectionIcon("book"))
	assert.Equal(t, "folder", NormalizeCollectionIcon(""))
	assert.Equal(t, "folder", NormalizeCollectionIcon("dragon"))
	assert.Equal(t, "star", NormalizeCollectionIcon(" STAR "))
}
