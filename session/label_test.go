package session

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLabelShape(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 30, 0, 0, time.UTC)
	label := NewLabel(now, "My Doc.md")

	parts := strings.SplitN(label, "_", 3)
	require.Len(t, parts, 3)
	assert.Equal(t, "20260729123000", parts[0])
	assert.Len(t, parts[1], 8)
	assert.Equal(t, "my-doc-md", parts[2])
}

func TestNewLabelEmptySlugFallsBackToRun(t *testing.T) {
	label := NewLabel(time.Now(), "***")
	assert.True(t, strings.HasSuffix(label, "_run"))
}

func TestNewRunIDIsUnique(t *testing.T) {
	assert.NotEqual(t, NewRunID(), NewRunID())
}
