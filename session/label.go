// Package session manages one execution's on-disk artifacts: a stable
// snapshot label, the final document state (.ctx), and a redacted event
// trace (.trc) a later inspection pass can replay.
package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewRunID mints a fresh run identity threaded through interp.Runtime and
// every nested @run's CallFrame.
func NewRunID() string {
	return uuid.NewString()
}

// NewLabel builds a snapshot label of the form
// YYYYMMDDHHMMSS_<8-hex>_<slug>, sortable by creation time with a collision
// guard and a human-readable suffix naming the document it came from.
func NewLabel(now time.Time, slug string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	clean := sanitizeSlug(slug)
	return now.UTC().Format("20060102150405") + "_" + hex + "_" + clean
}

func sanitizeSlug(slug string) string {
	slug = strings.ToLower(strings.TrimSpace(slug))
	var b strings.Builder
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('-')
		}
	}
	out := b.String()
	if out == "" {
		return "run"
	}
	return out
}
