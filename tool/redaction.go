package tool

import "strings"

// secretKeyHints flags parameter names whose sample/default values should be
// masked when a Registration is shown back to a user (CLI `tools list`,
// logs). It is a heuristic, not a guarantee: tool authors who name a secret
// field something unusual still leak it.
var secretKeyHints = []string{"key", "token", "secret", "password", "authorization", "credential"}

// Redact returns a copy of reg in which the value under any parameter key
// that looks secret, at any depth, is replaced by a fixed placeholder. The
// whole value is replaced, so a nested schema object under such a key loses
// its shape; values under other keys are copied unchanged.
func Redact(reg Registration) Registration {
	if reg.Parameters == nil {
		return reg
	}
	reg.Parameters = redactValue(reg.Parameters).(map[string]any)
	return reg
}

func redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if looksSecret(k) {
				out[k] = "***redacted***"
				continue
			}
			out[k] = redactValue(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = redactValue(child)
		}
		return out
	default:
		return v
	}
}

func looksSecret(key string) bool {
	lower := strings.ToLower(key)
	for _, hint := range secretKeyHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
