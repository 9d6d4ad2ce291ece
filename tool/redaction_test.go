package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactMasksNestedSecretKeys(t *testing.T) {
	reg := Registration{
		Name: "svc",
		Parameters: map[string]any{
			"auth": map[string]any{
				"api_token": "abc123",
				"region":    "us-east-1",
			},
			"items": []any{
				map[string]any{"password": "hunter2"},
			},
		},
	}
	out := Redact(reg)
	auth := out.Parameters["auth"].(map[string]any)
	assert.Equal(t, "***redacted***", auth["api_token"])
	assert.Equal(t, "us-east-1", auth["region"])

	items := out.Parameters["items"].([]any)
	first := items[0].(map[string]any)
	assert.Equal(t, "***redacted***", first["password"])
}

func TestRedactNilParametersIsNoop(t *testing.T) {
	reg := Registration{Name: "svc"}
	out := Redact(reg)
	assert.Nil(t, out.Parameters)
}
