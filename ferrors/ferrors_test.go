package ferrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fractalic-run/fractalic/ferrors"
)

func TestErrorIsMatchesSentinelByKind(t *testing.T) {
	err := ferrors.New(ferrors.KindFileNotFound, "import", "missing file")
	assert.True(t, errors.Is(err, ferrors.ErrFileNotFound))
	assert.False(t, errors.Is(err, ferrors.ErrParse))
}

func TestWrapPreservesCauseInUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := ferrors.Wrap(ferrors.KindShellError, "shell", cause)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ferrors.ErrShell)
}

func TestChildFailedUnwrapsToCause(t *testing.T) {
	cause := ferrors.New(ferrors.KindLLMError, "llm", "no chat client configured")
	err := &ferrors.ChildFailed{File: "child.md", Cause: cause}

	assert.ErrorIs(t, err, ferrors.ErrLLM)
	assert.Contains(t, err.Error(), "child.md")
}

func TestErrorMessageFallsBackToCause(t *testing.T) {
	cause := errors.New("underlying")
	err := ferrors.Wrap(ferrors.KindInternal, "interp", cause)
	assert.Contains(t, err.Error(), "underlying")
	assert.Contains(t, err.Error(), "interp")
}
