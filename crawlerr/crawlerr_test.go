package crawlerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorWrapping(t *testing.T) {
	wrapped := errors.New("connection reset by peer")
	e := Transient(CodeConnReset, "dial failed", wrapped)

	require.Error(t, e)
	assert.Equal(t, ClassTransientNetwork, e.Class())
	assert.True(t, e.Retryable())
	assert.Equal(t, CodeConnReset, e.Code())
	assert.ErrorIs(t, e, wrapped)
}

func TestHardVsSoftFailureRetryability(t *testing.T) {
	hard := HardFailure("access denied", nil)
	soft := SoftFailure("js required", nil)

	assert.False(t, hard.Retryable())
	assert.True(t, soft.Retryable())
}

func TestBreakerOpenIsNotRetryable(t *testing.T) {
	e := BreakerOpen("example.com")
	assert.False(t, e.Retryable())
	assert.Equal(t, ClassBreakerOpen, e.Class())
	assert.Contains(t, e.Error(), "example.com")
}

func TestToDetail(t *testing.T) {
	e := Configuration("missing DSN", nil)
	d := e.ToDetail()
	assert.Equal(t, CodeConfiguration, d.Code)
	assert.Equal(t, "missing DSN", d.Message)
}
