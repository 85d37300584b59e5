package coinflip

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodes(t *testing.T) {
	for _, c := range codes {
		wrapped := fmt.Errorf("%w: room abc123", c.err)
		assert.Equal(t, c.code, Code(wrapped))

		rebuilt := FromCode(c.code, wrapped.Error())
		assert.ErrorIs(t, rebuilt, c.err, c.code)
		assert.Equal(t, wrapped.Error(), rebuilt.Error())
	}
}

func TestErrorCodeUnknown(t *testing.T) {
	assert.Equal(t, CodeInternal, Code(errors.New("disk full")))

	err := FromCode("Mystery", "something broke")
	for _, c := range codes {
		assert.NotErrorIs(t, err, c.err)
	}
	assert.Contains(t, err.Error(), "something broke")
}

func TestFromCodeBareSentinel(t *testing.T) {
	assert.Same(t, ErrTreasuryPaused, FromCode("TreasuryPaused", ""))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(fmt.Errorf("%w: r1", ErrRandomnessNotReady)))
	assert.True(t, Retryable(FromCode("OracleUnavailable", "timeout")))
	assert.False(t, Retryable(ErrAlreadyClaimed))
	assert.False(t, Retryable(nil))
}
