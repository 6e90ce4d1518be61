package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status Status
	}{
		{NewPermissionDeniedError("can_execute_code"), StatusPermissionDenied},
		{NewRateLimitedError("limit"), StatusRateLimited},
		{NewPromptInjectionError("patterns"), StatusBlocked},
		{NewConfigurationError("bad", nil), StatusFailed},
		{NewProviderError("down", nil), StatusFailed},
		{context.Canceled, StatusCancelled},
		{context.DeadlineExceeded, StatusFailed},
		{errors.New("boom"), StatusFailed},
	}
	for _, c := range cases {
		assert.Equal(t, c.status, StatusFor(c.err), "for %v", c.err)
	}
}

func TestKindOfClassifiesContextErrors(t *testing.T) {
	assert.Equal(t, KindCancelled, KindOf(context.Canceled))
	assert.Equal(t, KindTimeout, KindOf(context.DeadlineExceeded))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestPermissionDeniedNamesCapability(t *testing.T) {
	err := NewPermissionDeniedError(string(CapabilityExecuteCode))
	assert.Contains(t, err.Message, "can_execute_code")
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := NewProviderError("wrapped", cause)
	assert.True(t, errors.Is(err, cause))
}
