package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	cases := map[string]ErrorType{
		"insufficient_quota":              ErrorQuota,
		"429 rate":                        ErrorRate,
		"context too long":                ErrorContext,
		"timeout":                         ErrorTransient,
		"openai chat error 503: overload": ErrorTransient,
		"bad request":                     ErrorPermanent,
	}
	for msg, want := range cases {
		assert.Equal(t, want, ClassifyError(errors.New(msg)), msg)
	}
	assert.Equal(t, ErrorCanceled, ClassifyError(fmt.Errorf("embed: %w", context.Canceled)))
	assert.Equal(t, ErrorType(""), ClassifyError(nil))
}
