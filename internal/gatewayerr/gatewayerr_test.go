package gatewayerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAndKindChecks(t *testing.T) {
	err := New(InvalidIdentifier, "name too long")
	assert.True(t, IsInvalidIdentifier(err))
	assert.False(t, IsDatabaseError(err))
	assert.Equal(t, InvalidIdentifier, GetKind(err))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, DatabaseError, "query failed")

	assert.True(t, IsDatabaseError(err))
	assert.Same(t, cause, errors.Unwrap(err))
	assert.ErrorIs(t, err, cause)
}

func TestWrapfFormatsMessage(t *testing.T) {
	err := Wrapf(errors.New("boom"), Internal, "step %d failed", 3)
	assert.Equal(t, "step 3 failed", err.Message)
}

func TestAsErrorFindsWrappedGatewayError(t *testing.T) {
	inner := New(SessionLimitExceeded, "max sessions reached")
	outer := fmt.Errorf("begin: %w", inner)

	found, ok := AsError(outer)
	assert.True(t, ok)
	assert.Same(t, inner, found)
}

func TestAsErrorFalseForPlainError(t *testing.T) {
	_, ok := AsError(errors.New("plain"))
	assert.False(t, ok)
}

func TestWithDetailsChains(t *testing.T) {
	err := New(InvalidParameters, "batch failed").WithDetails(map[string]any{"index": 2})
	assert.Equal(t, 2, err.Details["index"])
}

func TestGetKindEmptyForNonGatewayError(t *testing.T) {
	assert.Equal(t, Kind(""), GetKind(errors.New("plain")))
	assert.False(t, HasKind(errors.New("plain"), Internal))
}
