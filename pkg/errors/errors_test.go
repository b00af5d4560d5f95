package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("socket closed")
	err := Wrap(CodeExchange, cause, "set ads offline")

	assert.Equal(t, CodeExchange, err.Code())
	assert.Equal(t, "set ads offline", err.Message())
	assert.ErrorIs(t, err, cause)
}

func TestWrapNilCauseBehavesLikeNew(t *testing.T) {
	err := Wrap(CodeValidation, nil, "quantity required")
	assert.Equal(t, CodeValidation, err.Code())
	assert.Nil(t, err.Unwrap())
}

func TestAsFindsTypedErrorInChain(t *testing.T) {
	inner := New(CodeStateConflict, "rest period already active")
	wrapped := fmt.Errorf("start rest: %w", inner)

	typed := As(wrapped)
	require.NotNil(t, typed)
	assert.Equal(t, CodeStateConflict, typed.Code())
}

func TestAsReturnsNilForPlainErrors(t *testing.T) {
	assert.Nil(t, As(stdErrors.New("plain")))
	assert.Nil(t, As(nil))
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestMetadataForExchange(t *testing.T) {
	meta := MetadataFor(CodeExchange)
	assert.Equal(t, http.StatusBadGateway, meta.HTTPStatus)
	assert.True(t, meta.Retryable)
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "validation failed").WithDetails(map[string]string{"price": "must be positive"})
	details, ok := err.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be positive", details["price"])
}
