package db

import (
	"context"
	"errors"
	"testing"

	"github.com/rmagedov/p2pdesk-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DSN is required")
}

func TestIsUniqueViolation(t *testing.T) {
	dup := errors.New(`ERROR: duplicate key value violates unique constraint "rest_timers_single_active"`)

	assert.True(t, IsUniqueViolation(dup, ""))
	assert.True(t, IsUniqueViolation(dup, "rest_timers_single_active"))
	assert.False(t, IsUniqueViolation(dup, "other_constraint"))
	assert.False(t, IsUniqueViolation(nil, ""))
	assert.False(t, IsUniqueViolation(errors.New("connection refused"), ""))
}
