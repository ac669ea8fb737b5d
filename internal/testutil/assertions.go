// Package testutil provides fakes and assertions shared by permission store tests.
package testutil

import (
	"errors"
	"testing"

	domainerrors "github.com/reglet-dev/permstore/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertNoGrant asserts that err reports a resource that was never granted.
func AssertNoGrant(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	assert.ErrorIs(t, err, domainerrors.ErrNoGrant, msgAndArgs...)
	assert.False(t, domainerrors.IsStale(err), msgAndArgs...)
	var redeem *domainerrors.RedeemError
	assert.False(t, errors.As(err, &redeem), msgAndArgs...)
}

// AssertStale asserts that err is a stale-grant failure.
func AssertStale(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	assert.True(t, domainerrors.IsStale(err), msgAndArgs...)
	assert.NotErrorIs(t, err, domainerrors.ErrNoGrant, msgAndArgs...)
}

// AssertRedeemFailed asserts that err is a hard redemption failure.
func AssertRedeemFailed(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	var redeem *domainerrors.RedeemError
	assert.True(t, errors.As(err, &redeem), msgAndArgs...)
	assert.NotErrorIs(t, err, domainerrors.ErrNoGrant, msgAndArgs...)
}
