// Package testutil provides fakes and assertions shared by package tests.
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/reglet-dev/hookguard/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertAllowed asserts that p admits the raw event.
func AssertAllowed(t *testing.T, p ports.Policy, event string, args ...any) {
	t.Helper()
	assert.True(t, p.CheckPermission(event, args), "%s %v should be allowed", event, args)
}

// AssertDenied asserts that p rejects the raw event.
func AssertDenied(t *testing.T, p ports.Policy, event string, args ...any) {
	t.Helper()
	assert.False(t, p.CheckPermission(event, args), "%s %v should be denied", event, args)
}

// AssertJSONEqual compares two JSON strings for equality, ignoring formatting
func AssertJSONEqual(t *testing.T, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()

	var expectedJSON, actualJSON interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expectedJSON), "expected JSON is invalid")
	require.NoError(t, json.Unmarshal([]byte(actual), &actualJSON), "actual JSON is invalid")

	assert.Equal(t, expectedJSON, actualJSON, msgAndArgs...)
}
