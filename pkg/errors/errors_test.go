package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		msg      string
		expected string
	}{
		{name: "wrap nil error", err: nil, msg: "context"},
		{name: "wrap standard error", err: errors.New("original"), msg: "context", expected: "context: original"},
		{name: "wrap with empty message", err: errors.New("original"), msg: "", expected: ": original"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Wrap(tt.err, tt.msg)
			if tt.err == nil {
				assert.NoError(t, result)
				return
			}
			assert.EqualError(t, result, tt.expected)
			assert.ErrorIs(t, result, tt.err)
		})
	}
}

func TestWrapf(t *testing.T) {
	assert.NoError(t, Wrapf(nil, "repo %d", 1))

	base := errors.New("boom")
	err := Wrapf(base, "repo %d", 7)
	assert.EqualError(t, err, "repo 7: boom")
	assert.ErrorIs(t, err, base)
}

func TestNewClassifies(t *testing.T) {
	assert.NoError(t, New(KindIO, "read", nil))

	base := errors.New("disk gone")
	err := New(KindIO, "commit", base)
	require.Error(t, err)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, KindIO, KindOf(err))
	assert.Equal(t, "commit: io error: disk gone", err.Error())
}

func TestNewKeepsFirstClassification(t *testing.T) {
	inner := New(KindSigning, "verify", errors.New("bad signature"))
	outer := New(KindIO, "sync", Wrap(inner, "repo 1"))

	assert.Equal(t, KindSigning, KindOf(outer))
	assert.False(t, IsRetryable(outer))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindSigning, false},
		{KindStructural, false},
		{KindIO, true},
		{KindState, false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", New(tt.kind, "", errors.New("x")))
			assert.Equal(t, tt.want, IsRetryable(err))
		})
	}

	assert.False(t, IsRetryable(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}
