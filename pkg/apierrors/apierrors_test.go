package apierrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	cause := errors.New("boom")

	withCause := Transient("request failed", cause)
	assert.Equal(t, "transient: request failed: boom", withCause.Error())

	withoutCause := Fatal("missing credentials", nil)
	assert.Equal(t, "fatal: missing credentials", withoutCause.Error())
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := ItemLevel("notebook parse failed", cause)

	require.ErrorIs(t, err, cause)
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestIsFatal(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"fatal", Fatal("bad auth", nil), true},
		{"programmer", Programmer("nil pointer", nil), true},
		{"transient", Transient("timeout", nil), false},
		{"item level", ItemLevel("one row failed", nil), false},
		{"plain error", errors.New("not ours"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsFatal(tc.err))
		})
	}
}

func TestConstructorsSetKind(t *testing.T) {
	assert.Equal(t, KindTransient, Transient("x", nil).Kind)
	assert.Equal(t, KindItemLevel, ItemLevel("x", nil).Kind)
	assert.Equal(t, KindFatal, Fatal("x", nil).Kind)
	assert.Equal(t, KindProgrammer, Programmer("x", nil).Kind)
}
