package fault

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	err := Wrap(Transport, io.ErrUnexpectedEOF, "reading response head")

	assert.ErrorIs(t, err, Transport)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.NotErrorIs(t, err, BodyConsumed)

	wrapped := errors.Wrap(err, "sending request")
	assert.True(t, errors.Is(wrapped, Transport))

	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, Transport, kind)
}

func TestErrorMessage(t *testing.T) {
	testcases := []struct {
		desc     string
		err      error
		expected string
	}{
		{
			desc:     "kind only",
			err:      &Error{Kind: BodyConsumed},
			expected: "body consumed error",
		},
		{
			desc:     "kind and context",
			err:      New(URI, "uri has no scheme"),
			expected: "uri error: uri has no scheme",
		},
		{
			desc:     "kind, context and cause",
			err:      Wrapf(Transport, errors.New("connection refused"), "dialing %s", "localhost:80"),
			expected: "transport error: dialing localhost:80: connection refused",
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.EqualError(t, tc.err, tc.expected)
		})
	}
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(Transport, nil, "nothing"))
	assert.NoError(t, Wrapf(Transport, nil, "nothing %d", 1))

	_, ok := KindOf(io.EOF)
	assert.False(t, ok)
}
