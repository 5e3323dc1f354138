package errs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderWithPosition(t *testing.T) {
	pos := Position{File: "hello.adef", Line: 4, Column: 7}
	err := Syntax(pos, "Unexpected character %q. Expected %s.", '}', "'{'")
	assert.Equal(t, "hello.adef:4:7: error: Unexpected character '}'. Expected '{'.", err.Error())
}

func TestRenderWithoutPosition(t *testing.T) {
	err := Reference(Position{}, "Client-side interface '%s' is not bound to anything.", "a.b.c.d")
	assert.Equal(t, "error: Client-side interface 'a.b.c.d' is not bound to anything.", err.Error())
}

func TestKinds(t *testing.T) {
	pos := Position{File: "f", Line: 1}
	testCases := []struct {
		name string
		err  error
	}{
		{"lexical", Lexical(pos, "x")},
		{"syntax", Syntax(pos, "x")},
		{"semantic", Semantic(pos, "x")},
		{"reference", Reference(pos, "x")},
		{"conflict", Conflict(pos, "x")},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.EqualError(t, tc.err, "f:1:0: error: x")
		})
	}
}
