package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilePosition(t *testing.T) {
	src := "(define (f x)\n  (+ x 1))\n"
	f := NewFile("in.scm", len(src))
	for i, b := range []byte(src) {
		if b == '\n' {
			f.AddLine(i + 1)
		}
	}

	pos := f.Position(f.Pos(0))
	require.Equal(t, Position{Filename: "in.scm", Line: 1, Column: 1}, pos)

	// offset 15 is the second space of the second line
	pos = f.Position(f.Pos(15))
	require.Equal(t, 2, pos.Line)
}

func TestPositionString(t *testing.T) {
	p := Position{Filename: "in.scm", Line: 3, Column: 2}
	require.Equal(t, "in.scm:3:2", p.String())

	p = Position{Line: 3, Column: 2}
	require.Equal(t, "3:2", p.String())
}
