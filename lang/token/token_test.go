package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		require.NotEmpty(t, tok.String(), "token %d", tok)
	}
}

func TestLookup(t *testing.T) {
	require.Equal(t, DEFINE, Lookup("define"))
	require.Equal(t, SETBOX, Lookup("setbox"))
	require.Equal(t, SYMBOL, Lookup("make-adder"))
	require.Equal(t, SYMBOL, Lookup("x"))
}

func TestLookupOperator(t *testing.T) {
	tok, ok := LookupOperator('+')
	require.True(t, ok)
	require.Equal(t, ADD, tok)

	_, ok = LookupOperator('!')
	require.False(t, ok)
}

func TestIsUnaryBinary(t *testing.T) {
	require.True(t, NOT.IsUnary())
	require.True(t, BOX.IsUnary())
	require.True(t, UNBOX.IsUnary())
	require.False(t, ADD.IsUnary())

	require.True(t, ADD.IsBinary())
	require.True(t, SETBOX.IsBinary())
	require.False(t, NOT.IsBinary())
}
