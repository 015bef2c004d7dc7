package expression

import (
	"testing"

	parsec "github.com/prataprc/goparsec"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func trueFn(s string) bool {
	return true
}

func falseFn(s string) bool {
	return false
}

func TestExprAllTrue(t *testing.T) {
	Y := InitParser(trueFn)
	v, s := Y(parsec.NewScanner([]byte("ed25519:abc & darc:bb")))
	require.True(t, v.(bool))
	require.True(t, s.Endof())
}

func TestExprAllFalse(t *testing.T) {
	Y := InitParser(falseFn)
	v, s := Y(parsec.NewScanner([]byte("ed25519:abc & darc:bb")))
	require.False(t, v.(bool))
	require.True(t, s.Endof())
}

func TestParsing_One(t *testing.T) {
	fn := func(s string) bool {
		return s == "ed25519:abc"
	}
	v, err := Evaluate(InitParser(fn), []byte("ed25519:abc"))
	require.NoError(t, err)
	require.True(t, v)
}

func TestParsing_Or(t *testing.T) {
	fn := func(s string) bool {
		return s == "ed25519:abc"
	}
	v, err := Evaluate(InitParser(fn), []byte("ed25519:aa | ed25519:abc | ed25519:bb"))
	require.NoError(t, err)
	require.True(t, v)
}

func TestParsing_Group(t *testing.T) {
	v, err := DefaultParser([]byte("(a:a & b:b) | (c:c & d:d)"), "a:a", "b:b")
	require.NoError(t, err)
	require.True(t, v)

	v, err = DefaultParser([]byte("(a:a & b:b) | (c:c & d:d)"), "a:a", "c:c")
	require.NoError(t, err)
	require.False(t, v)
}

func TestParsing_InvalidID(t *testing.T) {
	_, err := Evaluate(InitParser(trueFn), []byte("x"))
	require.Error(t, err)
	require.True(t, xerrors.Is(err, errScannerNotEmpty))

	_, err = Evaluate(InitParser(trueFn), []byte("ed25519: b"))
	require.Error(t, err)
}

func TestInitExpr(t *testing.T) {
	require.Equal(t, "a:a | b:b", string(InitOrExpr("a:a", "b:b")))
	require.Equal(t, "a:a & b:b", string(InitAndExpr("a:a", "b:b")))
	require.Equal(t, "a:a", string(InitOrExpr("a:a")))
}
