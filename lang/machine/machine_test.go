package machine_test

import (
	"testing"

	"github.com/boxlisp/boxlisp/lang/machine"
	"github.com/boxlisp/boxlisp/lang/token"
	"github.com/stretchr/testify/require"
)

func TestSingletonsAreInt64(t *testing.T) {
	require.Equal(t, machine.Int64Kind, machine.True.Kind)
	require.Equal(t, int64(1), machine.True.Int)
	require.Equal(t, machine.Int64Kind, machine.False.Kind)
	require.Equal(t, int64(0), machine.False.Int)
}

func TestNewInt64(t *testing.T) {
	v := machine.NewInt64(42)
	require.Equal(t, machine.Int64Kind, v.Kind)
	require.Equal(t, int64(42), v.Int)
}

func TestAsBool(t *testing.T) {
	var th machine.Thread
	require.False(t, machine.AsBool(machine.NilValue))
	require.False(t, machine.AsBool(machine.NewInt64(0)))
	require.True(t, machine.AsBool(machine.NewInt64(1)))
	require.True(t, machine.AsBool(machine.NewInt64(-1)))

	b := machine.Box(machine.NewInt64(0))
	require.True(t, machine.AsBool(b), "a box is truthy regardless of its contents")
	_ = th
}

func TestBinaryInt64Arithmetic(t *testing.T) {
	var th machine.Thread
	sum, err := machine.BinaryInt64(&th, token.ADD, machine.NewInt64(3), machine.NewInt64(4))
	require.NoError(t, err)
	require.Equal(t, int64(7), sum.Int)

	diff, err := machine.BinaryInt64(&th, token.SUB, machine.NewInt64(10), machine.NewInt64(3))
	require.NoError(t, err)
	require.Equal(t, int64(7), diff.Int)

	quot, err := machine.BinaryInt64(&th, token.DIV, machine.NewInt64(-7), machine.NewInt64(2))
	require.NoError(t, err)
	require.Equal(t, int64(-3), quot.Int, "division truncates toward zero")
}

func TestBinaryInt64Comparisons(t *testing.T) {
	var th machine.Thread
	gt, err := machine.BinaryInt64(&th, token.GT, machine.NewInt64(5), machine.NewInt64(3))
	require.NoError(t, err)
	require.Same(t, machine.True, gt)

	eq, err := machine.BinaryInt64(&th, token.EQL, machine.NewInt64(3), machine.NewInt64(3))
	require.NoError(t, err)
	require.Same(t, machine.True, eq)
}

func TestBinaryInt64Not(t *testing.T) {
	var th machine.Thread
	res, err := machine.BinaryInt64(&th, token.NOT, machine.NewInt64(0), nil)
	require.NoError(t, err)
	require.Same(t, machine.True, res)

	res, err = machine.BinaryInt64(&th, token.NOT, machine.NewInt64(5), nil)
	require.NoError(t, err)
	require.Same(t, machine.False, res)
}

func TestDivisionByZeroAborts(t *testing.T) {
	var th machine.Thread
	_, err := machine.BinaryInt64(&th, token.DIV, machine.NewInt64(1), machine.NewInt64(0))
	require.Error(t, err)
	var abort *machine.AbortError
	require.ErrorAs(t, err, &abort)
}

func TestBoxUnboxSetBox(t *testing.T) {
	var th machine.Thread
	b := machine.Box(machine.NewInt64(1))

	v, err := machine.Unbox(&th, b)
	require.NoError(t, err)
	require.Equal(t, int64(1), v.Int)

	old, err := machine.SetBox(&th, b, machine.NewInt64(2))
	require.NoError(t, err)
	require.Equal(t, int64(1), old.Int)

	v, err = machine.Unbox(&th, b)
	require.NoError(t, err)
	require.Equal(t, int64(2), v.Int)
}

func TestUnboxRejectsNonBox(t *testing.T) {
	var th machine.Thread
	_, err := machine.Unbox(&th, machine.NewInt64(1))
	require.Error(t, err)
}

func TestClosureGetField(t *testing.T) {
	var th machine.Thread
	b1 := machine.Box(machine.NewInt64(10))
	b2 := machine.Box(machine.NewInt64(20))
	code := func(*machine.Thread, []*machine.Value) (*machine.Value, error) { return machine.NilValue, nil }
	clo := machine.NewClosure(code, []*machine.Value{b1, b2})

	f1, err := machine.GetField(&th, clo, 1)
	require.NoError(t, err)
	require.Same(t, b1, f1)

	f2, err := machine.GetField(&th, clo, 2)
	require.NoError(t, err)
	require.Same(t, b2, f2)

	_, err = machine.GetField(&th, clo, 3)
	require.Error(t, err)
}

func TestGetCallableAndTypeOf(t *testing.T) {
	code := func(*machine.Thread, []*machine.Value) (*machine.Value, error) { return machine.NilValue, nil }
	fref := machine.NewFunctionRef(code, 2)
	clo := machine.NewClosure(code, nil)

	_, ok := machine.GetCallable(fref)
	require.True(t, ok)
	_, ok = machine.GetCallable(clo)
	require.True(t, ok)
	_, ok = machine.GetCallable(machine.NewInt64(1))
	require.False(t, ok)
	_, ok = machine.GetCallable(machine.NilValue)
	require.False(t, ok)

	require.Equal(t, machine.FunctionRefKind, machine.TypeOf(fref))
	require.Equal(t, machine.ClosureKind, machine.TypeOf(clo))
}

func TestCallBalancesRootStackOnAbort(t *testing.T) {
	var th machine.Thread
	leaky := func(th *machine.Thread, args []*machine.Value) (*machine.Value, error) {
		th.PushFrame(1)
		return nil, th.Error("boom")
	}
	_, err := machine.Call(&th, leaky, nil)
	require.Error(t, err)
	require.Equal(t, 0, th.Depth(), "Call must restore root-stack balance after an abort")
}

func TestPushPopFrame(t *testing.T) {
	var th machine.Thread
	fr := th.PushFrame(2)
	fr.Set(0, machine.NewInt64(1))
	fr.Set(1, machine.NewInt64(2))
	require.Equal(t, int64(1), fr.Get(0).Int)
	require.Equal(t, 1, th.Depth())
	th.PopFrame()
	require.Equal(t, 0, th.Depth())
}
