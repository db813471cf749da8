package stringutil_test

import (
	"testing"

	"github.com/JaneliaSciComp/aitch/internal/cmn/stringutil"
	"github.com/stretchr/testify/require"
)

func TestInts(t *testing.T) {
	values, err := stringutil.SplitInts("1, 2,3", ",")
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, values)
	require.Equal(t, "1 2 3", stringutil.JoinInts(values, " "))

	empty, err := stringutil.SplitInts("", " ")
	require.NoError(t, err)
	require.Empty(t, empty)

	_, err = stringutil.SplitInts("1,x", ",")
	require.Error(t, err)
}

func TestKeyValue(t *testing.T) {
	kv := stringutil.KeyValue("FOO=a=b")
	require.Equal(t, "FOO", kv.Key())
	require.Equal(t, "a=b", kv.Value())
	require.True(t, kv.Valid())
	require.False(t, stringutil.KeyValue("=x").Valid())
	require.False(t, stringutil.KeyValue("FOO").Valid())
}
