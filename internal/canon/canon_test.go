package canon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalizeSortsKeys(t *testing.T) {
	a := map[string]interface{}{"b": 1, "a": 2}
	b := map[string]interface{}{"a": 2, "b": 1}

	ca, err := Canonicalize(a)
	require.NoError(t, err)
	cb, err := Canonicalize(b)
	require.NoError(t, err)

	require.Equal(t, string(ca), string(cb))
	require.Equal(t, `{"a":2,"b":1}`, string(ca))
}

func TestFingerprintStable(t *testing.T) {
	fp1, err := Fingerprint(map[string]interface{}{"a": 1, "b": 2})
	require.NoError(t, err)
	fp2, err := Fingerprint(map[string]interface{}{"b": 2, "a": 1})
	require.NoError(t, err)

	require.Equal(t, fp1, fp2)
	require.Len(t, fp1, 64)
}

func TestCanonicalizeFloatRounding(t *testing.T) {
	b, err := Canonicalize(map[string]interface{}{"x": 1.0000001})
	require.NoError(t, err)
	require.Equal(t, `{"x":1.0}`, string(b))
}

func TestCanonicalizeNaNAndInf(t *testing.T) {
	nan := mustCanon(t, map[string]interface{}{"v": nanValue()})
	require.Equal(t, `{"v":null}`, nan)

	posInf := mustCanon(t, map[string]interface{}{"v": infValue(1)})
	require.Equal(t, `{"v":"Infinity"}`, posInf)

	negInf := mustCanon(t, map[string]interface{}{"v": infValue(-1)})
	require.Equal(t, `{"v":"-Infinity"}`, negInf)
}

func TestCanonicalizeDifferentInsertionOrderSameBytes(t *testing.T) {
	type pair struct{ k, v string }
	m1 := map[string]interface{}{}
	m2 := map[string]interface{}{}
	for _, p := range []pair{{"z", "1"}, {"a", "2"}, {"m", "3"}} {
		m1[p.k] = p.v
	}
	for _, p := range []pair{{"m", "3"}, {"z", "1"}, {"a", "2"}} {
		m2[p.k] = p.v
	}
	c1, err := Canonicalize(m1)
	require.NoError(t, err)
	c2, err := Canonicalize(m2)
	require.NoError(t, err)
	require.Equal(t, c1, c2)
}

func TestCanonicalizeNarrowIntegerKinds(t *testing.T) {
	got, err := Canonicalize(map[string]interface{}{
		"i8":  int8(5),
		"i16": int16(5),
		"i32": int32(5),
		"u":   uint(5),
		"u8":  uint8(5),
		"u16": uint16(5),
		"u32": uint32(5),
		"u64": uint64(5),
	})
	require.NoError(t, err)
	require.Equal(t, `{"i16":5,"i32":5,"i8":5,"u":5,"u16":5,"u32":5,"u64":5,"u8":5}`, string(got))
}

func TestFingerprintMatchesAcrossIntegerKinds(t *testing.T) {
	fp1, err := Fingerprint(map[string]interface{}{"n": int32(5)})
	require.NoError(t, err)
	fp2, err := Fingerprint(map[string]interface{}{"n": int64(5)})
	require.NoError(t, err)
	require.Equal(t, fp1, fp2)
}

func TestEncodingErrorOnChannel(t *testing.T) {
	ch := make(chan int)
	_, err := Canonicalize(ch)
	require.Error(t, err)
	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
}

func TestNormalizeSQL(t *testing.T) {
	got := NormalizeSQL("select  *\nfrom users -- comment\nwhere id=1")
	require.Equal(t, "SELECT * FROM users WHERE id = 1", got)
}

func TestNormalizeSQLStripsBlockComments(t *testing.T) {
	got := NormalizeSQL("select 1 /* block \n comment */ from dual")
	require.Equal(t, "SELECT 1 FROM dual", got)
}

func mustCanon(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := Canonicalize(v)
	require.NoError(t, err)
	return string(b)
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func infValue(sign int) float64 {
	var zero float64
	if sign < 0 {
		return -1 / zero
	}
	return 1 / zero
}
