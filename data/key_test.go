package data

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_EqualityIgnoresOrder(t *testing.T) {
	a := NewKey("class", "od", "expver", "0001")
	b := NewKey("expver", "0001", "class", "od")
	c := NewKey("class", "od", "expver", "0002")

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.False(t, a.Equal(c))
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.False(t, a.Equal(NewKey("class", "od")))
}

func TestKey_ValuesStringFollowsKeywordOrder(t *testing.T) {
	k := NewKey("class", "od", "stream", "oper", "date", "20240101")

	assert.Equal(t, "od:oper:20240101", k.ValuesString())
	assert.Equal(t, "{class=od,stream=oper,date=20240101}", k.String())
	assert.Equal(t, []string{"class", "stream", "date"}, k.Keywords())
}

func TestKey_SetKeepsFirstPosition(t *testing.T) {
	k := NewKey("a", "1", "b", "2")
	k.Set("a", "3")

	assert.Equal(t, "3:2", k.ValuesString())
	assert.Equal(t, 2, k.Len())
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		input   string
		want    Key
		wantErr bool
	}{
		{input: "{a=1,b=2}", want: NewKey("a", "1", "b", "2")},
		{input: "a=1", want: NewKey("a", "1")},
		{input: "", want: Key{}},
		{input: "a", wantErr: true},
		{input: "a=1,a=2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKey(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalid))
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestKey_RoundTripThroughString(t *testing.T) {
	k := NewKey("step", "0", "param", "130")

	parsed, err := ParseKey(k.String())
	require.NoError(t, err)
	assert.Equal(t, k.String(), parsed.String())
}

func TestKey_SubsetAndMerge(t *testing.T) {
	k := NewKey("a", "1", "b", "2", "c", "3")

	sub := k.Subset([]string{"c", "a", "z"})
	assert.Equal(t, "{c=3,a=1}", sub.String())

	merged := Merge(NewKey("a", "1"), NewKey("b", "2"), NewKey("a", "9"))
	assert.Equal(t, "{a=9,b=2}", merged.String())
}

func TestErrors_CollectsAll(t *testing.T) {
	errs := Errors{}
	assert.NoError(t, errs.Errors())

	first := errors.New("first")
	second := errors.New("second")
	errs.Add(first)
	errs.Add(nil)
	errs.Add(second)

	err := errs.Errors()
	require.Error(t, err)
	assert.Equal(t, 2, errs.Len())
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
}

func TestKey_JSONKeepsOrderAndSeparators(t *testing.T) {
	k := NewKey("step", "0", "param", "167,168", "levelist", "a=b/{c}")

	raw, err := json.Marshal(k)
	require.NoError(t, err)
	assert.Equal(t, `[["step","0"],["param","167,168"],["levelist","a=b/{c}"]]`, string(raw))

	var decoded Key
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, k.Equal(decoded))
	assert.Equal(t, k.Keywords(), decoded.Keywords())

	assert.ErrorIs(t, json.Unmarshal([]byte(`[["a","1"],["a","2"]]`), &decoded), ErrInvalid)
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"a":"1"}`), &decoded), ErrInvalid)
}

func TestKey_FingerprintSeparatesValues(t *testing.T) {
	a := NewKey("a", "1,b=2")
	b := NewKey("a", "1", "b", "2")

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}
