package vocab

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = [][]string{
	{"tôi", "là", "sinh", "viên"},
	{"tôi", "là", "giáo", "viên"},
	{"tôi", "đi"},
}

func TestBuildOrdering(t *testing.T) {
	v, err := Build(corpus, Options{Specials: TargetSpecials})
	require.NoError(t, err)

	// tôi:3, là:2, viên:2, then single-count tokens lexicographically.
	want := []string{Unk, Pad, SOS, EOS, "tôi", "là", "viên", "giáo", "sinh", "đi"}
	assert.Equal(t, want, v.Tokens())
	assert.Equal(t, 0, v.UnkIndex())
	assert.Equal(t, 1, v.PadIndex())
	assert.Equal(t, 2, v.SOSIndex())
	assert.Equal(t, 3, v.EOSIndex())
}

func TestBuildMinFreqAndMaxSize(t *testing.T) {
	v, err := Build(corpus, Options{Specials: SourceSpecials, MinFreq: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{Unk, Pad, "tôi", "là", "viên"}, v.Tokens())
	assert.Equal(t, -1, v.SOSIndex())
	assert.Equal(t, -1, v.EOSIndex())

	v, err = Build(corpus, Options{Specials: SourceSpecials, MaxSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, v.Len())

	_, err = Build(corpus, Options{Specials: TargetSpecials, MaxSize: 2})
	assert.Error(t, err)
}

func TestIndexAndEncode(t *testing.T) {
	v, err := Build(corpus, Options{Specials: SourceSpecials})
	require.NoError(t, err)

	assert.Equal(t, v.UnkIndex(), v.Index("không"))
	ids, err := v.Encode([]string{"tôi", "không", "đi"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tôi", Unk, "đi"}, v.Decode(ids))

	bare, err := FromTokens([]string{"a", "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, -1, bare.Index("c"))
	_, err = bare.Encode([]string{"a", "c"})
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestFromTokensErrors(t *testing.T) {
	_, err := FromTokens([]string{"a", "a"}, nil)
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = FromTokens([]string{"a"}, []string{Pad})
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestTokenPanicsOutOfRange(t *testing.T) {
	v, err := FromTokens([]string{"a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "a", v.Token(0))
	assert.Panics(t, func() { v.Token(1) })
	assert.Panics(t, func() { v.Token(-1) })
}

func TestSaveLoad(t *testing.T) {
	v, err := Build(corpus, Options{Specials: TargetSpecials})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "trg.json")
	require.NoError(t, v.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, v.Tokens(), got.Tokens())
	assert.Equal(t, v.Specials(), got.Specials())
	assert.Equal(t, v.Index("viên"), got.Index("viên"))

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
