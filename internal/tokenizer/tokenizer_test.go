package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"
)

func TestVietnamese(t *testing.T) {
	v := NewVietnamese()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"words and punctuation", "Tôi là sinh viên.", []string{"Tôi", "là", "sinh", "viên", "."}},
		{"grouped number", "Giá 1.000,5 đồng, rất rẻ!", []string{"Giá", "1.000,5", "đồng", ",", "rất", "rẻ", "!"}},
		{"abbreviation", "TP.HCM đẹp", []string{"TP.", "HCM", "đẹp"}},
		{"hyphen and apostrophe", "Ê-đê k'nia", []string{"Ê-đê", "k'nia"}},
		{"trailing hyphen is split", "a- b", []string{"a", "-", "b"}},
		{"extra spaces", "  xin   chào  ", []string{"xin", "chào"}},
		{"empty", "", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, v.Tokenize(tc.in))
		})
	}
}

func TestVietnameseNormalizesToNFC(t *testing.T) {
	v := NewVietnamese()
	decomposed := norm.NFD.String("Việt Nam")
	require.NotEqual(t, "Việt Nam", decomposed)

	assert.Equal(t, []string{"Việt", "Nam"}, v.Tokenize(decomposed))
}

func TestWhitespace(t *testing.T) {
	w := NewWhitespace()
	assert.Equal(t, []string{"a", "b", "c"}, w.Tokenize(" a\tb\nc "))
	assert.Empty(t, w.Tokenize("   "))
	assert.Equal(t, LangWhitespace, w.Language())
}

func TestNew(t *testing.T) {
	vi, err := New("vi")
	require.NoError(t, err)
	assert.Equal(t, LangVietnamese, vi.Language())

	_, err = New("fr")
	assert.ErrorIs(t, err, ErrUnknownLanguage)
}

func TestJapanese(t *testing.T) {
	ja, err := New("ja")
	require.NoError(t, err)
	assert.Equal(t, LangJapanese, ja.Language())

	assert.Equal(t, []string{"すもも", "も", "もも", "も", "もも", "の", "うち"},
		ja.Tokenize("すもももももももものうち"))
	assert.Equal(t, []string{"私", "は", "学生", "です"}, ja.Tokenize("私は学生です"))
	assert.Empty(t, ja.Tokenize(""))
}

func TestJapaneseCoversInput(t *testing.T) {
	ja, err := NewJapanese()
	require.NoError(t, err)

	for _, s := range []string{
		"東京へ行きます。",
		"ＡＢＣ　と ｶﾀｶﾅ",
		"今日は 2024年 です",
	} {
		tokens := ja.Tokenize(s)
		for _, tok := range tokens {
			assert.NotEmpty(t, strings.TrimSpace(tok))
		}
		want := strings.Join(strings.Fields(norm.NFKC.String(s)), "")
		assert.Equal(t, want, strings.Join(tokens, ""), "tokens of %q", s)
	}
}
