// Package tokenizer splits raw sentences into word-level tokens for the vocabularies.
//
// Japanese text has no spaces, so it is segmented morphologically with kagome and the IPA
// dictionary. Vietnamese is written with spaces between syllables and is split by a small
// set of regular-expression rules that keep numbers, abbreviations and hyphenated words
// together. Both tokenizers normalize their input with Unicode normalization forms first
// (NFKC for Japanese, NFC for Vietnamese).
//
// Example usage:
//
//	ja, err := tokenizer.New("ja")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tokens := ja.Tokenize("私は学生です") // [私 は 学生 です]
package tokenizer
