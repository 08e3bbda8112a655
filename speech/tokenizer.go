package speech

import "unicode"

// Token is a word or non-word slice of text.
type Token struct {
	Text   string // Slice of the input
	Start  int    // Byte offset of the first byte (inclusive)
	End    int    // Byte offset past the last byte (exclusive)
	IsWord bool   // Token consists of word characters
}

// IsWordRune reports whether r belongs to the word character class: letters,
// digits, combining marks and apostrophes.
func IsWordRune(r rune) bool {
	switch r {
	case '\'', '’':
		return true
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// Tokenize splits text into maximal runs of word and non-word characters.
// The tokens partition text exactly: concatenating their Text fields yields
// the input, and each token ends where the next one starts.
func Tokenize(text string) []Token {
	var tokens []Token
	start := 0
	word := false
	for i, r := range text {
		isWord := IsWordRune(r)
		if i == 0 {
			word = isWord
			continue
		}
		if isWord != word {
			tokens = append(tokens, Token{Text: text[start:i], Start: start, End: i, IsWord: word})
			start = i
			word = isWord
		}
	}
	if start < len(text) {
		tokens = append(tokens, Token{Text: text[start:], Start: start, End: len(text), IsWord: word})
	}
	return tokens
}

// Words returns only the word tokens of tokens.
func Words(tokens []Token) []Token {
	words := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if t.IsWord {
			words = append(words, t)
		}
	}
	return words
}

