package speech

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxChunkLen is the longest chunk, in characters, handed to a backend
// when no other limit is configured.
const DefaultMaxChunkLen = 200

// Chunk is a bounded-length speakable slice of a text.
type Chunk struct {
	Text   string // Normalized chunk text
	Index  int    // Position in the chunk sequence (0-based)
	Offset int    // Byte offset of the chunk's first byte in the source text

	origin []int // source offset of every byte in Text
}

// SourceOffset maps a byte offset relative to the chunk text to a byte offset
// in the source text the chunk was cut from.
func (c Chunk) SourceOffset(rel int) int {
	if rel < 0 {
		rel = 0
	}
	switch {
	case rel < len(c.origin):
		return c.origin[rel]
	case len(c.origin) > 0:
		return c.origin[len(c.origin)-1] + 1 + rel - len(c.origin)
	default:
		return c.Offset + rel
	}
}

// Len returns the chunk length in characters.
func (c Chunk) Len() int {
	return utf8.RuneCountInString(c.Text)
}

// span is a half-open byte range of the normalized text.
type span struct {
	start, end int
}

// Segment splits text into chunks of at most maxLen characters, preferring
// sentence boundaries. Whitespace is collapsed; a sentence longer than maxLen
// is split into pieces, at a space where one is available.
func Segment(text string, maxLen int) []Chunk {
	if maxLen < 1 {
		maxLen = 1
	}
	norm, origin := normalize(text)
	if norm == "" {
		return nil
	}

	var chunks []Chunk
	emit := func(s span) {
		chunks = append(chunks, Chunk{
			Text:   norm[s.start:s.end],
			Index:  len(chunks),
			Offset: origin[s.start],
			origin: origin[s.start:s.end],
		})
	}

	var buf span
	bufLen := 0
	flush := func() {
		if bufLen > 0 {
			emit(buf)
		}
		bufLen = 0
	}

	for _, sent := range sentences(norm) {
		n := utf8.RuneCountInString(norm[sent.start:sent.end])
		switch {
		case n > maxLen:
			flush()
			for _, piece := range hardSplit(norm, sent, maxLen) {
				emit(piece)
			}
		case bufLen == 0:
			buf, bufLen = sent, n
		case bufLen+n+1 <= maxLen:
			buf.end = sent.end
			bufLen += n + 1
		default:
			flush()
			buf, bufLen = sent, n
		}
	}
	flush()

	return chunks
}

// normalize trims text and collapses every whitespace run into one space. It
// returns the normalized text and the source offset of each of its bytes.
func normalize(text string) (string, []int) {
	var b strings.Builder
	b.Grow(len(text))
	origin := make([]int, 0, len(text))

	space := -1
	for i := 0; i < len(text); {
		r, w := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			if space < 0 {
				space = i
			}
			i += w
			continue
		}
		if space >= 0 && b.Len() > 0 {
			b.WriteByte(' ')
			origin = append(origin, space)
		}
		space = -1
		b.WriteString(text[i : i+w])
		for k := 0; k < w; k++ {
			origin = append(origin, i+k)
		}
		i += w
	}
	return b.String(), origin
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '…', '。', '！', '？', '．', '｡':
		return true
	}
	return false
}

func isClosing(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '»', '”', '’', '」', '』', '）':
		return true
	}
	return false
}

// sentences splits normalized text at runs of terminal punctuation (and any
// closing quotes or brackets after them) that are followed by a space or the
// end of the text.
func sentences(norm string) []span {
	var out []span
	start := 0
	for i := 0; i < len(norm); {
		r, w := utf8.DecodeRuneInString(norm[i:])
		if !isTerminal(r) {
			i += w
			continue
		}
		j := i + w
		for j < len(norm) {
			r, w := utf8.DecodeRuneInString(norm[j:])
			if !isTerminal(r) && !isClosing(r) {
				break
			}
			j += w
		}
		switch {
		case j == len(norm):
			out = append(out, span{start, j})
			start = j
		case norm[j] == ' ':
			out = append(out, span{start, j})
			start = j + 1
		}
		i = j
	}
	if start < len(norm) {
		out = append(out, span{start, len(norm)})
	}
	return out
}

// hardSplit cuts s into pieces of at most maxLen characters, never inside a
// rune. A piece ends at the last space of its window when there is one.
func hardSplit(norm string, s span, maxLen int) []span {
	var pieces []span
	for s.start < s.end {
		w, n := s.start, 0
		for w < s.end && n < maxLen {
			_, size := utf8.DecodeRuneInString(norm[w:s.end])
			w += size
			n++
		}
		if w >= s.end {
			pieces = append(pieces, span{s.start, s.end})
			break
		}
		if norm[w] == ' ' {
			pieces = append(pieces, span{s.start, w})
			s.start = w + 1
			continue
		}
		if cut := strings.LastIndexByte(norm[s.start:w], ' '); cut > 0 {
			pieces = append(pieces, span{s.start, s.start + cut})
			s.start += cut + 1
			continue
		}
		pieces = append(pieces, span{s.start, w})
		s.start = w
	}
	return pieces
}
