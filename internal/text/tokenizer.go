package text

import (
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/cifkit/cifkit/internal/instream"
	"github.com/cifkit/cifkit/pkg/types"
)

// Tokenizer produces a lazy, restartable sequence of Tokens from a
// sliding byte buffer.
type Tokenizer struct {
	buf  *instream.Buffer
	line []byte
	pos  int

	scratch []byte

	hasUngot bool
	ungot    Token
}

// NewTokenizer wraps buf in a tokenizer.
func NewTokenizer(buf *instream.Buffer) *Tokenizer {
	return &Tokenizer{buf: buf}
}

// LineNo returns the 1-based source line number of the most recently
// consumed line.
func (t *Tokenizer) LineNo() int { return t.buf.LineNo() }

// Unget pushes tok back; the next Next call returns it again. Only one
// level of unget is supported.
func (t *Tokenizer) Unget(tok Token) {
	t.ungot = tok
	t.hasUngot = true
}

// Next returns the next token. When ignoreMultiline is true, a
// semicolon-delimited multiline value's content is discarded (but its
// terminator is still consumed), which lets the block interpreter skip
// over multiline values cheaply when scanning for structural tokens.
// Returns io.EOF once the source is exhausted with no token pending.
func (t *Tokenizer) Next(ignoreMultiline bool) (Token, error) {
	if t.hasUngot {
		tok := t.ungot
		t.hasUngot = false
		return tok, nil
	}
	for {
		if t.pos >= len(t.line) {
			line, err := t.buf.ReadLine()
			if err != nil {
				return Token{}, err
			}
			t.line = line
			t.pos = 0
			if len(t.line) > 0 && t.line[0] == ';' {
				return t.readMultiline(ignoreMultiline)
			}
			continue
		}
		t.skipSpaces()
		if t.pos >= len(t.line) {
			continue
		}
		if t.line[t.pos] == '#' {
			t.pos = len(t.line)
			continue
		}
		return t.readToken()
	}
}

func (t *Tokenizer) skipSpaces() {
	for t.pos < len(t.line) && isSpace(t.line[t.pos]) {
		t.pos++
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\v' || b == '\f'
}

func (t *Tokenizer) readToken() (Token, error) {
	c := t.line[t.pos]
	if c == '\'' || c == '"' {
		return t.readQuoted(c)
	}
	start := t.pos
	for t.pos < len(t.line) && !isSpace(t.line[t.pos]) {
		t.pos++
	}
	word := t.line[start:t.pos]
	return classify(decodeTokenText(word)), nil
}

// decodeTokenText decodes raw token bytes as UTF-8, falling back to
// Windows-1252 for legacy non-UTF-8 author-name bytes that occasionally
// show up in older CIF files.
func decodeTokenText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(decoded)
}

// readQuoted reads a '...' or "..." token starting at t.pos (which points
// at the opening quote). The closing quote must be followed by
// whitespace or end-of-line; an embedded quote not so followed is a
// literal character.
func (t *Tokenizer) readQuoted(q byte) (Token, error) {
	start := t.pos + 1
	i := start
	for {
		rel := bytes.IndexByte(t.line[i:], q)
		if rel < 0 {
			return Token{}, types.FormatError("unterminated quoted value", t.buf.LineNo())
		}
		i += rel
		if i+1 >= len(t.line) || isSpace(t.line[i+1]) {
			value := decodeTokenText(t.line[start:i])
			t.pos = i + 1
			return Token{Kind: KindValue, Text: value}, nil
		}
		i++
	}
}

// readMultiline reads a ';'-delimited block. t.line is the opening line
// (t.line[0] == ';'); content starts at t.line[1:] and accumulates across
// successive lines until one begins with ';'.
func (t *Tokenizer) readMultiline(ignoreMultiline bool) (Token, error) {
	t.scratch = t.scratch[:0]
	if !ignoreMultiline {
		t.scratch = append(t.scratch, t.line[1:]...)
	}
	for {
		line, err := t.buf.ReadLine()
		if err != nil {
			if err == io.EOF {
				return Token{}, types.FormatError("unterminated multiline value", t.buf.LineNo())
			}
			return Token{}, err
		}
		if len(line) > 0 && line[0] == ';' {
			t.line = line
			t.pos = 1
			if ignoreMultiline {
				return Token{Kind: KindValue}, nil
			}
			return Token{Kind: KindValue, Text: decodeTokenText(t.scratch)}, nil
		}
		if !ignoreMultiline {
			t.scratch = append(t.scratch, '\n')
			t.scratch = append(t.scratch, line...)
		}
	}
}

// classify maps a bareword to its token kind: loop_,
// save_<name>, data_<name>, _name.key, '.', '?', or a plain Value.
func classify(word string) Token {
	switch word {
	case ".":
		return Token{Kind: KindOmitted}
	case "?":
		return Token{Kind: KindUnknown}
	}
	if equalFoldASCII(word, "loop_") {
		return Token{Kind: KindLoop}
	}
	if name, ok := stripFoldPrefix(word, "data_"); ok {
		return Token{Kind: KindDataBlock, Text: name}
	}
	if name, ok := stripFoldPrefix(word, "save_"); ok {
		return Token{Kind: KindSaveFrame, Text: name}
	}
	if len(word) > 0 && word[0] == '_' {
		return Token{Kind: KindVariable, Text: word}
	}
	return Token{Kind: KindValue, Text: word}
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if lowerByte(a[i]) != lowerByte(b[i]) {
			return false
		}
	}
	return true
}

func stripFoldPrefix(s, prefix string) (string, bool) {
	if len(s) < len(prefix) {
		return "", false
	}
	for i := 0; i < len(prefix); i++ {
		if lowerByte(s[i]) != prefix[i] {
			return "", false
		}
	}
	return s[len(prefix):], true
}

func lowerByte(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
