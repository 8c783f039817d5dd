// Package lexer turns source text into a lazy sequence of located
// tokens. It is a state machine driven by one-character lookahead,
// following the shape of the teacher compiler's lexer (read/peek over a
// rune slice) extended with source locations and indentation tracking.
package lexer

import (
	"strings"

	"github.com/aveline/stepc/internal/diag"
	"github.com/aveline/stepc/internal/token"
)

// Lexer holds lexer state over one file's worth of source text.
type Lexer struct {
	file string
	src  []rune
	pos  int

	row, col int

	// lastKind records the Kind of the most recently returned token, so
	// that a run of leading whitespace can be recognized as an Indent
	// only when it immediately follows a Newline. It starts as EOF (not
	// Newline), matching the reference lexer's behavior of never
	// treating leading whitespace on the very first line as indentation.
	lastKind token.Kind
}

// New creates a Lexer over src. file is used only to tag error
// locations.
func New(file, src string) *Lexer {
	return &Lexer{
		file:     file,
		src:      []rune(src),
		row:      1,
		col:      1,
		lastKind: token.EOF,
	}
}

func (l *Lexer) errorf(row, col int, format string, args ...any) error {
	return diag.New(l.file, diag.Location{Row: row, Col: col}, format, args...)
}

func (l *Lexer) peek() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *Lexer) peekAt(offset int) (rune, bool) {
	i := l.pos + offset
	if i >= len(l.src) {
		return 0, false
	}
	return l.src[i], true
}

// advance consumes and returns the current rune, updating row/col.
func (l *Lexer) advance() rune {
	ch := l.src[l.pos]
	l.pos++
	if ch == '\n' {
		l.row++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

// Next returns the next token in the stream, or a fatal *diag.Error if
// the source cannot be lexed further.
func (l *Lexer) Next() (token.Token, error) {
	for {
		ch, ok := l.peek()
		if !ok {
			tok := token.Token{Kind: token.EOF, Row: l.row, Col: l.col}
			l.lastKind = token.EOF
			return tok, nil
		}

		switch {
		case ch == ' ' || ch == '\t':
			startRow, startCol := l.row, l.col
			n := l.consumeWhitespace()
			if l.lastKind == token.Newline {
				l.lastKind = token.Indent
				return token.Token{Kind: token.Indent, Width: n, Row: startRow, Col: startCol}, nil
			}
			// Any other horizontal whitespace run is skipped silently.
			continue

		case ch == '\n':
			row, col := l.row, l.col
			l.advance()
			l.lastKind = token.Newline
			return token.Token{Kind: token.Newline, Row: row, Col: col}, nil

		case ch == '(':
			row, col := l.row, l.col
			l.advance()
			l.lastKind = token.LParen
			return token.Token{Kind: token.LParen, Row: row, Col: col}, nil

		case ch == ')':
			row, col := l.row, l.col
			l.advance()
			l.lastKind = token.RParen
			return token.Token{Kind: token.RParen, Row: row, Col: col}, nil

		case ch == ',':
			row, col := l.row, l.col
			l.advance()
			l.lastKind = token.Comma
			return token.Token{Kind: token.Comma, Row: row, Col: col}, nil

		case ch == ':':
			row, col := l.row, l.col
			l.advance()
			l.lastKind = token.Colon
			return token.Token{Kind: token.Colon, Row: row, Col: col}, nil

		case isDigit(ch):
			return l.lexNumber()

		case isIdentStart(ch):
			return l.lexIdentifier()

		case strings.ContainsRune(token.OperatorChars, ch):
			return l.lexOperator()

		default:
			row, col := l.row, l.col
			l.advance()
			return token.Token{}, l.errorf(row, col, "unrecognized character %q", ch)
		}
	}
}

func (l *Lexer) consumeWhitespace() int {
	n := 0
	for {
		ch, ok := l.peek()
		if !ok || (ch != ' ' && ch != '\t') {
			return n
		}
		l.advance()
		n++
	}
}

func (l *Lexer) lexNumber() (token.Token, error) {
	row, col := l.row, l.col
	var sb strings.Builder
	sawDot := false
	for {
		ch, ok := l.peek()
		if !ok {
			break
		}
		if isDigit(ch) {
			sb.WriteRune(l.advance())
			continue
		}
		if ch == '.' {
			if sawDot {
				return token.Token{}, l.errorf(l.row, l.col, "malformed numeric literal: a float may contain only one '.'")
			}
			sawDot = true
			sb.WriteRune(l.advance())
			continue
		}
		break
	}
	kind := token.Integer
	if sawDot {
		kind = token.Float
	}
	l.lastKind = kind
	return token.Token{Kind: kind, Text: sb.String(), Row: row, Col: col}, nil
}

func (l *Lexer) lexIdentifier() (token.Token, error) {
	row, col := l.row, l.col
	var sb strings.Builder
	for {
		ch, ok := l.peek()
		if !ok || !isIdentPart(ch) {
			break
		}
		sb.WriteRune(l.advance())
	}
	name := sb.String()

	if kw, ok := token.LookupKeyword(name); ok {
		l.lastKind = token.Keyword
		return token.Token{Kind: token.Keyword, Keyword: kw, Row: row, Col: col}, nil
	}
	if token.LookupBuiltin(name) {
		l.lastKind = token.Builtin
		return token.Token{Kind: token.Builtin, Text: name, Row: row, Col: col}, nil
	}
	l.lastKind = token.Identifier
	return token.Token{Kind: token.Identifier, Text: name, Row: row, Col: col}, nil
}

func (l *Lexer) lexOperator() (token.Token, error) {
	row, col := l.row, l.col
	var sb strings.Builder
	for {
		ch, ok := l.peek()
		if !ok || !strings.ContainsRune(token.OperatorChars, ch) {
			break
		}
		sb.WriteRune(l.advance())
	}
	symbol := sb.String()
	op, prec, ok := token.LookupOperator(symbol)
	if !ok {
		return token.Token{}, l.errorf(row, col, "unknown operator %q", symbol)
	}
	l.lastKind = token.Operator
	return token.Token{Kind: token.Operator, Op: op, Prec: prec, Row: row, Col: col}, nil
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch rune) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || isDigit(ch)
}
