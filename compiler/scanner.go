package compiler

import (
	"unicode"
	"unicode/utf8"

	"github.com/cylixlee/ruslox/diagnostic"
)

// ---------------------------------------------------------------------------
// Scanner
// ---------------------------------------------------------------------------

// Scanner tokenizes source code. Lexical errors are collected as
// diagnostics and the offending input is skipped, so a single pass reports
// every lexical problem in the file.
type Scanner struct {
	input       string
	pos         int  // current position in input
	readPos     int  // reading position (after current char)
	ch          rune // current character
	line        int  // current line (1-based)
	diagnostics []*diagnostic.Diagnostic
}

// NewScanner creates a scanner for the given input.
func NewScanner(input string) *Scanner {
	s := &Scanner{input: input, line: 1}
	s.readChar()
	return s
}

// Scan tokenizes the whole input. The token slice always ends with an EOF
// token; the diagnostic slice holds every lexical error encountered.
func Scan(input string) ([]Token, []*diagnostic.Diagnostic) {
	s := NewScanner(input)
	var tokens []Token
	for {
		token := s.NextToken()
		tokens = append(tokens, token)
		if token.Type == TokenEOF {
			return tokens, s.Diagnostics()
		}
	}
}

// Diagnostics returns the lexical errors collected so far.
func (s *Scanner) Diagnostics() []*diagnostic.Diagnostic {
	return s.diagnostics
}

// readChar reads the next character.
func (s *Scanner) readChar() {
	if s.readPos >= len(s.input) {
		s.ch = 0 // EOF
		s.pos = s.readPos
		return
	}
	r, size := utf8.DecodeRuneInString(s.input[s.readPos:])
	s.ch = r
	s.pos = s.readPos
	s.readPos += size
	if r == '\n' {
		s.line++
	}
}

// peekChar returns the next character without consuming it.
func (s *Scanner) peekChar() rune {
	if s.readPos >= len(s.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s.input[s.readPos:])
	return r
}

// NextToken returns the next token. Lexical errors are recorded and
// skipped; the scanner never returns an error token.
func (s *Scanner) NextToken() Token {
	for {
		s.skipWhitespaceAndComments()
		line := s.line

		switch {
		case s.ch == 0:
			return Token{Type: TokenEOF, Line: line}

		case s.ch == '(':
			return s.single(TokenLParen, line)
		case s.ch == ')':
			return s.single(TokenRParen, line)
		case s.ch == '{':
			return s.single(TokenLBrace, line)
		case s.ch == '}':
			return s.single(TokenRBrace, line)
		case s.ch == ',':
			return s.single(TokenComma, line)
		case s.ch == ';':
			return s.single(TokenSemicolon, line)
		case s.ch == '+':
			return s.single(TokenPlus, line)
		case s.ch == '-':
			return s.single(TokenMinus, line)
		case s.ch == '*':
			return s.single(TokenStar, line)
		case s.ch == '/':
			return s.single(TokenSlash, line)

		case s.ch == '!':
			return s.maybeEqual(TokenBang, TokenBangEqual, line)
		case s.ch == '=':
			return s.maybeEqual(TokenEqual, TokenEqualEqual, line)
		case s.ch == '>':
			return s.maybeEqual(TokenGreater, TokenGreaterEqual, line)
		case s.ch == '<':
			return s.maybeEqual(TokenLess, TokenLessEqual, line)

		case s.ch == '"':
			if token, ok := s.readString(line); ok {
				return token
			}
			// Unterminated string: the scanner is at EOF, loop to emit it.

		case isDigit(s.ch):
			return s.readNumber(line)

		case isAlpha(s.ch):
			return s.readIdentifier(line)

		default:
			s.diagnostics = append(s.diagnostics,
				diagnostic.Newf("E0002", "unexpected character %q", s.ch).WithLine(line))
			s.readChar()
		}
	}
}

func (s *Scanner) single(t TokenType, line int) Token {
	lexeme := string(s.ch)
	s.readChar()
	return Token{Type: t, Lexeme: lexeme, Line: line}
}

func (s *Scanner) maybeEqual(plain, withEqual TokenType, line int) Token {
	lexeme := string(s.ch)
	s.readChar()
	if s.ch == '=' {
		lexeme += "="
		s.readChar()
		return Token{Type: withEqual, Lexeme: lexeme, Line: line}
	}
	return Token{Type: plain, Lexeme: lexeme, Line: line}
}

// readString scans a string literal. The closing quote is required; hitting
// EOF first records E0004 and reports failure so the caller can emit EOF.
func (s *Scanner) readString(line int) (Token, bool) {
	s.readChar() // consume opening quote
	start := s.pos
	for s.ch != '"' && s.ch != 0 {
		s.readChar()
	}
	if s.ch == 0 {
		s.diagnostics = append(s.diagnostics,
			diagnostic.New("E0004", "unterminated string").WithLine(line).
				WithNote("string opened here is never closed"))
		return Token{}, false
	}
	text := s.input[start:s.pos]
	s.readChar() // consume closing quote
	return Token{Type: TokenString, Lexeme: text, Line: line}, true
}

// readNumber scans a number literal. A trailing dot with no fraction digits
// is an invalid number, recorded as E0003.
func (s *Scanner) readNumber(line int) Token {
	start := s.pos
	for isDigit(s.ch) {
		s.readChar()
	}
	if s.ch == '.' {
		if isDigit(s.peekChar()) {
			s.readChar() // consume '.'
			for isDigit(s.ch) {
				s.readChar()
			}
		} else {
			s.readChar() // consume the stray '.'
			s.diagnostics = append(s.diagnostics,
				diagnostic.Newf("E0003", "invalid number %q", s.input[start:s.pos]).WithLine(line))
			return Token{Type: TokenNumber, Lexeme: s.input[start : s.pos-1], Line: line}
		}
	}
	return Token{Type: TokenNumber, Lexeme: s.input[start:s.pos], Line: line}
}

func (s *Scanner) readIdentifier(line int) Token {
	start := s.pos
	for isAlpha(s.ch) || isDigit(s.ch) {
		s.readChar()
	}
	lexeme := s.input[start:s.pos]
	if t, ok := reservedWords[lexeme]; ok {
		return Token{Type: t, Lexeme: lexeme, Line: line}
	}
	return Token{Type: TokenIdentifier, Lexeme: lexeme, Line: line}
}

func (s *Scanner) skipWhitespaceAndComments() {
	for {
		switch {
		case s.ch == ' ' || s.ch == '\t' || s.ch == '\r' || s.ch == '\n':
			s.readChar()
		case s.ch == '/' && s.peekChar() == '/':
			for s.ch != '\n' && s.ch != 0 {
				s.readChar()
			}
		default:
			return
		}
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAlpha(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}
