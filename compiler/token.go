package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota

	// Literals
	TokenNumber     // 42, 3.14
	TokenString     // "hello"
	TokenIdentifier // foo, Bar

	// Single-character punctuation
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenComma     // ,
	TokenSemicolon // ;
	TokenPlus      // +
	TokenMinus     // -
	TokenStar      // *
	TokenSlash     // /

	// One- or two-character operators
	TokenBang         // !
	TokenBangEqual    // !=
	TokenEqual        // =
	TokenEqualEqual   // ==
	TokenGreater      // >
	TokenGreaterEqual // >=
	TokenLess         // <
	TokenLessEqual    // <=

	// Keywords
	TokenAnd
	TokenElse
	TokenFalse
	TokenFun
	TokenIf
	TokenNil
	TokenOr
	TokenPrint
	TokenReturn
	TokenTrue
	TokenVar
	TokenWhile
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "EOF",
	TokenNumber:       "NUMBER",
	TokenString:       "STRING",
	TokenIdentifier:   "IDENTIFIER",
	TokenLParen:       "(",
	TokenRParen:       ")",
	TokenLBrace:       "{",
	TokenRBrace:       "}",
	TokenComma:        ",",
	TokenSemicolon:    ";",
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenStar:         "*",
	TokenSlash:        "/",
	TokenBang:         "!",
	TokenBangEqual:    "!=",
	TokenEqual:        "=",
	TokenEqualEqual:   "==",
	TokenGreater:      ">",
	TokenGreaterEqual: ">=",
	TokenLess:         "<",
	TokenLessEqual:    "<=",
	TokenAnd:          "and",
	TokenElse:         "else",
	TokenFalse:        "false",
	TokenFun:          "fun",
	TokenIf:           "if",
	TokenNil:          "nil",
	TokenOr:           "or",
	TokenPrint:        "print",
	TokenReturn:       "return",
	TokenTrue:         "true",
	TokenVar:          "var",
	TokenWhile:        "while",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", int(t))
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"and":    TokenAnd,
	"else":   TokenElse,
	"false":  TokenFalse,
	"fun":    TokenFun,
	"if":     TokenIf,
	"nil":    TokenNil,
	"or":     TokenOr,
	"print":  TokenPrint,
	"return": TokenReturn,
	"true":   TokenTrue,
	"var":    TokenVar,
	"while":  TokenWhile,
}

// Token represents a lexical token.
type Token struct {
	Type   TokenType
	Lexeme string // the raw text
	Line   int    // 1-based source line
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Lexeme)
}
