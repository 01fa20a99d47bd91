package calc

import (
	"fmt"
	"strings"
	"text/scanner"

	"github.com/aretw0/ratlab/pkg/domain"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokOp // text holds the operator or punctuation
)

type token struct {
	kind  tokenKind
	text  string
	col   int  // 1-based column of the first character
	space bool // preceded by whitespace
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.text)
}

// lex splits a statement into tokens. Everything after a '%' is a comment.
func lex(src string) ([]token, error) {
	if i := strings.IndexByte(src, '%'); i >= 0 {
		src = src[:i]
	}

	var s scanner.Scanner
	s.Init(strings.NewReader(src))
	s.Mode = scanner.ScanIdents | scanner.ScanFloats
	s.Whitespace = 1<<' ' | 1<<'\t' | 1<<'\r' | 1<<'\n'

	var scanErr error
	s.Error = func(s *scanner.Scanner, msg string) {
		if scanErr == nil {
			scanErr = domain.NewEvaluationError(kindSyntax, "%s at column %d", msg, s.Position.Column)
		}
	}

	var toks []token
	prevEnd := 0
	for r := s.Scan(); r != scanner.EOF; r = s.Scan() {
		pos := s.Position
		text := s.TokenText()
		tok := token{text: text, col: pos.Column, space: pos.Offset > prevEnd}
		prevEnd = pos.Offset + len(text)

		switch r {
		case scanner.Int, scanner.Float:
			tok.kind = tokNumber
			// "2.*a" is 2 followed by ".*", not the float "2." times a.
			if strings.HasSuffix(text, ".") && s.Peek() == '*' {
				s.Next()
				tok.text = text[:len(text)-1]
				toks = append(toks, tok)
				tok = token{kind: tokOp, text: ".*", col: pos.Column + len(text) - 1}
				prevEnd++
			}
		case scanner.Ident:
			tok.kind = tokIdent
		case '+', '-', '*', '/', '=', ':', '(', ')', '[', ']', ',', ';':
			tok.kind = tokOp
		case '.':
			if s.Peek() != '*' {
				return nil, domain.NewEvaluationError(kindSyntax, "unexpected \".\" at column %d", pos.Column)
			}
			s.Next()
			tok.kind = tokOp
			tok.text = ".*"
			prevEnd++
		default:
			return nil, domain.NewEvaluationError(kindSyntax, "unexpected %q at column %d", text, pos.Column)
		}
		if scanErr != nil {
			return nil, scanErr
		}
		toks = append(toks, tok)
	}
	if scanErr != nil {
		return nil, scanErr
	}
	return append(toks, token{kind: tokEOF, col: len(src) + 1}), nil
}
