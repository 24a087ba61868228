// Package parser implements gqlcore's hand-written recursive-descent
// parser, turning query text into the ast package's Statement tree.
// Grounded on the teacher's pkg/cypher/parser.go tokenizer (character-class
// switch, string-literal handling) and pkg/cypher/pattern_parser.go
// (node/edge pattern grammar), generalized from Cypher-only clauses to the
// full DDL/Session/Transaction/DQL/DML surface spec.md §6 names.
package parser

import (
	"strings"
	"unicode"

	"github.com/nornic/gqlcore/pkg/errs"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokParam   // $name
	tokPunct   // single/double-char operators and separators
	tokKeyword // ident upper-cased to a known keyword
)

type token struct {
	kind tokenKind
	text string // original text (case-preserved for idents/strings)
	upper string // uppercased, used for keyword comparisons
	pos   int
}

// keywords that the lexer tags distinctly so the parser can dispatch on
// token.upper without re-checking case each time.
var keywordSet = map[string]bool{
	"CREATE": true, "DROP": true, "ALTER": true, "TRUNCATE": true, "CLEAR": true,
	"SCHEMA": true, "GRAPH": true, "TYPE": true, "USER": true, "ROLE": true,
	"PROCEDURE": true, "IF": true, "NOT": true, "EXISTS": true,
	"SESSION": true, "SET": true, "BEGIN": true, "COMMIT": true, "ROLLBACK": true,
	"TRANSACTION": true, "READ": true, "ONLY": true, "WRITE": true,
	"ISOLATION": true, "LEVEL": true,
	"MATCH": true, "OPTIONAL": true, "WHERE": true, "WITH": true, "RETURN": true,
	"ORDER": true, "BY": true, "LIMIT": true, "SKIP": true, "DISTINCT": true,
	"ASC": true, "DESC": true, "AS": true, "UNWIND": true,
	"INSERT": true, "REMOVE": true, "DELETE": true, "DETACH": true,
	"CALL": true, "YIELD": true, "EXPLAIN": true,
	"AND": true, "OR": true, "XOR": true, "IN": true, "IS": true, "NULL": true,
	"TRUE": true, "FALSE": true, "CONTAINS": true, "STARTS": true, "ENDS": true,
	"CASE": true, "WHEN": true, "THEN": true, "ELSE": true, "END": true,
	"GRANT": true, "REVOKE": true, "TO": true, "FROM": true, "PASSWORD": true,
	"GQL": true, "SYSTEM": true,
}

func lex(src string) ([]token, error) {
	var toks []token
	runes := []rune(src)
	i := 0
	n := len(runes)

	for i < n {
		c := runes[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '/' && i+1 < n && runes[i+1] == '/':
			for i < n && runes[i] != '\n' {
				i++
			}
		case c == '"' || c == '\'':
			start := i
			quote := c
			i++
			var sb strings.Builder
			closed := false
			for i < n {
				if runes[i] == '\\' && i+1 < n {
					sb.WriteRune(runes[i+1])
					i += 2
					continue
				}
				if runes[i] == quote {
					i++
					closed = true
					break
				}
				sb.WriteRune(runes[i])
				i++
			}
			if !closed {
				return nil, errs.ParseError("unterminated string literal at position %d", start)
			}
			toks = append(toks, token{kind: tokString, text: sb.String(), pos: start})
		case c == '$':
			start := i
			i++
			var sb strings.Builder
			for i < n && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				sb.WriteRune(runes[i])
				i++
			}
			if sb.Len() == 0 {
				return nil, errs.ParseError("bare '$' at position %d", start)
			}
			toks = append(toks, token{kind: tokParam, text: sb.String(), pos: start})
		case unicode.IsDigit(c) || (c == '.' && i+1 < n && unicode.IsDigit(runes[i+1])):
			start := i
			var sb strings.Builder
			for i < n && (unicode.IsDigit(runes[i]) || runes[i] == '.' || runes[i] == 'e' || runes[i] == 'E' ||
				((runes[i] == '+' || runes[i] == '-') && i > start && (runes[i-1] == 'e' || runes[i-1] == 'E'))) {
				sb.WriteRune(runes[i])
				i++
			}
			toks = append(toks, token{kind: tokNumber, text: sb.String(), pos: start})
		case unicode.IsLetter(c) || c == '_':
			start := i
			var sb strings.Builder
			for i < n && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				sb.WriteRune(runes[i])
				i++
			}
			text := sb.String()
			up := strings.ToUpper(text)
			kind := tokIdent
			if keywordSet[up] {
				kind = tokKeyword
			}
			toks = append(toks, token{kind: kind, text: text, upper: up, pos: start})
		default:
			start := i
			two := ""
			if i+1 < n {
				two = string(runes[i : i+2])
			}
			switch two {
			case "<>", "<=", ">=", "=~", "--", "->":
				toks = append(toks, token{kind: tokPunct, text: two, pos: start})
				i += 2
				continue
			}
			if i+2 < n && string(runes[i:i+2]) == "<-" && runes[i+2] == '-' {
				toks = append(toks, token{kind: tokPunct, text: "<--", pos: start})
				i += 3
				continue
			}
			toks = append(toks, token{kind: tokPunct, text: string(c), pos: start})
			i++
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: n})
	return toks, nil
}
