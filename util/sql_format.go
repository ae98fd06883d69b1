package util

import (
	"strings"
)

type sqlTokenKind int

const (
	sqlTokenWord sqlTokenKind = iota
	sqlTokenString
	sqlTokenQuotedIdent
	sqlTokenOpenParen
	sqlTokenCloseParen
	sqlTokenComma
	sqlTokenCast
	sqlTokenOperator
)

type sqlToken struct {
	kind sqlTokenKind
	text string
}

const sqlIndent = "  "

func isSQLWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c == '_' || c == '.' || c == '$' || c == '*'
}

func isSQLOperatorChar(c byte) bool {
	return strings.IndexByte("<>=!|+-/%~^&:;", c) >= 0
}

// readQuoted returns the end offset of the quoted run starting at i. A doubled quote is an escape.
func readQuoted(sql string, i int, quote byte) int {
	j := i + 1
	for j < len(sql) {
		if sql[j] == quote {
			if j+1 < len(sql) && sql[j+1] == quote {
				j += 2
				continue
			}
			return j + 1
		}
		j++
	}
	return j
}

func tokenizeSQL(sql string) []sqlToken {
	tokens := make([]sqlToken, 0)
	i := 0
	for i < len(sql) {
		c := sql[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '\'':
			j := readQuoted(sql, i, '\'')
			tokens = append(tokens, sqlToken{sqlTokenString, sql[i:j]})
			i = j
		case c == '"':
			j := readQuoted(sql, i, '"')
			tokens = append(tokens, sqlToken{sqlTokenQuotedIdent, sql[i:j]})
			i = j
		case c == '(':
			tokens = append(tokens, sqlToken{sqlTokenOpenParen, "("})
			i++
		case c == ')':
			tokens = append(tokens, sqlToken{sqlTokenCloseParen, ")"})
			i++
		case c == ',':
			tokens = append(tokens, sqlToken{sqlTokenComma, ","})
			i++
		case c == ':' && i+1 < len(sql) && sql[i+1] == ':':
			tokens = append(tokens, sqlToken{sqlTokenCast, "::"})
			i += 2
		case isSQLWordChar(c):
			j := i
			for j < len(sql) && isSQLWordChar(sql[j]) {
				j++
			}
			tokens = append(tokens, sqlToken{sqlTokenWord, sql[i:j]})
			i = j
		case isSQLOperatorChar(c):
			j := i
			for j < len(sql) && isSQLOperatorChar(sql[j]) && !(sql[j] == ':' && j+1 < len(sql) && sql[j+1] == ':') {
				j++
			}
			if j == i {
				j++
			}
			tokens = append(tokens, sqlToken{sqlTokenOperator, sql[i:j]})
			i = j
		default:
			tokens = append(tokens, sqlToken{sqlTokenOperator, string(c)})
			i++
		}
	}
	return tokens
}

// Keywords that keep a space before a following parenthesis.
var spacedBeforeParen = map[string]bool{
	"AS": true, "IN": true, "ON": true, "AND": true, "OR": true, "NOT": true, "FROM": true,
	"JOIN": true, "WHERE": true, "OVER": true, "EXISTS": true, "SELECT": true, "THEN": true,
	"ELSE": true, "WHEN": true, "ALL": true, "BY": true, "WITH": true,
}

var joinModifiers = map[string]bool{"LEFT": true, "RIGHT": true, "INNER": true, "FULL": true, "CROSS": true}

func upperWord(tokens []sqlToken, i int) string {
	if i < 0 || i >= len(tokens) || tokens[i].kind != sqlTokenWord {
		return ""
	}
	return strings.ToUpper(tokens[i].text)
}

// isClauseStart reports whether the word at i opens a new clause line.
func isClauseStart(tokens []sqlToken, i int) bool {
	word := upperWord(tokens, i)
	switch word {
	case "SELECT", "FROM", "WHERE", "HAVING", "UNION", "WITH", "LIMIT":
		return true
	case "GROUP", "ORDER":
		return upperWord(tokens, i+1) == "BY"
	case "JOIN":
		return !joinModifiers[upperWord(tokens, i-1)] && upperWord(tokens, i-1) != "OUTER"
	}
	if joinModifiers[word] {
		next := upperWord(tokens, i+1)
		return next == "JOIN" || next == "OUTER"
	}
	return false
}

func needsSpace(prev *sqlToken, tok sqlToken) bool {
	if prev == nil {
		return false
	}
	if prev.kind == sqlTokenOpenParen || prev.kind == sqlTokenCast {
		return false
	}
	switch tok.kind {
	case sqlTokenCloseParen, sqlTokenComma, sqlTokenCast:
		return false
	case sqlTokenOpenParen:
		if prev.kind == sqlTokenWord {
			return spacedBeforeParen[strings.ToUpper(prev.text)]
		}
	}
	return true
}

// FormatSQL pretty prints a statement: one line per clause, subqueries indented by
// nesting depth, list items of a clause on their own lines. Only whitespace outside
// of quoted literals and identifiers changes.
func FormatSQL(sql string) string {
	tokens := tokenizeSQL(sql)

	var b strings.Builder
	// true for parentheses wrapping a subquery.
	stack := make([]bool, 0)
	blockDepth := 0
	lineStart := true
	var prev *sqlToken

	newline := func(indent int) {
		b.WriteString("\n")
		b.WriteString(strings.Repeat(sqlIndent, indent))
		lineStart = true
	}
	write := func(tok sqlToken) {
		if !lineStart && needsSpace(prev, tok) {
			b.WriteString(" ")
		}
		b.WriteString(tok.text)
		lineStart = false
	}

	for i := range tokens {
		tok := tokens[i]
		atClauseLevel := len(stack) == 0 || stack[len(stack)-1]

		switch tok.kind {
		case sqlTokenWord:
			if atClauseLevel && isClauseStart(tokens, i) && b.Len() > 0 && !lineStart {
				newline(blockDepth)
			}
			write(tok)
		case sqlTokenOpenParen:
			next := upperWord(tokens, i+1)
			block := next == "SELECT" || next == "WITH"
			write(tok)
			stack = append(stack, block)
			if block {
				blockDepth++
				newline(blockDepth)
			}
		case sqlTokenCloseParen:
			if len(stack) > 0 {
				block := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if block {
					blockDepth--
					newline(blockDepth)
				}
			}
			write(tok)
		case sqlTokenComma:
			write(tok)
			if atClauseLevel {
				newline(blockDepth + 1)
			}
		default:
			write(tok)
		}
		prev = &tokens[i]
	}
	return b.String()
}
