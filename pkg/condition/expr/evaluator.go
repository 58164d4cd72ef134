package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-procure/pkg/condition"
)

// Evaluator is a small, dependency-free rule evaluator.
//
// Supported syntax:
//   - truthiness: `hasPenalties`
//   - equality: `beneficiary == "other"`, `count != 3`, `value == null`
//   - ordering: `amount > 1000`, `dueDate <= "2025-01-31"`
//   - composition: `a && (b || !c)`
//
// Identifiers resolve against condition.Context.Values (exact key first, then
// dot-path traversal). The `session.` prefix resolves against the session, so
// `session.roles == "approver"` tests role membership: equality against a list
// value means "contains".
type Evaluator struct{}

func New() *Evaluator { return &Evaluator{} }

func (e *Evaluator) Eval(fieldPath, rule string, ctx condition.Context) (bool, error) {
	trimmed := strings.TrimSpace(rule)
	if trimmed == "" {
		return true, nil
	}

	node, err := Parse(trimmed)
	if err != nil {
		return false, fmt.Errorf("condition/expr: field %q: %w", fieldPath, err)
	}
	return node.eval(ctx)
}

// Node is a parsed rule expression.
type Node interface {
	eval(ctx condition.Context) (bool, error)
}

// Parse compiles a rule expression so it can be checked up front, for example
// when a schema is loaded.
func Parse(rule string) (Node, error) {
	tokens, err := tokenize(rule)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return exprConst(true), nil
	}
	return parseExpression(tokens)
}

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	raw  string
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '(', ')', '!', '=', '&', '|', '<', '>':
		return true
	}
	return false
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	peek := func() byte {
		if i >= len(input) {
			return 0
		}
		return input[i]
	}

	for i < len(input) {
		ch := input[i]
		switch ch {
		case ' ', '\t', '\n', '\r':
			i++
		case '(':
			i++
			tokens = append(tokens, token{kind: tokenLParen, raw: "("})
		case ')':
			i++
			tokens = append(tokens, token{kind: tokenRParen, raw: ")"})
		case '!':
			i++
			if peek() == '=' {
				i++
				tokens = append(tokens, token{kind: tokenNeq, raw: "!="})
				continue
			}
			tokens = append(tokens, token{kind: tokenNot, raw: "!"})
		case '=':
			i++
			if peek() != '=' {
				return nil, errors.New("unexpected '='; use '=='")
			}
			i++
			tokens = append(tokens, token{kind: tokenEq, raw: "=="})
		case '<', '>':
			i++
			kind, raw := tokenLt, "<"
			if ch == '>' {
				kind, raw = tokenGt, ">"
			}
			if peek() == '=' {
				i++
				kind++
				raw += "="
			}
			tokens = append(tokens, token{kind: kind, raw: raw})
		case '&':
			i++
			if peek() != '&' {
				return nil, errors.New("unexpected '&'; use '&&'")
			}
			i++
			tokens = append(tokens, token{kind: tokenAnd, raw: "&&"})
		case '|':
			i++
			if peek() != '|' {
				return nil, errors.New("unexpected '|'; use '||'")
			}
			i++
			tokens = append(tokens, token{kind: tokenOr, raw: "||"})
		case '"', '\'':
			value, next, err := readString(input, i)
			if err != nil {
				return nil, err
			}
			i = next
			tokens = append(tokens, token{kind: tokenString, raw: value})
		default:
			start := i
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			raw := input[start:i]
			switch strings.ToLower(raw) {
			case "true", "false":
				tokens = append(tokens, token{kind: tokenBool, raw: strings.ToLower(raw)})
			case "null", "nil":
				tokens = append(tokens, token{kind: tokenNull, raw: "null"})
			default:
				if looksLikeNumber(raw) {
					tokens = append(tokens, token{kind: tokenNumber, raw: raw})
				} else {
					tokens = append(tokens, token{kind: tokenIdentifier, raw: raw})
				}
			}
		}
	}

	return tokens, nil
}

// readString consumes a quoted literal starting at input[start] and returns
// the unquoted value and the index following the closing quote.
func readString(input string, start int) (string, int, error) {
	quote := input[start]
	escaped := false
	for i := start + 1; i < len(input); i++ {
		c := input[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c != quote {
			continue
		}
		body := input[start+1 : i]
		if quote == '\'' {
			body = strings.ReplaceAll(body, `"`, `\"`)
			body = strings.ReplaceAll(body, `\'`, `'`)
		}
		value, err := strconv.Unquote(`"` + body + `"`)
		if err != nil {
			return "", 0, fmt.Errorf("invalid string literal: %w", err)
		}
		return value, i + 1, nil
	}
	return "", 0, errors.New("unterminated string literal")
}

func looksLikeNumber(raw string) bool {
	if raw == "" {
		return false
	}
	ch := raw[0]
	return (ch >= '0' && ch <= '9') || ch == '-' || ch == '+'
}

type exprConst bool

func (n exprConst) eval(condition.Context) (bool, error) { return bool(n), nil }

type exprOr struct {
	left  Node
	right Node
}

func (n exprOr) eval(ctx condition.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

type exprAnd struct {
	left  Node
	right Node
}

func (n exprAnd) eval(ctx condition.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(ctx)
}

type exprNot struct {
	inner Node
}

func (n exprNot) eval(ctx condition.Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type literal struct {
	kind tokenKind
	raw  string
}

type exprCompare struct {
	identifier string
	op         token
	literal    literal
}

func (n exprCompare) eval(ctx condition.Context) (bool, error) {
	value, _ := lookup(ctx, n.identifier)

	if items, ok := value.([]any); ok && (n.op.kind == tokenEq || n.op.kind == tokenNeq) {
		found := false
		for _, item := range items {
			match, err := n.compare(item)
			if err != nil {
				return false, err
			}
			if match {
				found = true
				break
			}
		}
		if n.op.kind == tokenEq {
			return found, nil
		}
		// "!=" against a list means "does not contain".
		return !found, nil
	}
	return n.compare(value)
}

func (n exprCompare) compare(value any) (bool, error) {
	switch n.literal.kind {
	case tokenNull:
		switch n.op.kind {
		case tokenEq:
			return value == nil, nil
		case tokenNeq:
			return value != nil, nil
		}
	case tokenBool:
		want := n.literal.raw == "true"
		got, _ := coerceBool(value)
		switch n.op.kind {
		case tokenEq:
			return got == want, nil
		case tokenNeq:
			return got != want, nil
		}
	case tokenNumber:
		want, err := strconv.ParseFloat(n.literal.raw, 64)
		if err != nil {
			return false, fmt.Errorf("invalid number literal %q", n.literal.raw)
		}
		got, _ := coerceNumber(value)
		return order(n.op.kind, compareFloat(got, want)), nil
	case tokenString:
		got := coerceString(value)
		return order(n.op.kind, strings.Compare(got, n.literal.raw)), nil
	}
	return false, fmt.Errorf("unsupported operator %q for %s literal", n.op.raw, n.literal.raw)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func order(op tokenKind, cmp int) bool {
	switch op {
	case tokenEq:
		return cmp == 0
	case tokenNeq:
		return cmp != 0
	case tokenLt:
		return cmp < 0
	case tokenLte:
		return cmp <= 0
	case tokenGt:
		return cmp > 0
	case tokenGte:
		return cmp >= 0
	}
	return false
}

type exprTruthy struct {
	identifier string
}

func (n exprTruthy) eval(ctx condition.Context) (bool, error) {
	value, ok := lookup(ctx, n.identifier)
	if !ok {
		return false, nil
	}
	return truthy(value), nil
}

type tokenStream struct {
	tokens []token
	pos    int
}

func parseExpression(tokens []token) (Node, error) {
	stream := &tokenStream{tokens: tokens}
	node, err := parseOr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, fmt.Errorf("unexpected token %q", stream.tokens[stream.pos].raw)
	}
	return node, nil
}

func parseOr(stream *tokenStream) (Node, error) {
	left, err := parseAnd(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenOr) {
		right, err := parseAnd(stream)
		if err != nil {
			return nil, err
		}
		left = exprOr{left: left, right: right}
	}
	return left, nil
}

func parseAnd(stream *tokenStream) (Node, error) {
	left, err := parseUnary(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenAnd) {
		right, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		left = exprAnd{left: left, right: right}
	}
	return left, nil
}

func parseUnary(stream *tokenStream) (Node, error) {
	if stream.match(tokenNot) {
		inner, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		return exprNot{inner: inner}, nil
	}
	return parsePrimary(stream)
}

func parsePrimary(stream *tokenStream) (Node, error) {
	if stream.match(tokenLParen) {
		inner, err := parseOr(stream)
		if err != nil {
			return nil, err
		}
		if !stream.match(tokenRParen) {
			return nil, errors.New("missing closing ')'")
		}
		return inner, nil
	}

	ident, ok := stream.consume(tokenIdentifier)
	if !ok {
		if stream.pos >= len(stream.tokens) {
			return nil, errors.New("empty expression")
		}
		return nil, fmt.Errorf("expected identifier, got %q", stream.tokens[stream.pos].raw)
	}

	if op, ok := stream.consumeOperator(); ok {
		lit, err := stream.consumeLiteral()
		if err != nil {
			return nil, err
		}
		if op.kind != tokenEq && op.kind != tokenNeq && lit.kind != tokenNumber && lit.kind != tokenString {
			return nil, fmt.Errorf("operator %q needs a number or string operand", op.raw)
		}
		return exprCompare{identifier: ident.raw, op: op, literal: lit}, nil
	}

	return exprTruthy{identifier: ident.raw}, nil
}

func (s *tokenStream) match(kind tokenKind) bool {
	if s.pos >= len(s.tokens) || s.tokens[s.pos].kind != kind {
		return false
	}
	s.pos++
	return true
}

func (s *tokenStream) consume(kind tokenKind) (token, bool) {
	if s.pos >= len(s.tokens) || s.tokens[s.pos].kind != kind {
		return token{}, false
	}
	out := s.tokens[s.pos]
	s.pos++
	return out, true
}

func (s *tokenStream) consumeOperator() (token, bool) {
	if s.pos >= len(s.tokens) {
		return token{}, false
	}
	tok := s.tokens[s.pos]
	switch tok.kind {
	case tokenEq, tokenNeq, tokenLt, tokenLte, tokenGt, tokenGte:
		s.pos++
		return tok, true
	}
	return token{}, false
}

func (s *tokenStream) consumeLiteral() (literal, error) {
	if s.pos >= len(s.tokens) {
		return literal{}, errors.New("missing literal")
	}
	tok := s.tokens[s.pos]
	s.pos++
	switch tok.kind {
	case tokenString, tokenNumber, tokenBool, tokenNull:
		return literal{kind: tok.kind, raw: tok.raw}, nil
	case tokenIdentifier:
		// Bare words compare as strings: `type == achat`.
		return literal{kind: tokenString, raw: tok.raw}, nil
	default:
		return literal{}, fmt.Errorf("expected literal, got %q", tok.raw)
	}
}

const sessionPrefix = "session."

func lookup(ctx condition.Context, key string) (any, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false
	}
	if strings.HasPrefix(key, sessionPrefix) {
		return lookupMap(ctx.Session.Values(), key[len(sessionPrefix):])
	}
	return lookupMap(ctx.Values, key)
}

func lookupMap(values map[string]any, path string) (any, bool) {
	if len(values) == 0 || path == "" {
		return nil, false
	}
	if v, ok := values[path]; ok {
		return v, true
	}

	var current any = values
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, false
		}
		switch typed := current.(type) {
		case map[string]any:
			next, ok := typed[part]
			if !ok {
				return nil, false
			}
			current = next
		case map[string]string:
			next, ok := typed[part]
			if !ok {
				return nil, false
			}
			current = next
		default:
			return nil, false
		}
	}
	return current, true
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		if parsed, err := strconv.ParseBool(trimmed); err == nil {
			return parsed
		}
		return trimmed != ""
	case []any:
		return len(v) > 0
	case []map[string]any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	if n, ok := coerceNumber(value); ok {
		return n != 0
	}
	return true
}

func coerceBool(value any) (bool, bool) {
	switch v := value.(type) {
	case nil:
		return false, false
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			return parsed, true
		}
		return strings.TrimSpace(v) != "", true
	default:
		return truthy(value), true
	}
}

func coerceNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func coerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(value)
	}
}
