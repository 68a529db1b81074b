package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Evaluate parses and evaluates a boolean expression against the given
// bindings.
//
// Grammar: comparisons (==, !=, >, <, >=, <=) over numbers, quoted
// strings, true/false, and identifiers; combined with &&, ||, ! and
// parentheses. Identifiers resolve against vars, with dot notation for
// nested maps ("result.score"). Unbound identifiers evaluate to nil,
// which is falsy and only equal to nil.
//
// An empty expression is false.
func Evaluate(input string, vars map[string]any) (bool, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return false, nil
	}

	toks, err := scan(input)
	if err != nil {
		return false, err
	}

	p := parser{toks: toks, vars: vars}
	v, err := p.or()
	if err != nil {
		return false, err
	}
	if p.pos != len(p.toks) {
		return false, fmt.Errorf("trailing token %q", p.toks[p.pos].text)
	}
	return truthy(v), nil
}

// --- scanner ---

type tokKind int

const (
	tokNumber tokKind = iota
	tokString
	tokIdent
	tokOp
	tokLParen
	tokRParen
)

type tok struct {
	kind tokKind
	text string
}

func scan(input string) ([]tok, error) {
	var toks []tok
	rs := []rune(input)
	i := 0

	for i < len(rs) {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case r == '(':
			toks = append(toks, tok{tokLParen, "("})
			i++

		case r == ')':
			toks = append(toks, tok{tokRParen, ")"})
			i++

		case r == '"':
			s, next, err := scanString(rs, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok{tokString, s})
			i = next

		case isTwoCharOp(rs, i):
			toks = append(toks, tok{tokOp, string(rs[i : i+2])})
			i += 2

		case r == '>' || r == '<' || r == '!':
			toks = append(toks, tok{tokOp, string(r)})
			i++

		case unicode.IsDigit(r) || (r == '-' && i+1 < len(rs) && unicode.IsDigit(rs[i+1]) && negAllowed(toks)):
			s, next := scanNumber(rs, i)
			toks = append(toks, tok{tokNumber, s})
			i = next

		case unicode.IsLetter(r) || r == '_':
			s, next := scanIdent(rs, i)
			toks = append(toks, tok{tokIdent, s})
			i = next

		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", string(r), i)
		}
	}
	return toks, nil
}

func isTwoCharOp(rs []rune, i int) bool {
	if i+1 >= len(rs) {
		return false
	}
	switch string(rs[i : i+2]) {
	case "==", "!=", ">=", "<=", "&&", "||":
		return true
	}
	return false
}

// negAllowed reports whether '-' starts a negative literal rather than
// following a value.
func negAllowed(toks []tok) bool {
	if len(toks) == 0 {
		return true
	}
	last := toks[len(toks)-1]
	return last.kind == tokOp || last.kind == tokLParen
}

func scanString(rs []rune, start int) (string, int, error) {
	var sb strings.Builder
	i := start + 1
	for i < len(rs) {
		switch {
		case rs[i] == '\\' && i+1 < len(rs):
			sb.WriteRune(rs[i+1])
			i += 2
		case rs[i] == '"':
			return sb.String(), i + 1, nil
		default:
			sb.WriteRune(rs[i])
			i++
		}
	}
	return "", 0, fmt.Errorf("unterminated string at offset %d", start)
}

func scanNumber(rs []rune, start int) (string, int) {
	i := start
	if rs[i] == '-' {
		i++
	}
	for i < len(rs) && unicode.IsDigit(rs[i]) {
		i++
	}
	if i < len(rs) && rs[i] == '.' {
		i++
		for i < len(rs) && unicode.IsDigit(rs[i]) {
			i++
		}
	}
	return string(rs[start:i]), i
}

func scanIdent(rs []rune, start int) (string, int) {
	i := start
	for i < len(rs) && (unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) || rs[i] == '_' || rs[i] == '.') {
		i++
	}
	return string(rs[start:i]), i
}

// --- recursive descent parser ---

type parser struct {
	toks []tok
	pos  int
	vars map[string]any
}

func (p *parser) peek() *tok {
	if p.pos < len(p.toks) {
		return &p.toks[p.pos]
	}
	return nil
}

func (p *parser) next() tok {
	t := p.toks[p.pos]
	p.pos++
	return t
}

func (p *parser) peekOp(ops ...string) bool {
	t := p.peek()
	if t == nil || t.kind != tokOp {
		return false
	}
	for _, op := range ops {
		if t.text == op {
			return true
		}
	}
	return false
}

func (p *parser) or() (any, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.peekOp("||") {
		p.next()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = truthy(left) || truthy(right)
	}
	return left, nil
}

func (p *parser) and() (any, error) {
	left, err := p.comparison()
	if err != nil {
		return nil, err
	}
	for p.peekOp("&&") {
		p.next()
		right, err := p.comparison()
		if err != nil {
			return nil, err
		}
		left = truthy(left) && truthy(right)
	}
	return left, nil
}

func (p *parser) comparison() (any, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	if p.peekOp("==", "!=", ">", "<", ">=", "<=") {
		op := p.next().text
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		return compare(left, op, right), nil
	}
	return left, nil
}

func (p *parser) unary() (any, error) {
	if p.peekOp("!") {
		p.next()
		v, err := p.unary()
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil
	}
	return p.primary()
}

func (p *parser) primary() (any, error) {
	t := p.peek()
	if t == nil {
		return nil, fmt.Errorf("unexpected end of expression")
	}

	switch t.kind {
	case tokNumber:
		p.next()
		return strconv.ParseFloat(t.text, 64)

	case tokString:
		p.next()
		return t.text, nil

	case tokIdent:
		p.next()
		switch t.text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return lookup(t.text, p.vars), nil

	case tokLParen:
		p.next()
		v, err := p.or()
		if err != nil {
			return nil, err
		}
		if p.peek() == nil || p.peek().kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.next()
		return v, nil

	default:
		return nil, fmt.Errorf("unexpected token %q", t.text)
	}
}

// --- evaluation semantics ---

// lookup resolves a dot-notation path against the bindings. Missing
// segments yield nil.
func lookup(path string, vars map[string]any) any {
	var cur any = vars
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[part]
		if !ok {
			return nil
		}
	}
	return cur
}

// compare evaluates a binary comparison. Numbers compare numerically,
// everything else falls back to string comparison. nil orders below
// every non-nil value.
func compare(left any, op string, right any) bool {
	if left == nil && right == nil {
		return op == "==" || op == ">=" || op == "<="
	}
	if left == nil || right == nil {
		switch op {
		case "!=":
			return true
		case "==":
			return false
		}
		if left == nil {
			return op == "<" || op == "<="
		}
		return op == ">" || op == ">="
	}

	if lf, lok := asFloat(left); lok {
		if rf, rok := asFloat(right); rok {
			return compareOrdered(lf, op, rf)
		}
	}
	return compareOrdered(fmt.Sprintf("%v", left), op, fmt.Sprintf("%v", right))
}

func compareOrdered[T float64 | string](left T, op string, right T) bool {
	switch op {
	case "==":
		return left == right
	case "!=":
		return left != right
	case ">":
		return left > right
	case "<":
		return left < right
	case ">=":
		return left >= right
	case "<=":
		return left <= right
	}
	return false
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case int:
		return val != 0
	case string:
		return val != "" && val != "false" && val != "0"
	default:
		return true
	}
}

func asFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
