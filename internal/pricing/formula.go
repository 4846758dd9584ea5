package pricing

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
)

// EvaluateFormula computes a wholesale-price formula such as "X*0.9-0.05"
// with X bound to the final price. Only arithmetic on the single variable is
// accepted; anything else is an invalid formula. An empty or invalid formula
// yields 0.
func EvaluateFormula(finalPrice float64, formula string) float64 {
	if strings.TrimSpace(formula) == "" {
		return 0
	}
	result, err := evalExpression(formula, finalPrice)
	if err != nil {
		log.Error().
			Err(err).
			Str("formula", formula).
			Msg("Invalid wholesale formula")
		return 0
	}
	return result
}

// formulaParser is a recursive-descent parser over the grammar
//
//	expr   = term { ("+" | "-") term }
//	term   = factor { ("*" | "/") factor }
//	factor = number | "X" | "(" expr ")" | "-" factor
type formulaParser struct {
	input []rune
	pos   int
	x     float64
}

func evalExpression(formula string, x float64) (float64, error) {
	p := &formulaParser{input: []rune(formula), x: x}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	return value, nil
}

func (p *formulaParser) skipSpaces() {
	for p.pos < len(p.input) && unicode.IsSpace(p.input[p.pos]) {
		p.pos++
	}
}

func (p *formulaParser) peek() (rune, bool) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *formulaParser) parseExpr() (float64, error) {
	value, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '+' && op != '-') {
			return value, nil
		}
		p.pos++
		rhs, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			value += rhs
		} else {
			value -= rhs
		}
	}
}

func (p *formulaParser) parseTerm() (float64, error) {
	value, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '*' && op != '/') {
			return value, nil
		}
		p.pos++
		rhs, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			value *= rhs
		} else {
			if rhs == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			value /= rhs
		}
	}
}

func (p *formulaParser) parseFactor() (float64, error) {
	ch, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("unexpected end of formula")
	}

	switch {
	case ch == '-':
		p.pos++
		value, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		return -value, nil

	case ch == '(':
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		closing, ok := p.peek()
		if !ok || closing != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return value, nil

	case ch == 'X' || ch == 'x':
		p.pos++
		return p.x, nil

	case unicode.IsDigit(ch) || ch == '.':
		start := p.pos
		for p.pos < len(p.input) && (unicode.IsDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
			p.pos++
		}
		value, err := strconv.ParseFloat(string(p.input[start:p.pos]), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", string(p.input[start:p.pos]))
		}
		return value, nil

	default:
		return 0, fmt.Errorf("unexpected character %q at position %d", ch, p.pos)
	}
}
