package botmgr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// EvalRelative 对相对坐标表达式求值。
// 文法是封闭的：operand (('+'|'-') operand)?，其中operand只能是
// current.x / current.y / current.z 或数字字面量。任何其他输入
// 都会被拒绝，表达式绝不会被当作代码执行。
func EvalRelative(expr string, pos Vec3) (float64, error) {
	tokens, err := lexRelative(expr)
	if err != nil {
		return 0, err
	}

	switch len(tokens) {
	case 1:
		return operandValue(tokens[0], pos)
	case 3:
		left, err := operandValue(tokens[0], pos)
		if err != nil {
			return 0, err
		}
		right, err := operandValue(tokens[2], pos)
		if err != nil {
			return 0, err
		}
		switch tokens[1] {
		case "+":
			return left + right, nil
		case "-":
			return left - right, nil
		default:
			return 0, fmt.Errorf("unsupported operator %q in expression %q", tokens[1], expr)
		}
	default:
		return 0, fmt.Errorf("expression %q is not of the form operand [+|-] operand", expr)
	}
}

// lexRelative 把表达式切分成操作数和运算符。
// 负数字面量只在表达式开头识别，其余位置的'-'一律视为运算符。
func lexRelative(expr string) ([]string, error) {
	var tokens []string
	s := strings.TrimSpace(expr)
	i := 0

	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++

		case c == '+' || c == '-':
			// 开头的负号归入后面的数字
			if c == '-' && len(tokens) == 0 {
				start := i
				i++
				for i < len(s) && (unicode.IsDigit(rune(s[i])) || s[i] == '.') {
					i++
				}
				if i == start+1 {
					return nil, fmt.Errorf("unexpected '-' in expression %q", expr)
				}
				tokens = append(tokens, s[start:i])
				continue
			}
			tokens = append(tokens, string(c))
			i++

		case unicode.IsDigit(rune(c)):
			start := i
			for i < len(s) && (unicode.IsDigit(rune(s[i])) || s[i] == '.') {
				i++
			}
			tokens = append(tokens, s[start:i])

		case unicode.IsLetter(rune(c)):
			start := i
			for i < len(s) && (unicode.IsLetter(rune(s[i])) || s[i] == '.') {
				i++
			}
			tokens = append(tokens, s[start:i])

		default:
			return nil, fmt.Errorf("unexpected character %q in expression %q", c, expr)
		}
	}

	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	return tokens, nil
}

func operandValue(token string, pos Vec3) (float64, error) {
	switch token {
	case "current.x":
		return pos.X, nil
	case "current.y":
		return pos.Y, nil
	case "current.z":
		return pos.Z, nil
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid operand %q: only current.x, current.y, current.z and numbers are allowed", token)
	}
	return v, nil
}
