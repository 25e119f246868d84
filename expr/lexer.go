package expr

import (
	"bufio"
	"strings"
)

// Kind 词法单元类型
type Kind uint8

// 词法单元类型
const (
	KindNumber  Kind = iota // 数值
	KindIdent               // 标识符（变量、常量、函数名）
	KindOp                  // 运算符 + - * / ** ^
	KindOpen                // 左括号 ( [ {
	KindClose               // 右括号 ) ] }
	KindSpace               // 空白
	KindInvalid             // 不允许的字符
)

// Token 词法单元
type Token struct {
	Kind Kind
	Text string
	Pos  int // 在公式中的字节偏移
}

// isDigit 检查是否是数字
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// isLetter 检查是否是字母或下划线
func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' }

// isSpace 检查是否是空白
func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

// scanNumber 扫描数值，返回长度
// 数值形如 12、1.5、.5、2e-3。数据不完整且未到 EOF 时返回 -1 请求更多数据。
func scanNumber(data []byte, atEOF bool) int {
	i := 0
	for i < len(data) && (isDigit(data[i]) || data[i] == '.') {
		i++
	}
	if i == len(data) {
		if atEOF {
			return i
		}
		return -1
	}
	if data[i] != 'e' && data[i] != 'E' {
		return i
	}
	// 指数部分：e 后必须跟数字或带符号的数字，否则 e 不属于数值
	j := i + 1
	if j < len(data) && (data[j] == '+' || data[j] == '-') {
		j++
	}
	if j >= len(data) {
		if atEOF {
			return i
		}
		return -1
	}
	if !isDigit(data[j]) {
		return i
	}
	for j < len(data) && isDigit(data[j]) {
		j++
	}
	if j == len(data) && !atEOF {
		return -1
	}
	return j
}

// SplitTokens 分割公式词法单元
// 每个字节都归入某个单元（包括空白与非法字符），因此累加单元长度即可得到偏移。
func SplitTokens(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	c := data[0]
	switch {
	case isSpace(c):
		i := 1
		for i < len(data) && isSpace(data[i]) {
			i++
		}
		if i == len(data) && !atEOF {
			return 0, nil, nil
		}
		return i, data[:i], nil
	case isDigit(c) || (c == '.' && len(data) > 1 && isDigit(data[1])):
		n := scanNumber(data, atEOF)
		if n < 0 {
			return 0, nil, nil
		}
		return n, data[:n], nil
	case isLetter(c):
		// 标识符允许点号，用于 np.exp 这类限定名
		i := 1
		for i < len(data) && (isLetter(data[i]) || isDigit(data[i]) || data[i] == '.') {
			i++
		}
		if i == len(data) && !atEOF {
			return 0, nil, nil
		}
		return i, data[:i], nil
	case c == '*':
		if len(data) == 1 && !atEOF {
			return 0, nil, nil
		}
		if len(data) > 1 && data[1] == '*' {
			return 2, data[:2], nil
		}
		return 1, data[:1], nil
	}
	if c < 0x80 {
		return 1, data[:1], nil
	}
	// 非 ASCII 字符整体作为一个非法单元
	return bufio.ScanRunes(data, atEOF)
}

// classify 判定单元类型
func classify(text string) Kind {
	c := text[0]
	switch {
	case isSpace(c):
		return KindSpace
	case isDigit(c) || c == '.':
		return KindNumber
	case isLetter(c):
		return KindIdent
	}
	switch text {
	case "+", "-", "*", "/", "**", "^":
		return KindOp
	case "(", "[", "{":
		return KindOpen
	case ")", "]", "}":
		return KindClose
	}
	return KindInvalid
}

// Tokenize 将公式切分为词法单元，空白被丢弃
func Tokenize(formula string) ([]Token, error) {
	scanner := bufio.NewScanner(strings.NewReader(formula))
	scanner.Buffer(make([]byte, 0, len(formula)+1), len(formula)+bufio.MaxScanTokenSize)
	scanner.Split(SplitTokens)
	var tokens []Token
	pos := 0
	for scanner.Scan() {
		text := scanner.Text()
		kind := classify(text)
		if kind != KindSpace {
			tokens = append(tokens, Token{Kind: kind, Text: text, Pos: pos})
		}
		pos += len(text)
	}
	if err := scanner.Err(); err != nil {
		return nil, &Error{Formula: formula, Pos: pos, Msg: err.Error()}
	}
	return tokens, nil
}
