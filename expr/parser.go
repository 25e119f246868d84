package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// parser 递归下降解析器
//
//	expr    := term (('+'|'-') term)*
//	term    := unary (('*'|'/') unary)*
//	unary   := ('+'|'-') unary | power
//	power   := primary (('**'|'^') unary)?
//	primary := number | X | const | func '(' expr ')' | '(' expr ')'
type parser struct {
	formula string
	tokens  []Token
	pos     int
}

// closing 左括号对应的右括号
var closing = map[string]string{"(": ")", "[": "]", "{": "}"}

// errorAt 生成带偏移的错误
func (p *parser) errorAt(pos int, format string, args ...any) error {
	return &Error{Formula: p.formula, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// peek 当前单元，已到结尾时返回 nil
func (p *parser) peek() *Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

// end 结尾位置
func (p *parser) end() int { return len(p.formula) }

// parse 解析完整公式
func (p *parser) parse() (Node, error) {
	if len(p.tokens) == 0 {
		return nil, p.errorAt(0, "公式为空")
	}
	node, err := p.expr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok != nil {
		return nil, p.errorAt(tok.Pos, "多余的 %q", tok.Text)
	}
	return node, nil
}

func (p *parser) expr() (Node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for tok := p.peek(); tok != nil && tok.Kind == KindOp && (tok.Text == "+" || tok.Text == "-"); tok = p.peek() {
		p.pos++
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: tok.Text, Left: left, Right: right, Pos: tok.Pos}
	}
	return left, nil
}

func (p *parser) term() (Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for tok := p.peek(); tok != nil && tok.Kind == KindOp && (tok.Text == "*" || tok.Text == "/"); tok = p.peek() {
		p.pos++
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: tok.Text, Left: left, Right: right, Pos: tok.Pos}
	}
	return left, nil
}

func (p *parser) unary() (Node, error) {
	tok := p.peek()
	if tok != nil && tok.Kind == KindOp && (tok.Text == "+" || tok.Text == "-") {
		p.pos++
		arg, err := p.unary()
		if err != nil {
			return nil, err
		}
		if tok.Text == "-" {
			return &Neg{Arg: arg}, nil
		}
		return arg, nil
	}
	return p.power()
}

func (p *parser) power() (Node, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	if tok == nil || tok.Kind != KindOp || (tok.Text != "**" && tok.Text != "^") {
		return base, nil
	}
	p.pos++
	// 乘方右结合，指数允许带符号
	exponent, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &Binary{Op: tok.Text, Left: base, Right: exponent, Pos: tok.Pos}, nil
}

// group 解析括号内的表达式，open 已被消费
func (p *parser) group(open Token) (Node, error) {
	node, err := p.expr()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	if tok == nil {
		return nil, p.errorAt(p.end(), "缺少与第 %d 个字符处 %q 匹配的 %q", open.Pos+1, open.Text, closing[open.Text])
	}
	if tok.Kind != KindClose || tok.Text != closing[open.Text] {
		return nil, p.errorAt(tok.Pos, "需要 %q，得到 %q", closing[open.Text], tok.Text)
	}
	p.pos++
	return node, nil
}

func (p *parser) primary() (Node, error) {
	tok := p.peek()
	if tok == nil {
		return nil, p.errorAt(p.end(), "公式意外结束")
	}
	p.pos++
	switch tok.Kind {
	case KindNumber:
		v, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, p.errorAt(tok.Pos, "无效的数值 %q", tok.Text)
		}
		return &Num{Value: v}, nil
	case KindOpen:
		return p.group(*tok)
	case KindIdent:
		return p.ident(*tok)
	case KindInvalid:
		return nil, p.errorAt(tok.Pos, "不允许的字符 %q", tok.Text)
	}
	return nil, p.errorAt(tok.Pos, "此处不应出现 %q", tok.Text)
}

// ident 解析变量、常量或函数调用
func (p *parser) ident(tok Token) (Node, error) {
	name := tok.Text
	if name == "X" || name == "x" {
		return &Var{}, nil
	}
	// 允许 numpy 风格的限定名
	bare := strings.TrimPrefix(name, "np.")
	if v, ok := constants[bare]; ok {
		return &Num{Value: v}, nil
	}
	fn, ok := functions[bare]
	if !ok {
		return nil, p.errorAt(tok.Pos, "未知的名称 %q", name)
	}
	open := p.peek()
	if open == nil || open.Kind != KindOpen {
		return nil, p.errorAt(tok.Pos+len(name), "函数 %s 之后需要括号", name)
	}
	p.pos++
	arg, err := p.group(*open)
	if err != nil {
		return nil, err
	}
	return &Call{Name: bare, Fn: fn, Arg: arg}, nil
}
