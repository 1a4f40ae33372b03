package oracle

import (
	"bindsig/internal/engine/diag"
	"bindsig/internal/engine/names"
)

const maxExprDepth = 256

// binaryPrecedence lists the binary operators from loosest to tightest.
// "??" and the conditional operator are handled separately.
var binaryPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7, "is": 7, "as": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

var assignmentOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true, "??=": true,
}

// literalKeywords start a primary expression.
var literalKeywords = map[string]bool{
	"this": true, "base": true, "null": true, "true": true, "false": true,
	"new": true, "default": true, "typeof": true, "sizeof": true,
	"checked": true, "unchecked": true, "delegate": true, "throw": true,
	"stackalloc": true,
}

// typeArgFollowers are the tokens that may follow a '>' for "<...>" after a
// name to be read as a type argument list rather than a comparison.
var typeArgFollowers = map[string]bool{
	"(": true, ")": true, "]": true, "}": true, ":": true, ";": true,
	",": true, ".": true, "?": true, "==": true, "!=": true, "|": true,
	"^": true, "&&": true, "||": true, "&": true, "[": true, "?.": true,
}

type exprParser struct {
	toks  []token
	pos   int
	depth int
	// end is the rune length of the checked text; EOF errors point here.
	end int
}

func newExprParser(toks []token, end int) *exprParser {
	return &exprParser{toks: toks, end: end}
}

func (p *exprParser) peek() token {
	return p.toks[p.pos]
}

func (p *exprParser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

// is matches punctuators and reserved keywords by text.
func (p *exprParser) is(text string) bool {
	t := p.peek()
	return (t.kind == tokPunct || t.kind == tokKeyword) && t.text == text
}

func (p *exprParser) isAt(n int, text string) bool {
	t := p.peekAt(n)
	return (t.kind == tokPunct || t.kind == tokKeyword) && t.text == text
}

// isWord matches a contextual keyword spelled as an identifier.
func (p *exprParser) isWord(text string) bool {
	t := p.peek()
	return t.kind == tokIdent && t.text == text
}

func (p *exprParser) accept(text string) bool {
	if p.is(text) {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) expect(text string) *diag.Error {
	if p.accept(text) {
		return nil
	}
	t := p.peek()
	if t.kind == tokEOF {
		return diag.Errorf(p.end, "expected '%s'", text)
	}
	return diag.Errorf(t.pos, "expected '%s' but found '%s'", text, t.text)
}

func (p *exprParser) unexpected() *diag.Error {
	t := p.peek()
	if t.kind == tokEOF {
		return diag.Errorf(p.end, "expression expected")
	}
	return diag.Errorf(t.pos, "unexpected '%s'", t.text)
}

func (p *exprParser) enter() *diag.Error {
	p.depth++
	if p.depth > maxExprDepth {
		return diag.Errorf(p.peek().pos, "expression nests too deeply")
	}
	return nil
}

func (p *exprParser) leave() {
	p.depth--
}

func (p *exprParser) expectEOF() *diag.Error {
	if p.peek().kind != tokEOF {
		return p.unexpected()
	}
	return nil
}

// startsOperand reports whether t can begin a unary expression.
func startsOperand(t token) bool {
	switch t.kind {
	case tokIdent, tokInt, tokReal, tokString, tokChar:
		return true
	case tokKeyword:
		return literalKeywords[t.text] || names.IsTypeAlias(t.text)
	case tokPunct:
		switch t.text {
		case "(", "[", "+", "-", "!", "~", "++", "--", "&", "*", "^", "..":
			return true
		}
	}
	return false
}

// parseArgument parses one call argument: [name:] [ref|out|in] expression,
// where out/ref may also introduce a declaration such as "out var x".
func (p *exprParser) parseArgument() *diag.Error {
	if p.peek().kind == tokIdent && p.isAt(1, ":") {
		p.pos += 2
	}
	if p.is("ref") || p.is("out") || p.is("in") {
		p.pos++
		if p.tryDeclaration() {
			return nil
		}
	}
	return p.parseExpression()
}

// tryDeclaration consumes "Type name" when followed by ',' ')' ']' or EOF.
func (p *exprParser) tryDeclaration() bool {
	save := p.pos
	if err := p.parseType(true); err == nil && p.peek().kind == tokIdent {
		p.pos++
		if p.is(",") || p.is(")") || p.is("]") || p.peek().kind == tokEOF {
			return true
		}
	}
	p.pos = save
	return false
}

func (p *exprParser) parseExpression() *diag.Error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	if ok, err := p.tryLambda(); ok || err != nil {
		return err
	}
	if err := p.parseConditional(); err != nil {
		return err
	}
	if op, width := p.assignmentOp(); op != "" {
		p.pos += width
		if p.is("{") {
			return p.parseInitializer()
		}
		return p.parseExpression()
	}
	return nil
}

func (p *exprParser) assignmentOp() (string, int) {
	t := p.peek()
	if t.kind != tokPunct {
		return "", 0
	}
	if t.text == ">" {
		next := p.peekAt(1)
		if next.kind == tokPunct && next.text == ">=" && next.pos == t.end {
			return ">>=", 2
		}
		return "", 0
	}
	if assignmentOps[t.text] {
		return t.text, 1
	}
	return "", 0
}

func (p *exprParser) parseConditional() *diag.Error {
	if err := p.parseCoalesce(); err != nil {
		return err
	}
	if !p.is("?") {
		return nil
	}
	p.pos++
	if err := p.parseExpression(); err != nil {
		return err
	}
	if err := p.expect(":"); err != nil {
		return err
	}
	return p.parseExpression()
}

func (p *exprParser) parseCoalesce() *diag.Error {
	if err := p.parseBinary(1); err != nil {
		return err
	}
	for p.accept("??") {
		if p.is("throw") {
			p.pos++
			if err := p.parseExpression(); err != nil {
				return err
			}
			continue
		}
		if err := p.parseBinary(1); err != nil {
			return err
		}
	}
	return nil
}

// binaryOp returns the binary operator at the cursor. ">>" is two adjacent
// '>' tokens so that nested type argument lists close one level at a time.
func (p *exprParser) binaryOp() (string, int) {
	t := p.peek()
	switch t.kind {
	case tokKeyword:
		if t.text == "is" || t.text == "as" {
			return t.text, 1
		}
	case tokPunct:
		if t.text == ">" {
			next := p.peekAt(1)
			if next.kind == tokPunct && next.pos == t.end {
				if next.text == ">" {
					return ">>", 2
				}
				if next.text == ">=" {
					return "", 0
				}
			}
		}
		if _, ok := binaryPrecedence[t.text]; ok {
			return t.text, 1
		}
	}
	return "", 0
}

func (p *exprParser) parseBinary(minPrec int) *diag.Error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	if err := p.parseRange(); err != nil {
		return err
	}
	for {
		op, width := p.binaryOp()
		prec, ok := binaryPrecedence[op]
		if op == "" || !ok || prec < minPrec {
			return nil
		}
		p.pos += width
		switch op {
		case "is":
			if err := p.parsePattern(); err != nil {
				return err
			}
			continue
		case "as":
			if err := p.parseType(true); err != nil {
				return err
			}
			continue
		}
		if err := p.parseBinary(prec + 1); err != nil {
			return err
		}
	}
}

// parseRange handles "a..b", "..b", "a.." and "..".
func (p *exprParser) parseRange() *diag.Error {
	if p.accept("..") {
		if startsOperand(p.peek()) {
			return p.parseUnary()
		}
		return nil
	}
	if err := p.parseUnary(); err != nil {
		return err
	}
	if p.accept("..") && startsOperand(p.peek()) {
		return p.parseUnary()
	}
	return nil
}

func (p *exprParser) parsePattern() *diag.Error {
	if p.isWord("not") {
		p.pos++
	}
	t := p.peek()
	switch {
	case t.kind == tokInt || t.kind == tokReal || t.kind == tokString || t.kind == tokChar:
		p.pos++
		return nil
	case p.is("null") || p.is("true") || p.is("false"):
		p.pos++
		return nil
	case p.isWord("var"):
		p.pos++
		if p.peek().kind != tokIdent {
			return p.unexpected()
		}
		p.pos++
		return nil
	}
	if err := p.parseType(true); err != nil {
		return err
	}
	if p.peek().kind == tokIdent && !p.isWord("and") && !p.isWord("or") {
		p.pos++
	}
	return nil
}

func (p *exprParser) parseUnary() *diag.Error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	t := p.peek()
	if t.kind == tokPunct {
		switch t.text {
		case "+", "-", "!", "~", "++", "--", "&", "*", "^":
			p.pos++
			return p.parseUnary()
		case "(":
			if ok, err := p.tryCast(); ok || err != nil {
				return err
			}
		}
	}
	if t.kind == tokIdent && t.text == "await" && startsOperand(p.peekAt(1)) {
		p.pos++
		return p.parseUnary()
	}
	if err := p.parsePrimary(); err != nil {
		return err
	}
	return p.parsePostfix()
}

// tryCast reads "(Type)operand". A parenthesized type is a cast when the type
// is a built-in keyword or when the token after ')' can only start an
// operand.
func (p *exprParser) tryCast() (bool, *diag.Error) {
	save := p.pos
	p.pos++
	first := p.peek()
	if err := p.parseType(true); err != nil || !p.is(")") {
		p.pos = save
		return false, nil
	}
	p.pos++
	next := p.peek()
	builtin := first.kind == tokKeyword && names.IsTypeAlias(first.text)
	cast := false
	switch next.kind {
	case tokIdent, tokInt, tokReal, tokString, tokChar:
		cast = true
	case tokKeyword:
		cast = literalKeywords[next.text] || names.IsTypeAlias(next.text)
	case tokPunct:
		switch next.text {
		case "(", "!", "~":
			cast = true
		case "+", "-", "++", "--", "&", "*", "^", "[":
			cast = builtin
		}
	}
	if !cast {
		p.pos = save
		return false, nil
	}
	return true, p.parseUnary()
}

func (p *exprParser) parsePrimary() *diag.Error {
	t := p.peek()
	switch t.kind {
	case tokInt, tokReal, tokString, tokChar:
		p.pos++
		return nil
	case tokIdent:
		p.pos++
		p.tryTypeArguments()
		return nil
	case tokKeyword:
		return p.parseKeywordPrimary(t)
	case tokPunct:
		switch t.text {
		case "(":
			return p.parseParenthesized()
		case "[":
			p.pos++
			return p.parseList("]")
		}
	}
	return p.unexpected()
}

func (p *exprParser) parseKeywordPrimary(t token) *diag.Error {
	switch t.text {
	case "this", "base", "null", "true", "false":
		p.pos++
		return nil
	case "new", "stackalloc":
		p.pos++
		return p.parseCreation()
	case "default":
		p.pos++
		if p.accept("(") {
			if err := p.parseType(true); err != nil {
				return err
			}
			return p.expect(")")
		}
		return nil
	case "typeof", "sizeof":
		p.pos++
		if err := p.expect("("); err != nil {
			return err
		}
		if err := p.parseTypeUnbound(); err != nil {
			return err
		}
		return p.expect(")")
	case "checked", "unchecked":
		p.pos++
		if err := p.expect("("); err != nil {
			return err
		}
		if err := p.parseExpression(); err != nil {
			return err
		}
		return p.expect(")")
	case "delegate":
		p.pos++
		if p.accept("(") {
			if err := p.parseLambdaParameters(); err != nil {
				return err
			}
		}
		if !p.is("{") {
			return p.expect("{")
		}
		return p.skipBlock()
	case "throw":
		p.pos++
		return p.parseExpression()
	}
	if names.IsTypeAlias(t.text) {
		// int.MaxValue, string.Join(...)
		p.pos++
		if !p.is(".") {
			return diag.Errorf(t.pos, "unexpected '%s'", t.text)
		}
		return nil
	}
	return p.unexpected()
}

// parseParenthesized handles "(expr)" and tuples "(a, name: b)".
func (p *exprParser) parseParenthesized() *diag.Error {
	p.pos++
	for {
		if p.peek().kind == tokIdent && p.isAt(1, ":") {
			p.pos += 2
		}
		if err := p.parseExpression(); err != nil {
			return err
		}
		if !p.accept(",") {
			break
		}
	}
	return p.expect(")")
}

// tryTypeArguments consumes "<...>" after a name when what follows the
// closing '>' makes a type argument list the only sensible reading.
func (p *exprParser) tryTypeArguments() {
	if !p.is("<") {
		return
	}
	save := p.pos
	if err := p.parseTypeArguments(false); err != nil {
		p.pos = save
		return
	}
	next := p.peek()
	if next.kind == tokEOF || (next.kind == tokPunct && typeArgFollowers[next.text]) {
		return
	}
	p.pos = save
}

func (p *exprParser) parsePostfix() *diag.Error {
	for {
		t := p.peek()
		if t.kind != tokPunct {
			return nil
		}
		switch t.text {
		case ".", "?.", "->":
			p.pos++
			if err := p.parseMemberName(); err != nil {
				return err
			}
		case "?":
			// a?[i] is a null-conditional element access only when '[' is adjacent.
			next := p.peekAt(1)
			if !(next.kind == tokPunct && next.text == "[" && next.pos == t.end) {
				return nil
			}
			p.pos += 2
			if err := p.parseList("]"); err != nil {
				return err
			}
		case "(":
			p.pos++
			if err := p.parseArguments(")"); err != nil {
				return err
			}
		case "[":
			p.pos++
			if err := p.parseArguments("]"); err != nil {
				return err
			}
		case "++", "--", "!":
			p.pos++
		default:
			return nil
		}
	}
}

func (p *exprParser) parseMemberName() *diag.Error {
	if p.peek().kind != tokIdent {
		t := p.peek()
		if t.kind == tokEOF {
			return diag.Errorf(p.end, "identifier expected")
		}
		return diag.Errorf(t.pos, "identifier expected but found '%s'", t.text)
	}
	p.pos++
	p.tryTypeArguments()
	return nil
}

// parseArguments parses call or indexer arguments up to close. The opening
// token has been consumed.
func (p *exprParser) parseArguments(close string) *diag.Error {
	if p.accept(close) {
		return nil
	}
	for {
		if err := p.parseArgument(); err != nil {
			return err
		}
		if !p.accept(",") {
			break
		}
	}
	return p.expect(close)
}

// parseList parses comma separated expressions up to close, allowing a
// trailing comma.
func (p *exprParser) parseList(close string) *diag.Error {
	for !p.is(close) {
		if err := p.parseExpression(); err != nil {
			return err
		}
		if !p.accept(",") {
			break
		}
	}
	return p.expect(close)
}

// parseCreation parses what follows 'new':
//
//	new()            new Widget(1) { A = 2 }     new int[3]
//	new { A = 1 }    new[] { 1, 2 }              new int[,] { {1} }
func (p *exprParser) parseCreation() *diag.Error {
	switch {
	case p.is("("):
		p.pos++
		if err := p.parseArguments(")"); err != nil {
			return err
		}
		if p.is("{") {
			return p.parseInitializer()
		}
		return nil
	case p.is("{"):
		return p.parseInitializer()
	case p.is("["):
		if err := p.parseRankSpecifiers(); err != nil {
			return err
		}
		if !p.is("{") {
			return p.expect("{")
		}
		return p.parseInitializer()
	}

	if err := p.parseType(false); err != nil {
		return err
	}
	switch {
	case p.is("["):
		if p.isAt(1, "]") || p.isAt(1, ",") {
			if err := p.parseRankSpecifiers(); err != nil {
				return err
			}
			if !p.is("{") {
				return p.expect("{")
			}
			return p.parseInitializer()
		}
		p.pos++
		if err := p.parseArguments("]"); err != nil {
			return err
		}
		if p.is("[") {
			if err := p.parseRankSpecifiers(); err != nil {
				return err
			}
		}
		if p.is("{") {
			return p.parseInitializer()
		}
		return nil
	case p.is("("):
		p.pos++
		if err := p.parseArguments(")"); err != nil {
			return err
		}
		if p.is("{") {
			return p.parseInitializer()
		}
		return nil
	case p.is("{"):
		return p.parseInitializer()
	}
	t := p.peek()
	if t.kind == tokEOF {
		return diag.Errorf(p.end, "expected '(', '[' or '{' after type in object creation")
	}
	return diag.Errorf(t.pos, "expected '(', '[' or '{' after type in object creation but found '%s'", t.text)
}

// parseInitializer parses object, collection, array and anonymous-object
// initializers. Element shapes:
//
//	Name = value    [index] = value    { a, b }    expression
func (p *exprParser) parseInitializer() *diag.Error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	if err := p.expect("{"); err != nil {
		return err
	}
	for !p.is("}") {
		switch {
		case p.is("{"):
			if err := p.parseInitializer(); err != nil {
				return err
			}
		case p.peek().kind == tokIdent && p.isAt(1, "="):
			p.pos += 2
			if err := p.parseInitializerValue(); err != nil {
				return err
			}
		case p.is("["):
			p.pos++
			if err := p.parseArguments("]"); err != nil {
				return err
			}
			if err := p.expect("="); err != nil {
				return err
			}
			if err := p.parseInitializerValue(); err != nil {
				return err
			}
		default:
			if err := p.parseExpression(); err != nil {
				return err
			}
		}
		if !p.accept(",") {
			break
		}
	}
	return p.expect("}")
}

func (p *exprParser) parseInitializerValue() *diag.Error {
	if p.is("{") {
		return p.parseInitializer()
	}
	return p.parseExpression()
}

func (p *exprParser) parseRankSpecifiers() *diag.Error {
	for p.is("[") {
		p.pos++
		for p.accept(",") {
		}
		if err := p.expect("]"); err != nil {
			return err
		}
	}
	return nil
}

// parseType parses a type reference. withRanks controls whether trailing
// array rank specifiers belong to the type; object creation reads them
// itself because they may carry sizes.
func (p *exprParser) parseType(withRanks bool) *diag.Error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.leave()

	if p.peek().kind == tokIdent && p.isAt(1, "::") {
		p.pos += 2
	}
	if p.is("(") {
		if err := p.parseTupleType(); err != nil {
			return err
		}
	} else {
		if err := p.parseTypeSegment(true); err != nil {
			return err
		}
		for p.is(".") {
			p.pos++
			if err := p.parseTypeSegment(false); err != nil {
				return err
			}
		}
	}
	if p.is("?") && p.nullableFollows() {
		p.pos++
	}
	if withRanks {
		for p.is("[") && (p.isAt(1, "]") || p.isAt(1, ",")) {
			if err := p.parseRankSpecifiers(); err != nil {
				return err
			}
		}
	}
	return nil
}

// nullableFollows reports whether the '?' at the cursor marks a nullable type
// rather than a conditional operator.
func (p *exprParser) nullableFollows() bool {
	next := p.peekAt(1)
	if next.kind == tokEOF {
		return true
	}
	if next.kind == tokPunct {
		switch next.text {
		case ")", ",", ">", "]", "[", "}", ";", "(", "{":
			return true
		}
	}
	return false
}

func (p *exprParser) parseTupleType() *diag.Error {
	p.pos++
	count := 0
	for {
		if err := p.parseType(true); err != nil {
			return err
		}
		if p.peek().kind == tokIdent {
			p.pos++
		}
		count++
		if !p.accept(",") {
			break
		}
	}
	if count < 2 {
		return diag.Errorf(p.peek().pos, "tuple type must have at least two elements")
	}
	return p.expect(")")
}

func (p *exprParser) parseTypeSegment(first bool) *diag.Error {
	t := p.peek()
	switch {
	case t.kind == tokIdent:
	case first && t.kind == tokKeyword && names.IsTypeAlias(t.text):
		p.pos++
		return nil
	case t.kind == tokEOF:
		return diag.Errorf(p.end, "type expected")
	default:
		return diag.Errorf(t.pos, "type expected but found '%s'", t.text)
	}
	p.pos++
	if p.is("<") {
		return p.parseTypeArguments(false)
	}
	return nil
}

// parseTypeArguments parses "<T, U>". With unbound set, "<>" and "<,>" are
// accepted as in typeof(Dictionary<,>).
func (p *exprParser) parseTypeArguments(unbound bool) *diag.Error {
	if err := p.expect("<"); err != nil {
		return err
	}
	if unbound && (p.is(">") || p.is(",")) {
		for p.accept(",") {
		}
		return p.expect(">")
	}
	for {
		if err := p.parseType(true); err != nil {
			return err
		}
		if !p.accept(",") {
			break
		}
	}
	return p.expect(">")
}

func (p *exprParser) parseTypeUnbound() *diag.Error {
	save := p.pos
	if err := p.parseType(true); err == nil && p.is(")") {
		return nil
	}
	p.pos = save
	if p.peek().kind != tokIdent {
		return p.parseType(true)
	}
	p.pos++
	if p.is("<") {
		if err := p.parseTypeArguments(true); err != nil {
			return err
		}
	}
	for p.accept(".") {
		if p.peek().kind != tokIdent {
			return p.unexpected()
		}
		p.pos++
		if p.is("<") {
			if err := p.parseTypeArguments(true); err != nil {
				return err
			}
		}
	}
	return nil
}

// tryLambda parses a lambda when the cursor is at one:
//
//	x => ...    async x => ...    (a, b) => ...    (int a) => ...
func (p *exprParser) tryLambda() (bool, *diag.Error) {
	save := p.pos
	if p.isWord("async") && (p.peekAt(1).kind == tokIdent || p.isAt(1, "(")) {
		p.pos++
	}
	if p.is("static") {
		p.pos++
	}
	switch {
	case p.peek().kind == tokIdent && p.isAt(1, "=>"):
		p.pos += 2
	case p.is("("):
		closeAt := p.matchingParen(p.pos)
		if closeAt < 0 || !(p.toks[closeAt+1].kind == tokPunct && p.toks[closeAt+1].text == "=>") {
			p.pos = save
			return false, nil
		}
		p.pos++
		if err := p.parseLambdaParameters(); err != nil {
			return true, err
		}
		if err := p.expect("=>"); err != nil {
			return true, err
		}
	default:
		p.pos = save
		return false, nil
	}
	if p.is("{") {
		return true, p.skipBlock()
	}
	return true, p.parseExpression()
}

// matchingParen returns the token index of the ')' closing the '(' at open,
// or -1.
func (p *exprParser) matchingParen(open int) int {
	depth := 0
	for i := open; i < len(p.toks); i++ {
		t := p.toks[i]
		if t.kind != tokPunct {
			continue
		}
		switch t.text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseLambdaParameters parses a parameter list after its '(' up to and
// including ')'.
func (p *exprParser) parseLambdaParameters() *diag.Error {
	if p.accept(")") {
		return nil
	}
	for {
		if p.is("ref") || p.is("out") || p.is("in") || p.is("params") {
			p.pos++
		}
		if p.peek().kind == tokIdent && (p.isAt(1, ",") || p.isAt(1, ")")) {
			p.pos++
		} else {
			if err := p.parseType(true); err != nil {
				return err
			}
			if p.peek().kind != tokIdent {
				return p.unexpected()
			}
			p.pos++
		}
		if !p.accept(",") {
			break
		}
	}
	return p.expect(")")
}

// skipBlock consumes a balanced "{...}" statement block. Statements are not
// checked beyond bracket balance.
func (p *exprParser) skipBlock() *diag.Error {
	open := p.peek()
	depth := 0
	for {
		t := p.peek()
		if t.kind == tokEOF {
			return diag.Errorf(open.pos, "unclosed block")
		}
		p.pos++
		if t.kind != tokPunct {
			continue
		}
		switch t.text {
		case "{":
			depth++
		case "}":
			depth--
			if depth == 0 {
				return nil
			}
		}
	}
}
