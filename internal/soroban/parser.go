package soroban

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gasguard/internal/source"
)

var (
	typeHeaderRe = regexp.MustCompile(`^(pub(?:\s*\([^)]*\))?\s+)?(struct|enum)\s+([A-Za-z_][A-Za-z0-9_]*)`)
	implHeaderRe = regexp.MustCompile(`^(?:unsafe\s+)?impl\b`)
	fnHeaderRe   = regexp.MustCompile(`^(pub(?:\s*\([^)]*\))?\s+)?(?:(?:const|async|unsafe|default)\s+|extern\s+(?:"[^"]*"\s+)?)*fn\s+([A-Za-z_][A-Za-z0-9_]*)`)
	visibilityRe = regexp.MustCompile(`^pub(?:\s*\([^)]*\))?\s+`)
	identRe      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	whereRe      = regexp.MustCompile(`\bwhere\b`)

	typeMarkerRe = regexp.MustCompile(`#!?\[\s*(?:[A-Za-z_][A-Za-z0-9_]*\s*::\s*)*(?:contracttype|contract)\b\s*[\]\(]`)
)

// constructorNames are the conventional constructor identifiers.
var constructorNames = map[string]bool{
	"new":           true,
	"init":          true,
	"initialize":    true,
	"constructor":   true,
	"__constructor": true,
}

type marker uint8

const (
	markerNone marker = iota
	markerType
	markerImpl
)

type parser struct {
	file     *source.File
	text     string // normalized source
	code     string // text with comments and literal contents blanked
	label    string
	contract *Contract
}

// Parse recovers the contract structure from src. label names the source in
// errors and in the result. The returned error is always a *ParseError.
func Parse(src, label string) (*Contract, error) {
	file := source.NewFile(label, []byte(src))
	p := &parser{
		file:  file,
		text:  string(file.Content),
		label: label,
		contract: &Contract{
			Source: string(file.Content),
			Label:  label,
		},
	}

	// A source without a marked type has no contract name, whatever else is
	// wrong with it, so that is decided before any structural check.
	code, maskErr := mask(file)
	if !hasMarkedType(code) {
		return nil, MissingDeclarationMacro(label)
	}
	if maskErr != nil {
		return nil, maskErr
	}
	p.code = code
	if err := p.checkBalance(); err != nil {
		return nil, err
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	if len(p.contract.Types) == 0 {
		return nil, MissingDeclarationMacro(label)
	}
	p.contract.Name = p.contract.Types[0].Name
	return p.contract, nil
}

// hasMarkedType reports whether masked code holds a type marker attribute
// followed, possibly after further attributes, by a struct or enum header.
func hasMarkedType(code string) bool {
	for _, loc := range typeMarkerRe.FindAllStringIndex(code, -1) {
		pos := loc[0]
		for pos < len(code) && isAttributeStart(code, pos) {
			open := pos + 1
			if code[open] == '!' {
				open++
			}
			end, ok := matchClose(code, open, blockBrackets)
			if !ok {
				break
			}
			pos = skipSpace(code, end+1)
		}
		if pos >= len(code) || isAttributeStart(code, pos) {
			continue
		}
		lineEnd := len(code)
		if k := strings.IndexByte(code[pos:], '\n'); k >= 0 {
			lineEnd = pos + k
		}
		if typeHeaderRe.MatchString(code[pos:lineEnd]) {
			return true
		}
	}
	return false
}

// ParseFile reads path and parses it. Read failures are reported as IOError.
func ParseFile(path string) (*Contract, error) {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, IOError(path, err)
	}
	return Parse(string(data), path)
}

// ParseField parses a single field declaration such as "pub admin: Address,".
// ok is false when line does not have the name-colon-type shape.
func ParseField(line string, lineNo uint32) (FieldDecl, bool) {
	lead := len(line) - len(strings.TrimLeft(line, " \t"))
	name, typ, vis, nameOff, ok := splitField(strings.TrimSpace(line))
	if !ok {
		return FieldDecl{}, false
	}
	return FieldDecl{
		Name:       name,
		Type:       typ,
		Visibility: vis,
		Line:       lineNo,
		Column:     u32(lead+nameOff) + 1,
	}, true
}

// ParseFunction parses the first function signature (and body, if any)
// found at the start of a line in text. Line numbers are relative to text.
// ok is false when text holds no function.
func ParseFunction(text string) (fn FunctionDecl, ok bool, err error) {
	file := source.NewFile("<function>", []byte(text))
	code, err := mask(file)
	if err != nil {
		return FunctionDecl{}, false, err
	}
	p := &parser{file: file, text: string(file.Content), code: code, label: "<function>"}
	for pos := 0; pos < len(code); {
		lineEnd := p.lineEndAt(pos)
		start := skipInlineSpace(code, pos)
		if m := fnHeaderRe.FindStringSubmatchIndex(code[start:lineEnd]); m != nil {
			fn, _, err := p.parseFunction(start, m, "")
			if err != nil {
				return FunctionDecl{}, false, err
			}
			return fn, true, nil
		}
		pos = lineEnd + 1
	}
	return FunctionDecl{}, false, nil
}

// run is the forward scan over item starts. Attribute lines accumulate in a
// lookbehind buffer; blank and comment lines (blank after masking) leave the
// buffer intact, any other line consumes it.
func (p *parser) run() error {
	var attrs []string
	pos := 0
	for {
		pos = skipSpace(p.code, pos)
		if pos >= len(p.code) {
			return nil
		}
		if isAttributeStart(p.code, pos) {
			end, ok := p.attributeEnd(pos)
			if !ok {
				return MalformedStructure(p.lineNo(pos), "unterminated attribute")
			}
			attrs = append(attrs, p.code[pos:end+1])
			pos = end + 1
			continue
		}
		next, err := p.item(pos, classify(attrs))
		if err != nil {
			return err
		}
		attrs = attrs[:0]
		pos = next
	}
}

// item handles one non-attribute line starting at pos and returns where
// scanning resumes.
func (p *parser) item(pos int, mk marker) (int, error) {
	lineEnd := p.lineEndAt(pos)
	head := p.code[pos:lineEnd]

	if m := typeHeaderRe.FindStringSubmatchIndex(head); m != nil {
		if mk != markerType {
			return lineEnd + 1, nil
		}
		return p.parseType(pos, m)
	}
	if mk == markerImpl && implHeaderRe.MatchString(head) {
		return p.parseImpl(pos)
	}
	return lineEnd + 1, nil
}

func (p *parser) parseType(pos int, m []int) (int, error) {
	name := p.code[pos+m[6] : pos+m[7]]
	kind := KindStruct
	if p.code[pos+m[4]:pos+m[5]] == "enum" {
		kind = KindEnum
	}
	line := p.lineNo(pos)

	open, stop, err := p.findBodyStart(pos+m[1], "{(;", name)
	if err != nil {
		return 0, err
	}
	decl := TypeDecl{Name: name, Kind: kind, Line: line}

	end := open
	switch stop {
	case '(':
		// tuple struct: no named fields
		closeAt, ok := matchClose(p.code, open, blockBrackets)
		if !ok {
			return 0, MalformedStructure(line, fmt.Sprintf("unbalanced tuple body of %s", name))
		}
		end = closeAt
		if semi := skipSpace(p.code, closeAt+1); semi < len(p.code) && p.code[semi] == ';' {
			end = semi
		}
	case '{':
		closeAt, ok := matchClose(p.code, open, blockBrackets)
		if !ok {
			return 0, MalformedStructure(line, fmt.Sprintf("unbalanced body of %s", name))
		}
		end = closeAt
		if kind == KindStruct {
			decl.Fields = p.parseFields(open+1, closeAt)
		}
	}

	decl.Raw = p.text[p.lineStartAt(pos) : end+1]
	p.contract.Types = append(p.contract.Types, decl)
	return end + 1, nil
}

// parseFields splits a record body at top-level commas. Entries that do not
// have the name-colon-type shape are skipped.
func (p *parser) parseFields(from, to int) []FieldDecl {
	var fields []FieldDecl
	for _, pc := range splitTop(p.code[from:to], ',', allBrackets) {
		entry, off := stripAttributes(pc.text, from+pc.off)
		name, typ, vis, nameOff, ok := splitField(entry)
		if !ok {
			continue
		}
		pos := p.file.Position(u32(off + nameOff))
		fields = append(fields, FieldDecl{
			Name:       name,
			Type:       typ,
			Visibility: vis,
			Line:       pos.Line,
			Column:     pos.Col,
		})
	}
	return fields
}

// splitField strips a visibility keyword and splits at the first colon.
func splitField(entry string) (name, typ string, vis Visibility, nameOff int, ok bool) {
	s := strings.TrimSuffix(strings.TrimSpace(entry), ",")
	if loc := visibilityRe.FindStringIndex(s); loc != nil {
		vis = Public
		nameOff = loc[1]
		s = s[loc[1]:]
	}
	colon := strings.IndexByte(s, ':')
	if colon <= 0 || (colon+1 < len(s) && s[colon+1] == ':') {
		return "", "", Private, 0, false
	}
	name = strings.TrimSpace(s[:colon])
	if !identRe.MatchString(name) {
		return "", "", Private, 0, false
	}
	typ = normalizeSpace(strings.TrimRight(strings.TrimSpace(s[colon+1:]), ",;"))
	if typ == "" {
		return "", "", Private, 0, false
	}
	nameOff += strings.Index(s, name)
	return name, typ, vis, nameOff, true
}

func (p *parser) parseImpl(pos int) (int, error) {
	line := p.lineNo(pos)
	open, _, err := p.findBodyStart(pos, "{", "impl")
	if err != nil {
		return 0, err
	}
	target, trait := splitImplHeader(normalizeSpace(p.code[pos:open]))
	closeAt, ok := matchClose(p.code, open, blockBrackets)
	if !ok {
		return 0, MalformedStructure(line, fmt.Sprintf("unbalanced impl block for %s", target))
	}
	funcs, err := p.parseImplBody(open+1, closeAt, target)
	if err != nil {
		return 0, err
	}
	p.contract.Impls = append(p.contract.Impls, ImplBlock{
		Target:    target,
		Trait:     trait,
		Functions: funcs,
		Line:      line,
		Raw:       p.text[p.lineStartAt(pos) : closeAt+1],
	})
	return closeAt + 1, nil
}

// parseImplBody scans [from, to) line by line and parses every fn that starts
// at the block's top level. Other items are skipped.
func (p *parser) parseImplBody(from, to int, target string) ([]FunctionDecl, error) {
	var funcs []FunctionDecl
	depth := 0
	pos := from
	for pos < to {
		lineEnd := min(p.lineEndAt(pos), to)
		if depth == 0 {
			start := skipInlineSpace(p.code, pos)
			for start < lineEnd && isAttributeStart(p.code, start) {
				end, ok := p.attributeEnd(start)
				if !ok || end >= lineEnd {
					break
				}
				start = skipInlineSpace(p.code, end+1)
			}
			if start < lineEnd {
				if m := fnHeaderRe.FindStringSubmatchIndex(p.code[start:lineEnd]); m != nil {
					fn, end, err := p.parseFunction(start, m, target)
					if err != nil {
						return nil, err
					}
					funcs = append(funcs, fn)
					pos = end + 1
					continue
				}
			}
		}
		depth += braceDelta(p.code[pos:lineEnd])
		if depth < 0 {
			depth = 0
		}
		pos = lineEnd + 1
	}
	return funcs, nil
}

// parseFunction parses a signature whose header regex match m is relative to
// start, plus its body. It returns the offset of the last byte consumed.
func (p *parser) parseFunction(start int, m []int, target string) (FunctionDecl, int, error) {
	name := p.code[start+m[4] : start+m[5]]
	line := p.lineNo(start)
	fn := FunctionDecl{Name: name, Line: line}
	if m[2] >= 0 {
		fn.Visibility = Public
	}

	pos := skipSpace(p.code, start+m[1])
	if pos < len(p.code) && p.code[pos] == '<' {
		end, ok := matchClose(p.code, pos, signatureBrackets)
		if !ok {
			return fn, 0, MalformedStructure(line, fmt.Sprintf("unbalanced generic parameters of fn %s", name))
		}
		pos = skipSpace(p.code, end+1)
	}
	if pos >= len(p.code) || p.code[pos] != '(' {
		return fn, 0, MalformedStructure(line, fmt.Sprintf("fn %s has no parameter list", name))
	}
	closeAt, ok := matchClose(p.code, pos, signatureBrackets)
	if !ok {
		return fn, 0, MalformedStructure(line, fmt.Sprintf("unbalanced parameter list of fn %s", name))
	}
	p.parseParams(&fn, pos+1, closeAt)

	after := skipSpace(p.code, closeAt+1)
	if strings.HasPrefix(p.code[after:], "->") {
		retEnd := p.returnTypeEnd(after + 2)
		fn.ReturnType = normalizeSpace(p.code[after+2 : retEnd])
		after = retEnd
	}

	bodyAt, stop, err := p.findBodyStart(after, "{;", "fn "+name)
	if err != nil {
		return fn, 0, err
	}
	end := bodyAt
	if stop == '{' {
		closeBody, ok := matchClose(p.code, bodyAt, blockBrackets)
		if !ok {
			return fn, 0, MalformedStructure(line, fmt.Sprintf("unbalanced body of fn %s", name))
		}
		end = closeBody
		fn.BodyLine = p.lineNo(bodyAt)
	}

	lineStart := p.lineStartAt(start)
	fn.Raw = p.text[lineStart : end+1]
	fn.Code = p.code[lineStart : end+1]
	fn.IsConstructor = isConstructor(&fn, target)
	return fn, end, nil
}

func (p *parser) parseParams(fn *FunctionDecl, from, to int) {
	for _, pc := range splitTop(p.code[from:to], ',', signatureBrackets) {
		entry, off := stripAttributes(pc.text, from+pc.off)
		colon := topLevelColon(entry)
		if colon < 0 {
			fn.Receiver = normalizeSpace(entry)
			continue
		}
		name := normalizeSpace(entry[:colon])
		if name == "self" || name == "mut self" {
			fn.Receiver = name
			continue
		}
		name = strings.TrimPrefix(name, "mut ")
		fn.Params = append(fn.Params, ParamDecl{
			Name: name,
			Type: normalizeSpace(entry[colon+1:]),
			Line: p.lineNo(off),
		})
	}
}

// returnTypeEnd finds where a return type starting at from stops: the body
// brace, a semicolon or a where clause at bracket depth zero.
func (p *parser) returnTypeEnd(from int) int {
	depth := 0
	for i := from; i < len(p.code); i++ {
		c := p.code[i]
		if depth == 0 {
			if c == '{' || c == ';' {
				return i
			}
			if c == 'w' && wordAt(p.code, i, "where") {
				return i
			}
		}
		switch {
		case openerKind(c)&signatureBrackets != 0:
			depth++
		case closerKind(c)&signatureBrackets != 0 && !isArrow(p.code, i):
			if depth > 0 {
				depth--
			}
		}
	}
	return len(p.code)
}

// findBodyStart returns the first byte of stops found at angle depth zero
// from pos. Reaching end of input is a MalformedStructure failure.
func (p *parser) findBodyStart(pos int, stops, what string) (int, byte, error) {
	depth := 0
	for i := pos; i < len(p.code); i++ {
		c := p.code[i]
		switch {
		case c == '<':
			depth++
		case c == '>' && !isArrow(p.code, i):
			if depth > 0 {
				depth--
			}
		case depth == 0 && strings.IndexByte(stops, c) >= 0:
			return i, c, nil
		}
	}
	return 0, 0, MalformedStructure(p.lineNo(pos), fmt.Sprintf("%s never opens a body", what))
}

// checkBalance verifies that (), [] and {} pair up across the whole masked
// source so that later scans are bounded.
func (p *parser) checkBalance() error {
	type open struct {
		kind bracketSet
		off  int
	}
	stack := make([]open, 0, 32)
	for i := 0; i < len(p.code); i++ {
		c := p.code[i]
		if k := openerKind(c); k&blockBrackets != 0 {
			stack = append(stack, open{kind: k, off: i})
			continue
		}
		k := closerKind(c)
		if k&blockBrackets == 0 {
			continue
		}
		if len(stack) == 0 {
			return MalformedStructure(p.lineNo(i), fmt.Sprintf("unexpected %q", c))
		}
		top := stack[len(stack)-1]
		if top.kind != k {
			return MalformedStructure(p.lineNo(i), fmt.Sprintf("unexpected %q, %q opened at line %d is still open",
				c, p.code[top.off], p.lineNo(top.off)))
		}
		stack = stack[:len(stack)-1]
	}
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return MalformedStructure(p.lineNo(top.off), fmt.Sprintf("%q is never closed", p.code[top.off]))
	}
	return nil
}

func (p *parser) attributeEnd(pos int) (int, bool) {
	j := pos + 1
	if j < len(p.code) && p.code[j] == '!' {
		j++
	}
	return matchClose(p.code, j, blockBrackets)
}

func (p *parser) lineNo(off int) uint32 {
	return p.file.Position(u32(off)).Line
}

func (p *parser) lineStartAt(off int) int {
	return strings.LastIndexByte(p.code[:off], '\n') + 1
}

func (p *parser) lineEndAt(off int) int {
	if k := strings.IndexByte(p.code[off:], '\n'); k >= 0 {
		return off + k
	}
	return len(p.code)
}

func isConstructor(fn *FunctionDecl, target string) bool {
	if constructorNames[fn.Name] {
		return true
	}
	if fn.HasSelf() || !fn.HasReturn() {
		return false
	}
	if containsWord(fn.ReturnType, "Self") {
		return true
	}
	return target != "" && containsWord(fn.ReturnType, target)
}

// splitImplHeader extracts the target type and optional trait from a
// normalized "impl<..> Trait for Type<..> where .." header.
func splitImplHeader(header string) (target, trait string) {
	h := strings.TrimSpace(strings.TrimPrefix(header, "unsafe "))
	h = strings.TrimSpace(strings.TrimPrefix(h, "impl"))
	if strings.HasPrefix(h, "<") {
		if end, ok := matchClose(h, 0, signatureBrackets); ok {
			h = strings.TrimSpace(h[end+1:])
		}
	}
	if loc := whereRe.FindStringIndex(h); loc != nil {
		h = strings.TrimSpace(h[:loc[0]])
	}
	depth := 0
	for i := 0; i < len(h); i++ {
		switch {
		case h[i] == '<':
			depth++
		case h[i] == '>' && !isArrow(h, i):
			depth--
		case depth == 0 && wordAt(h, i, "for"):
			return baseTypeName(h[i+3:]), strings.TrimSpace(h[:i])
		}
	}
	return baseTypeName(h), ""
}

// baseTypeName reduces "&'a mut path::Token<T>" to "Token".
func baseTypeName(t string) string {
	t = strings.TrimSpace(t)
	t = strings.TrimLeft(t, "&")
	for _, prefix := range []string{"mut ", "dyn "} {
		t = strings.TrimPrefix(strings.TrimSpace(t), prefix)
	}
	if k := strings.IndexByte(t, '<'); k >= 0 {
		t = t[:k]
	}
	if k := strings.LastIndex(t, "::"); k >= 0 {
		t = t[k+2:]
	}
	return strings.TrimSpace(t)
}

// classify inspects the lookbehind attributes of an item.
func classify(attrs []string) marker {
	for _, a := range attrs {
		switch attributeName(a) {
		case "contracttype", "contract":
			return markerType
		case "contractimpl":
			return markerImpl
		}
	}
	return markerNone
}

// attributeName returns the last path segment of an attribute's name.
func attributeName(attr string) string {
	s := strings.TrimPrefix(attr, "#")
	s = strings.TrimPrefix(s, "!")
	s = strings.TrimSpace(strings.TrimPrefix(s, "["))
	if k := strings.IndexAny(s, "(]= \t\n"); k >= 0 {
		s = s[:k]
	}
	if k := strings.LastIndex(s, "::"); k >= 0 {
		s = s[k+2:]
	}
	return s
}

// stripAttributes drops leading #[..] groups from entry. off is the absolute
// offset of entry and is advanced accordingly.
func stripAttributes(entry string, off int) (string, int) {
	for strings.HasPrefix(entry, "#[") {
		end, ok := matchClose(entry, 1, blockBrackets)
		if !ok {
			return entry, off
		}
		rest := entry[end+1:]
		trimmed := strings.TrimSpace(rest)
		off += end + 1 + (len(rest) - len(strings.TrimLeft(rest, " \t\r\n")))
		entry = trimmed
	}
	return entry, off
}

// topLevelColon returns the index of the first ':' that is neither part of a
// "::" path nor inside brackets.
func topLevelColon(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case openerKind(c)&signatureBrackets != 0:
			depth++
		case closerKind(c)&signatureBrackets != 0 && !isArrow(s, i):
			if depth > 0 {
				depth--
			}
		case c == ':' && depth == 0:
			if i+1 < len(s) && s[i+1] == ':' {
				i++
				continue
			}
			return i
		}
	}
	return -1
}

func braceDelta(s string) int {
	return strings.Count(s, "{") - strings.Count(s, "}")
}

func isAttributeStart(s string, pos int) bool {
	if pos+1 >= len(s) || s[pos] != '#' {
		return false
	}
	return s[pos+1] == '[' || (s[pos+1] == '!' && pos+2 < len(s) && s[pos+2] == '[')
}

func skipSpace(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t' || s[pos] == '\n' || s[pos] == '\r') {
		pos++
	}
	return pos
}

func skipInlineSpace(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t') {
		pos++
	}
	return pos
}
