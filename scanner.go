package certgen

import (
	"fmt"
	"strings"
)

// Template markup keywords.
const (
	generatorMarker   = `\usepackage{certificate-generator}`
	optionalKeyword   = `\optional`
	substituteKeyword = `\substitude`
)

// namespace selects where a \substitude directive looks up its field.
type namespace string

const (
	nsAuto    namespace = "auto"
	nsStudent namespace = "student"
	nsGlobal  namespace = "global"
)

func (ns namespace) valid() bool {
	return ns == nsAuto || ns == nsStudent || ns == nsGlobal
}

type nodeKind int

const (
	nodeText nodeKind = iota
	nodeSubstitute
	nodeOptional
)

// node is one element of a parsed template. Optional blocks carry their
// body as text and substitute nodes; bodies are never scanned for nested
// optional blocks.
type node struct {
	kind      nodeKind
	text      string
	namespace namespace
	field     string
	body      []node
	offset    int
}

// syntaxError reports malformed markup at a byte offset of the source.
type syntaxError struct {
	src    string
	offset int
	msg    string
}

func (e *syntaxError) Error() string {
	line := strings.Count(e.src[:e.offset], "\n") + 1
	return fmt.Sprintf("line %d: %s", line, e.msg)
}

// parseTemplate strips the generator marker and splits src into nodes.
// Optional blocks are located first; substitution directives are then
// scanned only in the text between them and inside their bodies.
func parseTemplate(src string) ([]node, error) {
	src = strings.Replace(src, generatorMarker, "", 1)

	var nodes []node
	s := &scanner{src: src}
	for {
		start := s.find(optionalKeyword)
		if start < 0 {
			break
		}
		text, err := parseSubstitutions(src, s.pos, start)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, text...)

		opt, err := s.optional(start)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, opt)
	}

	rest, err := parseSubstitutions(src, s.pos, len(src))
	if err != nil {
		return nil, err
	}
	return append(nodes, rest...), nil
}

// parseSubstitutions scans src[from:to] for \substitude directives.
func parseSubstitutions(src string, from, to int) ([]node, error) {
	var nodes []node
	s := &scanner{src: src[:to], pos: from}
	for {
		start := s.find(substituteKeyword)
		if start < 0 {
			break
		}
		if start > s.pos {
			nodes = append(nodes, node{kind: nodeText, text: src[s.pos:start], offset: s.pos})
		}
		sub, err := s.substitute(start)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, sub)
	}
	if s.pos < to {
		nodes = append(nodes, node{kind: nodeText, text: src[s.pos:to], offset: s.pos})
	}
	return nodes, nil
}

// scanner walks template source. pos is the first byte not yet consumed.
type scanner struct {
	src string
	pos int
}

func (s *scanner) errorf(offset int, format string, args ...any) error {
	return &syntaxError{src: s.src, offset: offset, msg: fmt.Sprintf(format, args...)}
}

// find returns the offset of the next keyword at or after pos, skipping
// longer macro names that merely share the prefix (\optionalfoo).
func (s *scanner) find(keyword string) int {
	from := s.pos
	for {
		i := strings.Index(s.src[from:], keyword)
		if i < 0 {
			return -1
		}
		start := from + i
		after := start + len(keyword)
		if after < len(s.src) && isLetter(s.src[after]) {
			from = after
			continue
		}
		return start
	}
}

// substitute parses \substitude[ns]{NAME} starting at start.
func (s *scanner) substitute(start int) (node, error) {
	s.pos = start + len(substituteKeyword)
	ns, err := s.namespace(start)
	if err != nil {
		return node{}, err
	}
	field, err := s.flatArg(start, substituteKeyword)
	if err != nil {
		return node{}, err
	}
	return node{kind: nodeSubstitute, namespace: ns, field: field, offset: start}, nil
}

// optional parses \optional[ns]{FIELD}{BODY} starting at start. The body
// extends to its matching brace; escaped braces do not count.
func (s *scanner) optional(start int) (node, error) {
	s.pos = start + len(optionalKeyword)
	ns, err := s.namespace(start)
	if err != nil {
		return node{}, err
	}
	field, err := s.flatArg(start, optionalKeyword)
	if err != nil {
		return node{}, err
	}

	s.skipSpace()
	bodyStart := s.pos + 1
	body, err := s.balancedArg(start)
	if err != nil {
		return node{}, err
	}

	inner, err := parseSubstitutions(s.src, bodyStart, bodyStart+len(body))
	if err != nil {
		return node{}, err
	}
	return node{kind: nodeOptional, namespace: ns, field: field, body: inner, offset: start}, nil
}

// namespace consumes an optional [ns] qualifier, defaulting to auto.
func (s *scanner) namespace(start int) (namespace, error) {
	if s.pos >= len(s.src) || s.src[s.pos] != '[' {
		return nsAuto, nil
	}
	end := strings.IndexByte(s.src[s.pos:], ']')
	if end < 0 {
		return "", s.errorf(start, "unterminated namespace")
	}
	ns := namespace(s.src[s.pos+1 : s.pos+end])
	if !ns.valid() {
		return "", s.errorf(start, "unknown namespace %q (must be student, global or auto)", ns)
	}
	s.pos += end + 1
	return ns, nil
}

// flatArg consumes {ARG} where ARG holds no braces.
func (s *scanner) flatArg(start int, keyword string) (string, error) {
	if s.pos >= len(s.src) || s.src[s.pos] != '{' {
		return "", s.errorf(start, "expected { after %s", keyword)
	}
	end := strings.IndexByte(s.src[s.pos+1:], '}')
	if end < 0 {
		return "", s.errorf(start, "unterminated %s argument", keyword)
	}
	arg := s.src[s.pos+1 : s.pos+1+end]
	if strings.IndexByte(arg, '{') >= 0 {
		return "", s.errorf(start, "%s argument cannot contain braces", keyword)
	}
	if arg == "" {
		return "", s.errorf(start, "empty %s argument", keyword)
	}
	s.pos += end + 2
	return arg, nil
}

// balancedArg consumes {BODY} tracking brace depth and returns BODY.
func (s *scanner) balancedArg(start int) (string, error) {
	if s.pos >= len(s.src) || s.src[s.pos] != '{' {
		return "", s.errorf(start, "expected { before optional body")
	}
	depth := 0
	for i := s.pos; i < len(s.src); i++ {
		switch s.src[i] {
		case '\\':
			i++ // \{ and \} are literal braces
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				body := s.src[s.pos+1 : i]
				s.pos = i + 1
				return body, nil
			}
		}
	}
	return "", s.errorf(start, "unterminated optional body")
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
