package certgen

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Template generates documents from LaTeX source containing \substitude
// directives and \optional blocks. It is safe for concurrent use; the only
// mutable state is the counter used to number generated names.
type Template struct {
	basename string
	nodes    []node

	mu      sync.Mutex
	counter int
}

// NewTemplate parses content. basename prefixes every generated name.
func NewTemplate(basename, content string) (*Template, error) {
	nodes, err := parseTemplate(content)
	if err != nil {
		return nil, newError(KindTemplate, "parse template", basename, err)
	}
	return &Template{basename: basename, nodes: nodes}, nil
}

// LoadTemplate reads and parses a template file. The base name is the file
// name without its extension.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- template paths come from the batch description
	if err != nil {
		return nil, newError(KindFileAccess, "read template", path, err)
	}
	base := filepath.Base(path)
	return NewTemplate(strings.TrimSuffix(base, filepath.Ext(base)), string(data))
}

// Name returns the template's base name.
func (t *Template) Name() string {
	return t.basename
}

// Check reports whether Generate would succeed for the recipient, without
// advancing the name counter.
func (t *Template) Check(r Recipient, global GlobalProperties) error {
	if _, err := t.name(0, r); err != nil {
		return t.fieldError(err)
	}
	return t.render(discard{}, r, global)
}

// Generate expands the template for one recipient. The name counter
// advances on every call, including failed ones.
func (t *Template) Generate(r Recipient, global GlobalProperties) (Artifact, error) {
	n := t.next()
	name, err := t.name(n, r)
	if err != nil {
		return Artifact{}, t.fieldError(err)
	}

	var b strings.Builder
	if err := t.render(&b, r, global); err != nil {
		return Artifact{}, err
	}
	return Artifact{Name: name, Content: b.String()}, nil
}

func (t *Template) next() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counter++
	return t.counter
}

// name builds {basename}_{n}[_{surname}][_{name}].
func (t *Template) name(n int, r Recipient) (string, error) {
	var b strings.Builder
	b.WriteString(t.basename)
	b.WriteByte('_')
	b.WriteString(strconv.Itoa(n))
	for _, field := range [...]string{"surname", "name"} {
		s, ok, err := nameComponent(r, field)
		if err != nil {
			return "", err
		}
		if ok {
			b.WriteByte('_')
			b.WriteString(s)
		}
	}
	return b.String(), nil
}

func (t *Template) render(w io.StringWriter, r Recipient, global GlobalProperties) error {
	for _, n := range t.nodes {
		switch n.kind {
		case nodeText:
			_, _ = w.WriteString(n.text)
		case nodeSubstitute:
			v, err := resolve(n, r, global)
			if err != nil {
				return t.fieldError(err)
			}
			_, _ = w.WriteString(v)
		case nodeOptional:
			if err := renderOptional(w, n, r); err != nil {
				return t.fieldError(err)
			}
		}
	}
	return nil
}

func (t *Template) fieldError(err error) error {
	return newError(KindConfiguration, "expand template", t.basename, err)
}

// resolve looks a directive's field up in its namespace.
func resolve(n node, r Recipient, global GlobalProperties) (string, error) {
	switch n.namespace {
	case nsStudent:
		if v, ok := r.String(n.field); ok {
			return v, nil
		}
	case nsGlobal:
		if v, ok := global.String(n.field); ok {
			return v, nil
		}
	default:
		if v, ok := r.String(n.field); ok {
			return v, nil
		}
		if v, ok := global.String(n.field); ok {
			return v, nil
		}
		return "", fmt.Errorf("no property %q of type string in student or global", n.field)
	}
	return "", fmt.Errorf("no property %q of type string in %s", n.field, n.namespace)
}

// renderOptional instantiates the block body once per table row. Directives
// in the body see only the row.
func renderOptional(w io.StringWriter, n node, r Recipient) error {
	rows, ok := tableRows(r[n.field])
	if !ok {
		return fmt.Errorf("no array %q of mappings in student", n.field)
	}
	for _, row := range rows {
		for _, part := range n.body {
			if part.kind == nodeText {
				_, _ = w.WriteString(part.text)
				continue
			}
			v, ok := stringField(row, part.field)
			if !ok {
				return fmt.Errorf("no property %q of type string in table %q", part.field, n.field)
			}
			_, _ = w.WriteString(v)
		}
	}
	return nil
}

type discard struct{}

func (discard) WriteString(s string) (int, error) { return len(s), nil }
