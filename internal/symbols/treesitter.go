package symbols

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
)

// CParser extracts definitions from C sources in process, for hosts with
// no tagging tool installed.
type CParser struct {
	parser *sitter.Parser
}

// NewCParser returns a parser for C.
func NewCParser() *CParser {
	parser := sitter.NewParser()
	parser.SetLanguage(c.GetLanguage())
	return &CParser{parser: parser}
}

// ParseFile reads root/rel and returns its definitions.
func (p *CParser) ParseFile(ctx context.Context, root, rel string) ([]Definition, error) {
	content, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return p.Parse(ctx, rel, content)
}

// Parse returns the functions, macros, types, tags and enumerators
// defined in content.
func (p *CParser) Parse(ctx context.Context, file string, content []byte) ([]Definition, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	defer tree.Close()

	var defs []Definition
	add := func(n *sitter.Node) {
		if n == nil {
			return
		}
		defs = append(defs, Definition{
			Symbol: n.Content(content),
			File:   file,
			Line:   int(n.StartPoint().Row) + 1,
		})
	}
	walk(tree.RootNode(), func(n *sitter.Node) {
		switch n.Type() {
		case "function_definition":
			add(declaratorName(n.ChildByFieldName("declarator")))
		case "preproc_def", "preproc_function_def":
			add(n.ChildByFieldName("name"))
		case "type_definition":
			add(declaratorName(n.ChildByFieldName("declarator")))
		case "struct_specifier", "union_specifier", "enum_specifier":
			if n.ChildByFieldName("body") != nil {
				add(n.ChildByFieldName("name"))
			}
		case "enumerator":
			add(n.ChildByFieldName("name"))
		}
	})
	return defs, nil
}

// declaratorName digs through pointer, function and array declarators to
// the declared identifier.
func declaratorName(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "identifier", "type_identifier", "field_identifier":
			return n
		case "parenthesized_declarator":
			n = n.NamedChild(0)
		default:
			n = n.ChildByFieldName("declarator")
		}
	}
	return nil
}

func walk(n *sitter.Node, fn func(*sitter.Node)) {
	fn(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), fn)
	}
}
