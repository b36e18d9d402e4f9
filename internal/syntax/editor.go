// Package syntax parses Python source with Tree-sitter and performs
// line-range symbol surgery: locate a declaration by dotted symbol path,
// replace its exact span, reconcile indentation, and prove the result still
// parses before anything touches disk.
package syntax

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"codeatlas/internal/logging"
	"codeatlas/internal/resource"
)

// Symbol describes a located declaration and its source span.
type Symbol struct {
	Name      string
	Kind      string // "class" or "function"
	StartLine int    // 1-based, includes decorators
	EndLine   int    // 1-based, inclusive
	Col       int    // column offset of the definition line
	Signature string
}

// Summary condenses a module for container-granularity reads.
type Summary struct {
	DocLine   string
	Classes   int
	Functions int
	Constants int
}

// Editor owns a Tree-sitter parser. The parser is not safe for concurrent
// use, so all entry points serialize on the mutex.
type Editor struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewEditor creates an Editor for Python source.
func NewEditor() *Editor {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Editor{parser: p}
}

func (e *Editor) parse(ctx context.Context, src []byte) (*sitter.Tree, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tree, err := e.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, resource.Validationf("parse failed: %v", err)
	}
	return tree, nil
}

// Validate checks that src parses as a complete Python file.
func (e *Editor) Validate(ctx context.Context, src []byte) error {
	tree, err := e.parse(ctx, src)
	if err != nil {
		return err
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}
	line := firstErrorLine(root)
	return resource.Validationf("source does not parse: syntax error near line %d", line)
}

// firstErrorLine walks the tree for the first ERROR or missing node.
func firstErrorLine(root *sitter.Node) int {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type() == "ERROR" || n.IsMissing() {
			return int(n.StartPoint().Row) + 1
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			stack = append(stack, n.Child(i))
		}
	}
	return int(root.StartPoint().Row) + 1
}

// Locate resolves a symbol path (e.g. ["Foo", "bar"]) inside src by walking
// class and function declarations by name, nested declarations included.
func (e *Editor) Locate(ctx context.Context, src []byte, path []string) (*Symbol, error) {
	if len(path) == 0 {
		return nil, resource.Addressf("empty symbol path")
	}
	tree, err := e.parse(ctx, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	node, err := locateNode(tree.RootNode(), path, src)
	if err != nil {
		return nil, err
	}
	return symbolFor(node, src), nil
}

// locateNode walks declarations by name and returns the outermost node of
// the final one (the decorated wrapper when decorators are present).
func locateNode(root *sitter.Node, path []string, src []byte) (*sitter.Node, error) {
	scope := root
	var node *sitter.Node
	for i, name := range path {
		node = findDecl(scope, name, src)
		if node == nil {
			return nil, resource.Addressf("no symbol %q at %s", name, strings.Join(path[:i+1], "."))
		}
		if i < len(path)-1 {
			body := definitionNode(node).ChildByFieldName("body")
			if body == nil {
				return nil, resource.Addressf("symbol %q has no nested declarations", name)
			}
			scope = body
		}
	}
	return node, nil
}

// Symbols lists the declarations directly inside one scope of src. An empty
// path lists the module's top-level declarations.
func (e *Editor) Symbols(ctx context.Context, src []byte, path []string) ([]Symbol, error) {
	tree, err := e.parse(ctx, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	scope := tree.RootNode()
	if len(path) > 0 {
		node, err := locateNode(scope, path, src)
		if err != nil {
			return nil, err
		}
		body := definitionNode(node).ChildByFieldName("body")
		if body == nil {
			return nil, nil
		}
		scope = body
	}

	var out []Symbol
	collectDecls(scope, src, &out)
	return out, nil
}

// Summarize extracts the first docstring line and top-level declaration
// counts for a module.
func (e *Editor) Summarize(ctx context.Context, src []byte) (Summary, error) {
	tree, err := e.parse(ctx, src)
	if err != nil {
		return Summary{}, err
	}
	defer tree.Close()

	root := tree.RootNode()
	s := Summary{DocLine: docLine(root, src)}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "class_definition":
			s.Classes++
		case "function_definition":
			s.Functions++
		case "decorated_definition":
			if inner := definitionNode(child); inner != nil {
				if inner.Type() == "class_definition" {
					s.Classes++
				} else if inner.Type() == "function_definition" {
					s.Functions++
				}
			}
		case "expression_statement":
			if isAssignment(child) {
				s.Constants++
			}
		}
	}
	logging.SyntaxDebug("summarized module: classes=%d functions=%d constants=%d", s.Classes, s.Functions, s.Constants)
	return s, nil
}

// findDecl searches one scope for a class or function declaration named
// name. It unwraps decorated definitions and looks inside non-definition
// compound statements, but never descends into other declarations.
func findDecl(scope *sitter.Node, name string, src []byte) *sitter.Node {
	if scope == nil {
		return nil
	}
	for i := 0; i < int(scope.NamedChildCount()); i++ {
		child := scope.NamedChild(i)
		switch child.Type() {
		case "class_definition", "function_definition":
			if declName(child, src) == name {
				return child
			}
		case "decorated_definition":
			if inner := definitionNode(child); inner != nil && declName(inner, src) == name {
				return child
			}
		default:
			if found := findDecl(child, name, src); found != nil {
				return found
			}
		}
	}
	return nil
}

// definitionNode unwraps a decorated_definition to the inner declaration.
// For plain declarations it returns the node itself.
func definitionNode(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.Type() != "decorated_definition" {
		return node
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		inner := node.NamedChild(i)
		if inner.Type() == "class_definition" || inner.Type() == "function_definition" {
			return inner
		}
	}
	return nil
}

func declName(node *sitter.Node, src []byte) string {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	return string(src[nameNode.StartByte():nameNode.EndByte()])
}

func symbolFor(node *sitter.Node, src []byte) *Symbol {
	def := definitionNode(node)
	kind := "function"
	if def.Type() == "class_definition" {
		kind = "class"
	}

	lines := strings.Split(string(src), "\n")
	defLine := int(def.StartPoint().Row) + 1
	sig := ""
	if defLine-1 < len(lines) {
		sig = strings.TrimSpace(lines[defLine-1])
	}

	return &Symbol{
		Name: declName(def, src),
		Kind: kind,
		// The outer node includes decorators when present.
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		Col:       int(def.StartPoint().Column),
		Signature: sig,
	}
}

func collectDecls(scope *sitter.Node, src []byte, out *[]Symbol) {
	for i := 0; i < int(scope.NamedChildCount()); i++ {
		child := scope.NamedChild(i)
		switch child.Type() {
		case "class_definition", "function_definition", "decorated_definition":
			if definitionNode(child) != nil {
				*out = append(*out, *symbolFor(child, src))
			}
		}
	}
}

// docLine returns the first line of a module or class docstring, or "".
func docLine(scope *sitter.Node, src []byte) string {
	if scope.NamedChildCount() == 0 {
		return ""
	}
	first := scope.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}
	text := string(src[str.StartByte():str.EndByte()])
	text = strings.Trim(text, "\"'")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

func isAssignment(stmt *sitter.Node) bool {
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		if stmt.NamedChild(i).Type() == "assignment" {
			return true
		}
	}
	return false
}

// Span extracts the exact source lines [startLine, endLine], 1-based
// inclusive.
func Span(src []byte, startLine, endLine int) (string, error) {
	lines := strings.Split(string(src), "\n")
	if startLine < 1 || endLine > len(lines) || startLine > endLine {
		return "", fmt.Errorf("span %d-%d out of range (file has %d lines)", startLine, endLine, len(lines))
	}
	return strings.Join(lines[startLine-1:endLine], "\n"), nil
}
