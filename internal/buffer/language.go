package buffer

import (
	"context"

	phpforest "github.com/alexaandru/go-sitter-forest/php"
	twigforest "github.com/alexaandru/go-sitter-forest/twig"
	xmlforest "github.com/alexaandru/go-sitter-forest/xml"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Language identifies the grammar a buffer should be parsed with. The zero
// value means "no grammar" (plain text): the buffer still tracks content,
// versions and anchors, it just never produces a parse tree.
type Language string

const (
	LanguageNone Language = ""
	LanguagePHP  Language = "php"
	LanguageTwig Language = "twig"
	LanguageXML  Language = "xml"
)

// grammarFor returns the tree-sitter grammar for a Language, mirroring the
// per-language dispatch in the analyzer package this buffer is generalized
// from (one case per supported forest grammar, the zero sitter.Language for
// unsupported/none).
func grammarFor(lang Language) sitter.Language {
	switch lang {
	case LanguagePHP:
		return sitter.NewLanguage(phpforest.GetLanguage())
	case LanguageTwig:
		return sitter.NewLanguage(twigforest.GetLanguage())
	case LanguageXML:
		return sitter.NewLanguage(xmlforest.GetLanguage())
	default:
		return sitter.Language{}
	}
}

// parsedTree owns a buffer's current tree-sitter tree, if any.
type parsedTree struct {
	parser *sitter.Parser
	tree   *sitter.Tree
}

func newParsedTree(lang Language) *parsedTree {
	if lang == LanguageNone {
		return nil
	}
	p := sitter.NewParser()
	_ = p.SetLanguage(grammarFor(lang))
	return &parsedTree{parser: p}
}

// reparse re-parses content, incrementally against the previous tree when
// edit is non-nil, exactly as internal/php/document.go does.
func (pt *parsedTree) reparse(content []byte, edit *sitter.InputEdit) error {
	if pt == nil {
		return nil
	}
	if edit != nil && pt.tree != nil {
		pt.tree.Edit(*edit)
	}
	newTree, err := pt.parser.ParseString(context.Background(), pt.tree, content)
	if err != nil {
		return err
	}
	if pt.tree != nil {
		pt.tree.Close()
	}
	pt.tree = newTree
	return nil
}

func (pt *parsedTree) close() {
	if pt == nil || pt.tree == nil {
		return
	}
	pt.tree.Close()
	pt.tree = nil
}

func (pt *parsedTree) rootNode() (sitter.Node, bool) {
	if pt == nil || pt.tree == nil {
		return sitter.Node{}, false
	}
	root := pt.tree.RootNode()
	return root, !root.IsNull()
}

// OutlineEntry is one symbol-like node surfaced by Outline.
type OutlineEntry struct {
	Kind  string
	Name  string
	Range Range
}

// outlineNodeKinds are common tree-sitter node-type suffixes used by
// definition/declaration constructs across the grammars this buffer
// supports. Grammars that don't follow the convention simply produce an
// empty outline rather than a wrong one.
var outlineNodeKinds = []string{"_declaration", "_definition", "_statement"}

func outlineOf(root sitter.Node, content []byte) []OutlineEntry {
	if root.IsNull() {
		return nil
	}
	var out []OutlineEntry
	stack := []sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if isOutlineKind(node.Type()) {
			name := ""
			if nameNode := node.ChildByFieldName("name"); !nameNode.IsNull() {
				name = nameNode.Content(content)
			}
			out = append(out, OutlineEntry{
				Kind:  node.Type(),
				Name:  name,
				Range: Range{int(node.StartByte()), int(node.EndByte())},
			})
		}
		for i := int(node.NamedChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, node.NamedChild(uint32(i)))
		}
	}
	return out
}

func isOutlineKind(t string) bool {
	for _, suffix := range outlineNodeKinds {
		if len(t) > len(suffix) && t[len(t)-len(suffix):] == suffix {
			return true
		}
	}
	return false
}

// smallestNodeContaining returns the deepest named node whose byte range
// contains offset.
func smallestNodeContaining(root sitter.Node, offset int) (sitter.Node, bool) {
	if root.IsNull() {
		return sitter.Node{}, false
	}
	best := root
	for {
		advanced := false
		for i := uint32(0); i < best.NamedChildCount(); i++ {
			child := best.NamedChild(i)
			if int(child.StartByte()) <= offset && offset <= int(child.EndByte()) {
				best = child
				advanced = true
				break
			}
		}
		if !advanced {
			return best, true
		}
	}
}

var bracketPairs = map[byte]byte{'{': '}', '(': ')', '[': ']'}

// enclosingBracketRanges walks ancestors of the node at offset looking for
// ones whose content is wrapped in a matching bracket pair.
func enclosingBracketRanges(root sitter.Node, content []byte, offset int) []Range {
	node, ok := smallestNodeContaining(root, offset)
	if !ok {
		return nil
	}
	var out []Range
	for cur := node; !cur.IsNull(); cur = cur.Parent() {
		s, e := int(cur.StartByte()), int(cur.EndByte())
		if e-s < 2 || s < 0 || e > len(content) {
			continue
		}
		if want, isOpen := bracketPairs[content[s]]; isOpen && content[e-1] == want {
			out = append(out, Range{s, e})
		}
	}
	return out
}

// rangeForSyntaxAncestor walks up from the smallest node containing
// rng.Start by levels ancestor steps and returns its byte range; rng.End is
// not consulted.
func rangeForSyntaxAncestor(root sitter.Node, rng Range, levels int) (Range, bool) {
	node, ok := smallestNodeContaining(root, rng.Start)
	if !ok {
		return Range{}, false
	}
	for levels > 0 && !node.Parent().IsNull() {
		node = node.Parent()
		levels--
	}
	return Range{int(node.StartByte()), int(node.EndByte())}, true
}
