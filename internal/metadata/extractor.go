// Package metadata implements C4: per-chunk metadata extraction from a
// parsed AST. Grounded on
// _examples/jinford-dev-rag/pkg/indexer/chunker/ast_chunker_go.go's
// calculateCyclomaticComplexity and signature/import extraction, generalized
// from go/ast node kinds to the tree-sitter node-type names internal/chunk
// already classifies by, so the same extractor works across every language
// the registry knows about.
package metadata

import (
	"strings"

	"github.com/mnemolite/mnemolite/internal/chunk"
	"github.com/mnemolite/mnemolite/internal/domain"
)

// branchTypes are tree-sitter node type names that add one to cyclomatic
// complexity, pooled across every grammar the registry supports. A node type
// absent from a given language's grammar simply never matches.
var branchTypes = map[string]bool{
	"if_statement":           true,
	"for_statement":          true,
	"for_in_statement":       true,
	"while_statement":        true,
	"do_statement":           true,
	"case_clause":            true,
	"default_clause":         true,
	"catch_clause":           true,
	"except_clause":          true,
	"conditional_expression": true,
	"elif_clause":            true,
	"communication_case":     true, // Go select's case
	"type_switch_statement":  true,
	"switch_case":            true,
}

// logicalOperatorTypes mark short-circuit boolean connectives, each adding
// one branch per the teacher's "&&/|| are decision points" rule.
var logicalOperatorTypes = map[string]bool{
	"binary_expression": true, // Go/JS: check operator token among children
	"boolean_operator":  true, // Python: `and`/`or`
}

var logicalOperatorTokens = map[string]bool{
	"&&": true, "||": true, "and": true, "or": true,
}

// Extractor produces ChunkMetadata from a chunk's AST node. It never returns
// an error: extraction failures degrade to a partially populated or
// zero-value ChunkMetadata rather than failing the enclosing index_file call,
// per spec §4.2's graceful-degradation requirement.
type Extractor struct {
	registry *chunk.LanguageRegistry
}

// New builds a metadata extractor bound to the default language registry.
func New() *Extractor {
	return &Extractor{registry: chunk.DefaultRegistry()}
}

// Extract walks node (the chunk's own AST subtree) and the file-level root
// (for import statements, which live outside any single chunk) to build
// ChunkMetadata. root may be nil when only the chunk's own subtree is
// available (e.g. fallback-chunked content has no AST at all).
func (e *Extractor) Extract(node *chunk.Node, root *chunk.Node, source []byte, language string) domain.ChunkMetadata {
	if node == nil {
		return domain.ChunkMetadata{}
	}

	config, ok := e.registry.GetByName(language)
	if !ok {
		return domain.ChunkMetadata{}
	}

	meta := domain.ChunkMetadata{
		Calls:        extractCalls(node, source),
		CallContexts: extractCallContexts(node, source, ""),
		Complexity:   computeComplexity(node, source),
		IsAsync:      isAsync(node, source),
		LSPType:      lspType(config, node.Type),
	}

	if root != nil {
		meta.Imports = extractImports(root, source, language)
	}

	if sig := extractSignature(config, node, source, language); sig != nil {
		meta.Signature = sig
	}

	if doc := extractDocstring(node, source, language); doc != "" {
		meta.Docstring = doc
	}

	return meta
}

func lspType(config *chunk.LanguageConfig, nodeType string) string {
	switch {
	case contains(config.MethodTypes, nodeType):
		return "method"
	case contains(config.FunctionTypes, nodeType):
		return "function"
	case contains(config.ClassTypes, nodeType):
		return "class"
	case contains(config.InterfaceTypes, nodeType):
		return "interface"
	default:
		return "module"
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// extractCalls collects the callee name of every call_expression-shaped node
// in the subtree (call_expression covers Go/JS/TS; Python uses "call").
func extractCalls(node *chunk.Node, source []byte) []string {
	var calls []string
	seen := map[string]bool{}
	for _, t := range []string{"call_expression", "call"} {
		for _, n := range node.FindAllByType(t) {
			name := calleeName(n, source)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			calls = append(calls, name)
		}
	}
	return calls
}

func calleeName(callNode *chunk.Node, source []byte) string {
	if len(callNode.Children) == 0 {
		return ""
	}
	fn := callNode.Children[0]
	switch fn.Type {
	case "identifier":
		return fn.GetContent(source)
	case "selector_expression", "member_expression", "attribute":
		// The callee name is the last identifier-ish child (the selected field).
		if len(fn.Children) > 0 {
			last := fn.Children[len(fn.Children)-1]
			return last.GetContent(source)
		}
	}
	return fn.GetContent(source)
}

// extractCallContexts annotates each call with whether it sits inside a
// conditional or loop, and which enclosing scope it belongs to — the input
// edge-weighting signal spec §4.9 uses at graph-build time.
func extractCallContexts(node *chunk.Node, source []byte, scopeName string) []domain.CallContext {
	var contexts []domain.CallContext
	var walk func(n *chunk.Node, inConditional, inLoop bool)
	walk = func(n *chunk.Node, inConditional, inLoop bool) {
		switch n.Type {
		case "if_statement", "conditional_expression", "case_clause", "elif_clause":
			inConditional = true
		case "for_statement", "for_in_statement", "while_statement", "do_statement":
			inLoop = true
		case "call_expression", "call":
			contexts = append(contexts, domain.CallContext{
				CallName:      calleeName(n, source),
				IsConditional: inConditional,
				IsLoop:        inLoop,
				ScopeType:     "function",
				ScopeName:     scopeName,
			})
		}
		for _, child := range n.Children {
			walk(child, inConditional, inLoop)
		}
	}
	walk(node, false, false)
	return contexts
}

// computeComplexity implements the teacher's McCabe formula (baseline 1 plus
// one per branch, plus one per short-circuit logical operator), walked over
// tree-sitter node types instead of go/ast node kinds so it generalizes
// across languages, plus cognitive complexity (branches weighted by nesting
// depth) and a raw line count.
func computeComplexity(node *chunk.Node, source []byte) *domain.Complexity {
	cyclomatic := 1
	cognitive := 0

	var walk func(n *chunk.Node, depth int)
	walk = func(n *chunk.Node, depth int) {
		nextDepth := depth
		if branchTypes[n.Type] {
			cyclomatic++
			cognitive += 1 + depth
			nextDepth = depth + 1
		}
		if logicalOperatorTypes[n.Type] && hasLogicalOperatorToken(n, source) {
			cyclomatic++
			cognitive++
		}
		for _, child := range n.Children {
			walk(child, nextDepth)
		}
	}
	walk(node, 0)

	lines := int(node.EndPoint.Row-node.StartPoint.Row) + 1

	return &domain.Complexity{
		Cyclomatic:  cyclomatic,
		Cognitive:   cognitive,
		LinesOfCode: lines,
	}
}

func hasLogicalOperatorToken(n *chunk.Node, source []byte) bool {
	for _, child := range n.Children {
		if logicalOperatorTokens[child.Type] {
			return true
		}
	}
	return false
}

func isAsync(node *chunk.Node, source []byte) bool {
	content := node.GetContent(source)
	firstLine := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		firstLine = content[:idx]
	}
	return strings.Contains(firstLine, "async ") || strings.HasPrefix(strings.TrimSpace(firstLine), "async")
}

// extractSignature pulls the name, parameter list and return type for a
// function/method node. Best-effort, by child node type: a parameter's Type
// and the ReturnType are read from a child of node type "type", which only
// Python's grammar produces, so other languages leave both empty. For a Go
// method the first parameter_list found is the receiver, and Parameters
// holds the receiver.
func extractSignature(config *chunk.LanguageConfig, node *chunk.Node, source []byte, language string) *domain.Signature {
	if !contains(config.FunctionTypes, node.Type) && !contains(config.MethodTypes, node.Type) {
		return nil
	}

	nameNode := node.FindChildByType(config.NameField)
	for _, t := range []string{"identifier", "field_identifier", "property_identifier"} {
		if nameNode != nil {
			break
		}
		nameNode = node.FindChildByType(t)
	}
	name := ""
	if nameNode != nil {
		name = nameNode.GetContent(source)
	}

	sig := &domain.Signature{
		FunctionName: name,
		IsAsync:      isAsync(node, source),
	}

	params := node.FindChildByType("parameter_list")
	if params == nil {
		params = node.FindChildByType("parameters")
	}
	if params != nil {
		sig.Parameters = extractParameters(params, source, language)
	}

	if ret := node.FindChildByType("type"); ret != nil {
		sig.ReturnType = ret.GetContent(source)
	}

	return sig
}

func extractParameters(params *chunk.Node, source []byte, language string) []domain.Parameter {
	var result []domain.Parameter
	for _, child := range params.Children {
		switch child.Type {
		case "identifier":
			result = append(result, domain.Parameter{Name: child.GetContent(source)})
		case "parameter_declaration", "required_parameter", "optional_parameter", "typed_parameter":
			p := domain.Parameter{}
			if id := child.FindChildByType("identifier"); id != nil {
				p.Name = id.GetContent(source)
			}
			if t := child.FindChildByType("type"); t != nil {
				p.Type = t.GetContent(source)
			}
			p.IsOptional = child.Type == "optional_parameter"
			if p.Name != "" {
				result = append(result, p)
			}
		}
	}
	return result
}

// extractImports collects top-level import statements from the file root,
// which spec §4.2 treats as file-scoped rather than chunk-scoped.
func extractImports(root *chunk.Node, source []byte, language string) []string {
	var importTypes []string
	switch language {
	case "go":
		importTypes = []string{"import_spec"}
	case "python":
		importTypes = []string{"import_statement", "import_from_statement"}
	default:
		importTypes = []string{"import_statement"}
	}

	var imports []string
	for _, t := range importTypes {
		for _, n := range root.FindAllByType(t) {
			content := strings.TrimSpace(n.GetContent(source))
			if content != "" {
				imports = append(imports, content)
			}
		}
	}
	return imports
}

// extractDocstring returns the string literal that opens a Python function
// or class body, with its quotes trimmed. Every other language gets "":
// comments preceding a node are not collected.
func extractDocstring(node *chunk.Node, source []byte, language string) string {
	if language != "python" {
		return ""
	}
	block := node.FindChildByType("block")
	if block == nil || len(block.Children) == 0 {
		return ""
	}
	first := block.Children[0]
	if first.Type != "expression_statement" || len(first.Children) == 0 {
		return ""
	}
	str := first.Children[0]
	if str.Type != "string" {
		return ""
	}
	return strings.Trim(str.GetContent(source), "\"' \t\n")
}
