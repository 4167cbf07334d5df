// Package chunk implements C3: splitting a source file into semantic units.
// The AST path is grounded on
// _examples/Aman-CERP-amanmcp/internal/chunk/{languages,parser}.go — a
// registry keyed by language tag mapping to a tree-sitter grammar and the
// node-type names that mark functions/methods/classes/interfaces, which is
// exactly the "tagged-variant + dispatch table" spec.md §9 asks for. The
// fixed-window fallback is grounded on
// _examples/jinford-dev-rag/pkg/indexer/chunker/chunker.go's tiktoken-based
// windowing.
package chunk

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// LanguageConfig is the "capability bundle" spec.md §9 describes: per-language
// node-type names plus the module-path prefix/extensions symbolpath needs.
type LanguageConfig struct {
	Name           string
	Extensions     []string
	FunctionTypes  []string
	MethodTypes    []string
	ClassTypes     []string
	InterfaceTypes []string
	NameField      string
}

// LanguageRegistry maps language tags to LanguageConfig + tree-sitter
// grammar, dispatch-table style.
type LanguageRegistry struct {
	mu          sync.RWMutex
	configs     map[string]*LanguageConfig
	extToLang   map[string]string
	tsLanguages map[string]*sitter.Language
}

// NewLanguageRegistry registers Go, TypeScript, TSX, JavaScript, JSX, and
// Python — the language set the example pack's tree-sitter grammars cover.
func NewLanguageRegistry() *LanguageRegistry {
	r := &LanguageRegistry{
		configs:     make(map[string]*LanguageConfig),
		extToLang:   make(map[string]string),
		tsLanguages: make(map[string]*sitter.Language),
	}
	r.registerGo()
	r.registerTypeScript()
	r.registerJavaScript()
	r.registerPython()
	return r
}

func (r *LanguageRegistry) registerLanguage(config *LanguageConfig, tsLang *sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[config.Name] = config
	r.tsLanguages[config.Name] = tsLang
	for _, ext := range config.Extensions {
		r.extToLang[ext] = config.Name
	}
}

func (r *LanguageRegistry) registerGo() {
	config := &LanguageConfig{
		Name:          "go",
		Extensions:    []string{".go"},
		FunctionTypes: []string{"function_declaration"},
		MethodTypes:   []string{"method_declaration"},
		NameField:     "name",
	}
	r.registerLanguage(config, golang.GetLanguage())
}

func (r *LanguageRegistry) registerTypeScript() {
	tsConfig := &LanguageConfig{
		Name:           "typescript",
		Extensions:     []string{".ts"},
		FunctionTypes:  []string{"function_declaration"},
		MethodTypes:    []string{"method_definition"},
		ClassTypes:     []string{"class_declaration"},
		InterfaceTypes: []string{"interface_declaration"},
		NameField:      "name",
	}
	r.registerLanguage(tsConfig, typescript.GetLanguage())

	tsxConfig := &LanguageConfig{
		Name: "tsx", Extensions: []string{".tsx"},
		FunctionTypes: tsConfig.FunctionTypes, MethodTypes: tsConfig.MethodTypes,
		ClassTypes: tsConfig.ClassTypes, InterfaceTypes: tsConfig.InterfaceTypes,
		NameField: tsConfig.NameField,
	}
	r.registerLanguage(tsxConfig, tsx.GetLanguage())
}

func (r *LanguageRegistry) registerJavaScript() {
	jsConfig := &LanguageConfig{
		Name:          "javascript",
		Extensions:    []string{".js", ".mjs"},
		FunctionTypes: []string{"function_declaration", "function"},
		MethodTypes:   []string{"method_definition"},
		ClassTypes:    []string{"class_declaration"},
		NameField:     "name",
	}
	r.registerLanguage(jsConfig, javascript.GetLanguage())

	jsxConfig := &LanguageConfig{
		Name: "jsx", Extensions: []string{".jsx"},
		FunctionTypes: jsConfig.FunctionTypes, MethodTypes: jsConfig.MethodTypes,
		ClassTypes: jsConfig.ClassTypes, NameField: jsConfig.NameField,
	}
	r.registerLanguage(jsxConfig, javascript.GetLanguage())
}

func (r *LanguageRegistry) registerPython() {
	config := &LanguageConfig{
		Name:          "python",
		Extensions:    []string{".py"},
		FunctionTypes: []string{"function_definition"},
		ClassTypes:    []string{"class_definition"},
		NameField:     "name",
	}
	r.registerLanguage(config, python.GetLanguage())
}

// GetByExtension returns the config for a file extension (case-insensitive,
// leading dot optional).
func (r *LanguageRegistry) GetByExtension(ext string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	config, ok := r.configs[name]
	return config, ok
}

// GetByName returns the config for a language tag.
func (r *LanguageRegistry) GetByName(name string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	config, ok := r.configs[name]
	return config, ok
}

// GetTreeSitterLanguage returns the tree-sitter grammar for a language tag.
func (r *LanguageRegistry) GetTreeSitterLanguage(name string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lang, ok := r.tsLanguages[name]
	return lang, ok
}

var defaultRegistry = NewLanguageRegistry()

// DefaultRegistry returns the package-level shared registry.
func DefaultRegistry() *LanguageRegistry { return defaultRegistry }
