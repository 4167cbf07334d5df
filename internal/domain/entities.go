// Package domain holds MnemoLite's core entities and repository ports.
// Nothing in this package imports an adapter; adapters import domain.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChunkType classifies the semantic unit a CodeChunk represents.
type ChunkType string

const (
	ChunkFunction      ChunkType = "FUNCTION"
	ChunkMethod        ChunkType = "METHOD"
	ChunkClass         ChunkType = "CLASS"
	ChunkInterface     ChunkType = "INTERFACE"
	ChunkModule        ChunkType = "MODULE"
	ChunkFallbackFixed ChunkType = "FALLBACK_FIXED"
)

// EmbeddingDimension is the dimensionality every stored embedding must have.
// Enforced both at config load (platform/config) and at write time here.
const EmbeddingDimension = 768

// MaxFileSizeBytes is spec §8's boundary property 10: files at or above this
// size are rejected before chunking with validation_error rather than
// reaching the parser.
const MaxFileSizeBytes = 10 * 1024 * 1024

// CodeChunk is a semantic slice of source retaining its line range and type tag.
//
// Natural key is (FilePath, StartLine, EndLine, Repository); ID is an opaque
// surrogate used for foreign keys into nodes/edges.
type CodeChunk struct {
	ID             uuid.UUID
	FilePath       string
	Language       string
	ChunkType      ChunkType
	Name           string
	NamePath       string
	SourceCode     string
	StartLine      int
	EndLine        int
	EmbeddingText  []float32 // optional; nil when not generated
	EmbeddingCode  []float32 // optional; nil when not generated
	Metadata       ChunkMetadata
	Repository     string
	CommitHash     string
	IndexedAt      time.Time
	LastModified   time.Time
}

// Validate checks the chunk-level invariants from the data model: embeddings,
// when present, are exactly EmbeddingDimension wide, and source code is
// non-empty.
func (c *CodeChunk) Validate() error {
	if c.SourceCode == "" {
		return NewDomainError(ErrorValidation, c.Repository, c.FilePath, "source_code must not be empty")
	}
	if c.EmbeddingText != nil && len(c.EmbeddingText) != EmbeddingDimension {
		return NewDomainError(ErrorValidation, c.Repository, c.FilePath,
			"embedding_text has wrong dimension")
	}
	if c.EmbeddingCode != nil && len(c.EmbeddingCode) != EmbeddingDimension {
		return NewDomainError(ErrorValidation, c.Repository, c.FilePath,
			"embedding_code has wrong dimension")
	}
	return nil
}

// ChunkMetadata is the free-form per-unit annotation C4 produces. All fields
// are optional and language-dependent; a zero-value ChunkMetadata is the
// correct graceful-degradation result when extraction fails internally.
type ChunkMetadata struct {
	Imports      []string               `json:"imports,omitempty"`
	Calls        []string               `json:"calls,omitempty"`
	CallContexts []CallContext          `json:"call_contexts,omitempty"`
	Signature    *Signature             `json:"signature,omitempty"`
	Complexity   *Complexity            `json:"complexity,omitempty"`
	Decorators   []string               `json:"decorators,omitempty"`
	Docstring    string                 `json:"docstring,omitempty"`
	TypeHints    map[string]string      `json:"type_hints,omitempty"`
	IsAsync      bool                   `json:"is_async,omitempty"`
	LSPType      string                 `json:"lsp_type,omitempty"`
	Extra        map[string]any         `json:"extra,omitempty"`
}

// CallContext enables downstream edge-weighting at graph build time.
type CallContext struct {
	CallName      string `json:"call_name"`
	IsConditional bool   `json:"is_conditional"`
	IsLoop        bool   `json:"is_loop"`
	ScopeType     string `json:"scope_type"`
	ScopeName     string `json:"scope_name"`
}

// Signature captures a callable's declared shape.
type Signature struct {
	FunctionName string      `json:"function_name"`
	Parameters   []Parameter `json:"parameters,omitempty"`
	ReturnType   string      `json:"return_type,omitempty"`
	IsAsync      bool        `json:"is_async"`
}

// Parameter is one entry of Signature.Parameters.
type Parameter struct {
	Name         string `json:"name"`
	Type         string `json:"type,omitempty"`
	IsOptional   bool   `json:"is_optional"`
	DefaultValue string `json:"default_value,omitempty"`
}

// Complexity holds the three complexity numbers C4 computes per chunk.
// Cyclomatic counts 1 plus each decision point (if/elif/else-clause/for/
// while/case/and/or/ternary/except).
type Complexity struct {
	Cyclomatic    int `json:"cyclomatic"`
	Cognitive     int `json:"cognitive"`
	LinesOfCode   int `json:"lines_of_code"`
}

// NodeType classifies a GraphNode.
type NodeType string

const (
	NodeFunction  NodeType = "function"
	NodeMethod    NodeType = "method"
	NodeClass     NodeType = "class"
	NodeInterface NodeType = "interface"
	NodeModule    NodeType = "module"
)

// GraphNode is a named callable/type; every non-orphan node references
// exactly one producing chunk via Properties["chunk_id"].
type GraphNode struct {
	ID         uuid.UUID
	NodeType   NodeType
	Label      string // display name, possibly ellipsis-truncated
	Properties map[string]any
	CreatedAt  time.Time
}

// RelationType classifies a GraphEdge.
type RelationType string

const (
	RelationCalls    RelationType = "calls"
	RelationImports  RelationType = "imports"
	RelationExtends  RelationType = "extends"
	RelationUses     RelationType = "uses"
)

// GraphEdge is a directed typed relation between two nodes.
type GraphEdge struct {
	ID             uuid.UUID
	SourceNodeID   uuid.UUID
	TargetNodeID   uuid.UUID
	RelationType   RelationType
	Properties     map[string]any
	CreatedAt      time.Time
}

// JobStatus is the lifecycle state of an IndexingJob.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobPartial    JobStatus = "partial"
	JobFailed     JobStatus = "failed"
)

// MaxJobErrors bounds the errors slice kept inline on the status hash.
const MaxJobErrors = 200

// IndexingJob is a unit of batch work tracked in the durable stream's
// status hash.
type IndexingJob struct {
	JobID          uuid.UUID
	Repository     string
	CommitHash     string // resolved from the scanned tree's HEAD, best-effort
	TotalFiles     int
	TotalBatches   int
	ProcessedFiles int
	FailedFiles    int
	CurrentBatch   int
	Status         JobStatus
	StartedAt      time.Time
	CompletedAt    *time.Time
	Errors         []string
}

// AppendError appends to the bounded error list, dropping the oldest entries
// past MaxJobErrors.
func (j *IndexingJob) AppendError(msg string) {
	j.Errors = append(j.Errors, msg)
	if len(j.Errors) > MaxJobErrors {
		j.Errors = j.Errors[len(j.Errors)-MaxJobErrors:]
	}
}

// ErrorType is the closed enumeration domain errors must use, validated at
// ingress into the error repository.
type ErrorType string

const (
	ErrorParsing     ErrorType = "parsing_error"
	ErrorEncoding    ErrorType = "encoding_error"
	ErrorChunking    ErrorType = "chunking_error"
	ErrorEmbedding   ErrorType = "embedding_error"
	ErrorPersistence ErrorType = "persistence_error"
	ErrorValidation  ErrorType = "validation_error"
)

func (t ErrorType) valid() bool {
	switch t {
	case ErrorParsing, ErrorEncoding, ErrorChunking, ErrorEmbedding, ErrorPersistence, ErrorValidation:
		return true
	}
	return false
}

// IndexingError is a single file-level failure recorded for observability.
type IndexingError struct {
	ID         uuid.UUID
	Repository string
	FilePath   string
	ErrorType  ErrorType
	Message    string
	Trace      string
	Language   string
	OccurredAt time.Time
}

// ComputedMetrics holds derived code-quality and centrality numbers for one
// node, versioned so old runs can be diffed against new ones.
type ComputedMetrics struct {
	ID                  uuid.UUID
	NodeID              uuid.UUID
	Version             int
	Cyclomatic          int
	Cognitive           int
	LinesOfCode         int
	AfferentCoupling    int
	EfferentCoupling    int
	Instability         float64
	PageRank            float64
	Betweenness         float64
	ComputedAt          time.Time
}

// CacheEntry is the in-cache form of a chunk list, keyed by file path.
type CacheEntry struct {
	FilePath    string
	ContentHash string // 32 hex chars, MD5 of the source text
	Chunks      []CodeChunk
	ExpiresAt   *time.Time // optional TTL, see SPEC_FULL §12
}
