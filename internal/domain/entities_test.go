package domain

import "testing"

func TestCodeChunkValidate(t *testing.T) {
	valid := CodeChunk{SourceCode: "x := 1"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	empty := CodeChunk{}
	if err := empty.Validate(); err == nil {
		t.Fatal("expected error for empty source code")
	}

	wrongDim := CodeChunk{SourceCode: "x := 1", EmbeddingText: make([]float32, EmbeddingDimension-1)}
	if err := wrongDim.Validate(); err == nil {
		t.Fatal("expected error for wrong embedding dimension")
	}
	de, ok := AsDomainError(wrongDim.Validate())
	if !ok || de.Type != ErrorValidation {
		t.Fatalf("expected ErrorValidation domain error, got %v", wrongDim.Validate())
	}
}
