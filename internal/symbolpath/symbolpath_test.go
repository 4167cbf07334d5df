package symbolpath

import (
	"testing"

	"github.com/mnemolite/mnemolite/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateNamePath_Function(t *testing.T) {
	s := New(nil)
	got := s.GenerateNamePath("login", "/repo/api/routes/auth.py", "/repo", "python", nil)
	assert.Equal(t, "routes.auth.login", got)
}

func TestGenerateNamePath_NestedMethod(t *testing.T) {
	s := New(nil)
	got := s.GenerateNamePath("validate", "/repo/api/models/user.py", "/repo", "python", []string{"User"})
	assert.Equal(t, "models.user.User.validate", got)
}

func TestGenerateNamePath_AlwaysEndsWithName(t *testing.T) {
	s := New(nil)
	got := s.GenerateNamePath("add", "/repo/standalone.py", "/repo", "python", nil)
	assert.True(t, got == "add" || len(got) > len("add") && got[len(got)-4:] == ".add")
}

func TestExtractParentContext_OutermostFirst(t *testing.T) {
	s := New(nil)
	outer := ChunkRange{Name: "Outer", ChunkType: domain.ChunkClass, StartLine: 1, EndLine: 10}
	inner := ChunkRange{Name: "Inner", ChunkType: domain.ChunkClass, StartLine: 2, EndLine: 8}
	method := ChunkRange{Name: "method", ChunkType: domain.ChunkMethod, StartLine: 3, EndLine: 5}

	got := s.ExtractParentContext(method, []ChunkRange{outer, inner, method})
	assert.Equal(t, []string{"Outer", "Inner"}, got)
}

func TestExtractParentContext_NoParents(t *testing.T) {
	s := New(nil)
	fn := ChunkRange{Name: "add", ChunkType: domain.ChunkFunction, StartLine: 1, EndLine: 2}
	got := s.ExtractParentContext(fn, []ChunkRange{fn})
	assert.Empty(t, got)
}
