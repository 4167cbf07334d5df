package stream

import (
	gogit "github.com/go-git/go-git/v5"
	giturls "github.com/whilp/git-urls"
)

// ResolveCommitHash opens root as a git worktree and returns its current
// HEAD commit hash, stamped onto every chunk produced from this scan
// (domain.CodeChunk.CommitHash). Best-effort: root need not be a git
// repository (e.g. a plain extracted tarball), in which case it returns "".
func ResolveCommitHash(root string) string {
	repo, err := gogit.PlainOpenWithOptions(root, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	return head.Hash().String()
}

// NormalizeRepositoryIdentifier collapses a git remote URL (SSH or HTTPS)
// down to its "owner/repo" path so the same repository is addressed
// identically regardless of which clone protocol the caller used. Inputs
// that aren't a recognizable git URL (a plain name already) pass through
// unchanged.
func NormalizeRepositoryIdentifier(raw string) string {
	u, err := giturls.Parse(raw)
	if err != nil {
		return raw
	}
	path := u.Path
	for len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	if len(path) > 4 && path[len(path)-4:] == ".git" {
		path = path[:len(path)-4]
	}
	if path == "" {
		return raw
	}
	return path
}
