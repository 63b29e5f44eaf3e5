// Package ingest provides the data ingestion pipeline for Axon.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// readConcurrency bounds the worker pool used for file reads.
const readConcurrency = 8

// FileEntry represents a file to be processed.
type FileEntry struct {
	// Path is the absolute file path.
	Path string

	// RelPath is the path relative to the repo root.
	RelPath string

	// Language is the detected programming language.
	Language string

	// Content is the file content.
	Content []byte

	// SHA256 is the hash of the file content.
	SHA256 string

	// IsDir indicates if this is a directory.
	IsDir bool
}

// Supported file extensions and their languages.
var supportedExtensions = map[string]string{
	".py":    "python",
	".ts":    "typescript",
	".tsx":   "typescript",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".php":   "php",
	".java":  "java",
	".cs":    "csharp",
	".blade": "blade",
}

// isBladeFile recognizes the compound ".blade.php" extension, which the
// filepath.Ext-based table above cannot express directly.
func isBladeFile(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".blade.php")
}

// Default patterns to ignore (in addition to .gitignore).
var defaultIgnorePatterns = []string{
	".git/",
	"node_modules/",
	".axon-pro/",
	"__pycache__/",
	".venv/",
	"venv/",
	".tox/",
	".eggs/",
	"*.egg-info/",
	".pytest_cache/",
	".mypy_cache/",
	"coverage/",
	"htmlcov/",
	".coverage",
	"*.pyc",
	"*.pyo",
	"*.pyd",
	".DS_Store",
	"Thumbs.db",
}

// candidate is a discovered file awaiting content read.
type candidate struct {
	path    string
	relPath string
}

// WalkRepo discovers supported files sequentially, then reads their content
// through a bounded worker pool. The returned slice is stably sorted by
// RelPath so that downstream node/edge ids are a deterministic function of
// repository contents regardless of read-goroutine scheduling. Binary,
// empty, or unreadable files are silently dropped — this is never an error
// (spec §7: walker never errors on a per-file basis).
func WalkRepo(repoPath string, patterns []gitignore.Pattern) ([]FileEntry, error) {
	allPatterns := make([]gitignore.Pattern, 0, len(defaultIgnorePatterns)+len(patterns))
	for _, p := range defaultIgnorePatterns {
		allPatterns = append(allPatterns, gitignore.ParsePattern(p, nil))
	}
	allPatterns = append(allPatterns, patterns...)

	matcher := gitignore.NewMatcher(allPatterns)

	var candidates []candidate

	err := filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if shouldSkipDir(d.Name(), path, repoPath, matcher) {
				return filepath.SkipDir
			}
			return nil
		}

		if !isSupportedFile(d.Name()) {
			return nil
		}

		relPath, err := filepath.Rel(repoPath, path)
		if err != nil {
			return err
		}

		pathParts := splitPath(relPath)
		if matcher.Match(pathParts, false) {
			return nil
		}

		candidates = append(candidates, candidate{path: path, relPath: relPath})
		return nil
	})
	if err != nil {
		return nil, err
	}

	entries := make([]FileEntry, 0, len(candidates))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, readConcurrency)

	for _, c := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(c candidate) {
			defer wg.Done()
			defer func() { <-sem }()

			content, readErr := os.ReadFile(c.path)
			if readErr != nil || len(content) == 0 || isBinary(content) {
				return
			}

			hash := sha256.Sum256(content)
			entry := FileEntry{
				Path:     c.path,
				RelPath:  c.relPath,
				Language: getLanguage(filepath.Base(c.path)),
				Content:  content,
				SHA256:   hex.EncodeToString(hash[:]),
				IsDir:    false,
			}

			mu.Lock()
			entries = append(entries, entry)
			mu.Unlock()
		}(c)
	}
	wg.Wait()

	sort.Slice(entries, func(i, j int) bool { return entries[i].RelPath < entries[j].RelPath })

	return entries, nil
}

// isBinary treats the presence of a NUL byte in the first 8KB as a binary
// marker, the convention used by git and most text-detection heuristics.
func isBinary(content []byte) bool {
	n := len(content)
	if n > 8192 {
		n = 8192
	}
	for i := 0; i < n; i++ {
		if content[i] == 0 {
			return true
		}
	}
	return false
}

// loadGitignore loads .gitignore patterns from the repository root.
func loadGitignore(repoPath string) ([]gitignore.Pattern, error) {
	gitignorePath := filepath.Join(repoPath, ".gitignore")

	// Check if .gitignore exists
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(gitignorePath)
	if err != nil {
		return nil, err
	}

	// Parse patterns
	lines := strings.Split(string(content), "\n")
	var patterns []gitignore.Pattern

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		pattern := gitignore.ParsePattern(line, nil)
		patterns = append(patterns, pattern)
	}

	return patterns, nil
}

// isSupportedFile checks if a file has a supported extension.
func isSupportedFile(filename string) bool {
	if isBladeFile(filename) {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	_, ok := supportedExtensions[ext]
	return ok
}

// getLanguage returns the language for a file extension.
func getLanguage(filename string) string {
	if isBladeFile(filename) {
		return "blade"
	}
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedExtensions[ext]
}

// shouldSkipDir checks if a directory should be skipped.
func shouldSkipDir(name, path, repoRoot string, matcher gitignore.Matcher) bool {
	// Always skip .git
	if name == ".git" {
		return true
	}

	// Check matcher
	relPath, err := filepath.Rel(repoRoot, path)
	if err != nil {
		return false
	}

	pathParts := splitPath(relPath)
	return matcher.Match(pathParts, true)
}

// splitPath splits a path into its components.
func splitPath(path string) []string {
	return strings.Split(path, string(filepath.Separator))
}
