package content

import (
	"bufio"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/razvandimescu/molesk/internal/logger"
)

// IgnoreFileName lists extra names to hide, one per line, at the content root.
const IgnoreFileName = ".moleskignore"

// IgnoreList hides tree entries by base name (extension stripped,
// case-insensitive). Entries containing glob metacharacters are matched
// with filepath.Match.
type IgnoreList struct {
	names    map[string]bool
	patterns []string
}

func NewIgnoreList(names ...string) *IgnoreList {
	l := &IgnoreList{names: make(map[string]bool)}
	for _, n := range names {
		l.Add(n)
	}
	return l
}

func (l *IgnoreList) Add(name string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return
	}
	if strings.ContainsAny(name, "*?[") {
		l.patterns = append(l.patterns, name)
		return
	}
	l.names[name] = true
}

// Matches reports whether the entry called name is hidden.
func (l *IgnoreList) Matches(name string) bool {
	if l == nil {
		return false
	}
	base := strings.ToLower(stripExt(name))
	if l.names[base] {
		return true
	}
	for _, pattern := range l.patterns {
		if matched, err := filepath.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}

// Len is the number of names and patterns.
func (l *IgnoreList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.names) + len(l.patterns)
}

// ReadIgnoreFile parses root/.moleskignore. A missing file yields nil.
// Blank lines and # comments are skipped; invalid lines are reported and dropped.
func ReadIgnoreFile(fs afero.Fs, root string) []string {
	file, err := fs.Open(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil
	}
	defer file.Close()

	const maxWarnings = 3
	const maxPatternLength = 256

	var names []string
	var invalidCount int
	warn := func(format string, args ...any) {
		invalidCount++
		if invalidCount <= maxWarnings {
			logger.Warn(format, args...)
		}
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if len(line) > maxPatternLength {
			warn("Warning: %s entry too long (max %d chars, ignored): %s...", IgnoreFileName, maxPatternLength, line[:50])
			continue
		}

		if strings.ContainsAny(line, `/\`) {
			warn("Warning: %s entry contains path separator (ignored): %s", IgnoreFileName, line)
			continue
		}

		if _, err := filepath.Match(line, "test"); err != nil {
			warn("Warning: Invalid %s pattern '%s': %v", IgnoreFileName, line, err)
			continue
		}

		names = append(names, line)
	}

	if invalidCount > maxWarnings {
		logger.Warn("Warning: Suppressed %d additional invalid %s entries", invalidCount-maxWarnings, IgnoreFileName)
	}

	if err := scanner.Err(); err != nil {
		logger.Warn("Warning: Error reading %s: %v", IgnoreFileName, err)
		return nil
	}

	return names
}
