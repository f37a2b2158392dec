package content

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// FindIndexFile returns the name of the first markdown/text file in dir,
// ordered by lower-cased name. Dotfiles and directories are skipped.
func FindIndexFile(fs afero.Fs, dir string, exts Extensions) (string, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return "", fmt.Errorf("%w: index of %s: %v", ErrNotFound, dir, err)
	}

	var names []string
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || strings.HasPrefix(name, ".") || !exts.IsMarkdown(name) {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, MsgNoValidFiles)
	}

	sort.SliceStable(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names[0], nil
}
