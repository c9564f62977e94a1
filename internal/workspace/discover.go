// Package workspace discovers Ruby source files and drives bulk
// indexing with snapshot reuse.
package workspace

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	"rbls/internal/config"
	rblserrors "rbls/internal/errors"
)

var rubyExtensions = map[string]bool{
	".rb":      true,
	".rake":    true,
	".gemspec": true,
}

var rubyBasenames = map[string]bool{
	"Rakefile": true,
	"Gemfile":  true,
}

// IsRubyFile reports whether a path names a Ruby source file.
func IsRubyFile(path string) bool {
	base := filepath.Base(path)
	if rubyBasenames[base] {
		return true
	}
	return rubyExtensions[filepath.Ext(base)]
}

// Discover walks the workspace and returns workspace-relative,
// slash-separated paths of Ruby files, sorted. Directories named in the
// exclude list are skipped entirely; .gitignore rules at the root apply
// when enabled.
func Discover(root string, cfg config.IndexConfig) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, rblserrors.New(rblserrors.WorkspaceNotFound, "workspace root "+root, err)
	}

	excluded := make(map[string]bool, len(cfg.ExcludeDirs))
	for _, d := range cfg.ExcludeDirs {
		excluded[d] = true
	}

	var ignorer *gitignore.GitIgnore
	if cfg.FollowGitignore {
		// A missing or unreadable .gitignore just disables the filter.
		if ig, err := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
			ignorer = ig
		}
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if excluded[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if ignorer != nil && ignorer.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !IsRubyFile(rel) {
			return nil
		}
		if ignorer != nil && ignorer.MatchesPath(rel) {
			return nil
		}
		if cfg.MaxFileSizeBytes > 0 {
			if fi, err := d.Info(); err == nil && fi.Size() > int64(cfg.MaxFileSizeBytes) {
				return nil
			}
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
