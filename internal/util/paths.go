package util

import "path/filepath"

// CanonicalizePath resolves path against cwd and returns it absolute and cleaned.
// An absolute path ignores cwd. Relative results (a relative cwd) are made absolute
// against the process working directory. Nothing touches the filesystem; symlinks
// are left alone.
//
// Examples:
//   - CanonicalizePath("/foo/bar", "/bar/baz") -> "/bar/baz"
//   - CanonicalizePath("/foo/bar", "./baz")    -> "/foo/bar/baz"
//   - CanonicalizePath("/foo/bar", "../baz")   -> "/foo/baz"
func CanonicalizePath(cwd, path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}

	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	// only fails when os.Getwd does, in which case cleaning is the best we can do
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
