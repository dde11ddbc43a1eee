package main

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	sourceExtensions = map[string]bool{".cc": true, ".cpp": true, ".cxx": true, ".c": true}
	headerExtensions = map[string]bool{".h": true, ".hpp": true, ".hh": true}
)

// discoverFiles walks root for C/C++ translation units. When mainFileOnly
// is true, header files are skipped entirely: a header instrumented on its
// own would be rewritten once per including translation unit, so this
// codebase's simplified stand-in for clang's main-file-spelling check is to
// only ever instrument primary source files.
func discoverFiles(root string, allowRegex string, mainFileOnly bool) ([]string, error) {
	var re *regexp.Regexp
	if allowRegex != "" {
		compiled, err := regexp.Compile(allowRegex)
		if err != nil {
			return nil, err
		}
		re = compiled
	}

	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !sourceExtensions[ext] && !(headerExtensions[ext] && !mainFileOnly) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		if re != nil && !re.MatchString(rel) {
			return nil
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

// filterUnderDirs keeps only files whose relative path starts with one of
// dirs; an empty dirs list is treated as "no restriction."
func filterUnderDirs(files []string, dirs []string) []string {
	if len(dirs) == 0 {
		return files
	}
	var out []string
	for _, f := range files {
		for _, d := range dirs {
			if f == d || strings.HasPrefix(f, d+string(filepath.Separator)) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}
