package pdf

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Search handles PDF discovery on disk
type Search struct {
	validator *Validator
}

// NewSearch creates a new PDF search handler with the specified constraints
func NewSearch(maxFileSize int64) *Search {
	return &Search{
		validator: NewValidator(maxFileSize),
	}
}

// FindPDFs lists the PDFs in directory ordered by path, or by match
// closeness when a query is given. Empty and oversized files are skipped
// unless opts.KeepInvalid is set.
func (s *Search) FindPDFs(directory string, opts SearchOptions) ([]FileInfo, error) {
	if directory == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}

	absDirectory, err := filepath.Abs(directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory path: %w", err)
	}

	info, err := os.Stat(absDirectory)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", directory)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", directory)
	}

	excluded := make(map[string]bool, len(opts.Exclude))
	for _, dir := range opts.Exclude {
		if abs, err := filepath.Abs(dir); err == nil {
			excluded[filepath.Clean(abs)] = true
		}
	}

	query := strings.TrimSpace(opts.Query)
	var files []FileInfo

	err = filepath.WalkDir(absDirectory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, the walk goes on
			return nil //nolint:nilerr
		}

		if d.IsDir() {
			if path == absDirectory {
				return nil
			}
			if !opts.Recursive || excluded[path] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !IsPDFName(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr
		}
		invalid := ""
		if err := s.validator.ValidateFileInfo(path, info); err != nil {
			if !opts.KeepInvalid {
				return nil //nolint:nilerr
			}
			invalid = err.Error()
		}

		score := 0
		if query != "" {
			var ok bool
			if score, ok = matchQuery(d.Name(), query); !ok {
				return nil
			}
		}

		files = append(files, FileInfo{
			Path:         path,
			Name:         d.Name(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime(),
			Score:        score,
			Invalid:      invalid,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Score != files[j].Score {
			return files[i].Score < files[j].Score
		}
		return files[i].Path < files[j].Path
	})

	if opts.Limit > 0 && len(files) > opts.Limit {
		files = files[:opts.Limit]
	}

	return files, nil
}

// Validate checks that path is an openable PDF within the size limit.
func (s *Search) Validate(path string) error {
	return s.validator.ValidateFile(path)
}

// matchQuery reports whether every word of query fuzzily matches the file
// name and returns the summed rank distance.
func matchQuery(filename, query string) (int, bool) {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))

	total := 0
	for _, word := range strings.Fields(query) {
		rank := fuzzy.RankMatchNormalizedFold(word, name)
		if rank < 0 {
			return 0, false
		}
		total += rank
	}
	return total, true
}
