package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]int) {
	t.Helper()
	for name, size := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	}
}

func names(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestSearch_FindPDFs(t *testing.T) {
	search := NewSearch(1024 * 1024)
	root := t.TempDir()

	writeFiles(t, root, map[string]int{
		"b_invoice.pdf":             100,
		"a_receipt.PDF":             100,
		"notes.txt":                 100,
		"empty.pdf":                 0,
		"large.pdf":                 2 * 1024 * 1024,
		"2024/c_invoice.pdf":        100,
		"tbd/d_pending.pdf":         100,
		"tbd/done/e_done.pdf":       100,
		".hidden/f_hidden.pdf":      100,
		"2024/q1/g_deep_report.pdf": 100,
	})

	tests := []struct {
		name string
		opts SearchOptions
		want []string
	}{
		{
			name: "top level only",
			opts: SearchOptions{},
			want: []string{"a_receipt.PDF", "b_invoice.pdf"},
		},
		{
			name: "recursive",
			opts: SearchOptions{Recursive: true},
			want: []string{"c_invoice.pdf", "g_deep_report.pdf", "a_receipt.PDF", "b_invoice.pdf", "d_pending.pdf", "e_done.pdf"},
		},
		{
			name: "recursive excluding pending",
			opts: SearchOptions{Recursive: true, Exclude: []string{filepath.Join(root, "tbd")}},
			want: []string{"c_invoice.pdf", "g_deep_report.pdf", "a_receipt.PDF", "b_invoice.pdf"},
		},
		{
			name: "limit",
			opts: SearchOptions{Recursive: true, Limit: 2},
			want: []string{"c_invoice.pdf", "g_deep_report.pdf"},
		},
		{
			name: "fuzzy query",
			opts: SearchOptions{Recursive: true, Query: "invoice"},
			want: []string{"c_invoice.pdf", "b_invoice.pdf"}, // equal rank, path order
		},
		{
			name: "fuzzy query with gaps",
			opts: SearchOptions{Recursive: true, Query: "dprt"},
			want: []string{"g_deep_report.pdf"},
		},
		{
			name: "case folded query",
			opts: SearchOptions{Query: "RECEIPT"},
			want: []string{"a_receipt.PDF"},
		},
		{
			name: "top level keeping invalid",
			opts: SearchOptions{KeepInvalid: true},
			want: []string{"a_receipt.PDF", "b_invoice.pdf", "empty.pdf", "large.pdf"},
		},
		{
			name: "no match",
			opts: SearchOptions{Recursive: true, Query: "zzz"},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := search.FindPDFs(root, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(files))
		})
	}
}

func TestSearch_FindPDFsKeepInvalid(t *testing.T) {
	search := NewSearch(1024)
	root := t.TempDir()
	writeFiles(t, root, map[string]int{
		"a_ok.pdf":    100,
		"b_empty.pdf": 0,
		"c_huge.pdf":  2048,
	})

	files, err := search.FindPDFs(root, SearchOptions{KeepInvalid: true})
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Empty(t, files[0].Invalid)
	assert.Contains(t, files[1].Invalid, ErrEmptyFile.Error())
	assert.Contains(t, files[2].Invalid, ErrTooLarge.Error())

	files, err = search.FindPDFs(root, SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a_ok.pdf"}, names(files))
}

func TestSearch_Validate(t *testing.T) {
	search := NewSearch(1024)
	root := t.TempDir()
	writeFiles(t, root, map[string]int{"empty.pdf": 0, "junk.pdf": 10})

	assert.ErrorIs(t, search.Validate(filepath.Join(root, "missing.pdf")), ErrNotExist)
	assert.ErrorIs(t, search.Validate(filepath.Join(root, "empty.pdf")), ErrEmptyFile)
	assert.Error(t, search.Validate(filepath.Join(root, "junk.pdf")))
}

func TestSearch_FindPDFsErrors(t *testing.T) {
	search := NewSearch(1024)
	root := t.TempDir()
	file := filepath.Join(root, "x.pdf")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	for _, dir := range []string{"", filepath.Join(root, "missing"), file} {
		_, err := search.FindPDFs(dir, SearchOptions{})
		assert.Error(t, err, "directory %q", dir)
	}
}

func TestMatchQuery(t *testing.T) {
	tests := []struct {
		file  string
		query string
		ok    bool
	}{
		{"machine_learning.pdf", "learning", true},
		{"machine_learning.pdf", "machine learning", true},
		{"machine_learning.pdf", "mcl", true},
		{"machine_learning.pdf", "deep", false},
		{"报销_发票.pdf", "发票", true},
		{"report.pdf", "pdf", false},
	}

	for _, tt := range tests {
		_, ok := matchQuery(tt.file, tt.query)
		if ok != tt.ok {
			t.Errorf("matchQuery(%q, %q) = %v, want %v", tt.file, tt.query, ok, tt.ok)
		}
	}
}
