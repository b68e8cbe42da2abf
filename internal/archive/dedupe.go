package archive

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/a3tai/pdf-clerk/internal/logging"
	"github.com/a3tai/pdf-clerk/internal/pdf"
)

// Reasons recorded on moved duplicates.
const (
	ReasonSameNumber  = "发票号码重复"
	ReasonSameContent = "文件完全相同"
)

// FileEntry describes one pending PDF.
type FileEntry struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Hash     string    `json:"hash"`
	Modified time.Time `json:"modified"`
}

// DuplicateGroup is a set of files sharing an invoice number. The file to
// keep comes first.
type DuplicateGroup struct {
	Number string      `json:"invoice_number"`
	Files  []FileEntry `json:"files"`
}

// ExactGroup is a set of byte-identical files. The file to keep comes
// first.
type ExactGroup struct {
	Hash  string      `json:"hash"`
	Files []FileEntry `json:"files"`
}

// Findings are the duplicates found in the pending folder.
type Findings struct {
	Total       int              `json:"total_files"`
	WithNumbers int              `json:"files_with_invoices"`
	Groups      []DuplicateGroup `json:"duplicate_groups"`
	Exact       []ExactGroup     `json:"exact_duplicates"`
	NoNumber    []string         `json:"no_invoice_files"`
}

// Empty reports whether nothing needs deduplicating.
func (f *Findings) Empty() bool {
	return len(f.Groups) == 0 && len(f.Exact) == 0
}

// DedupeResult reports a Deduplicator run.
type DedupeResult struct {
	Findings        *Findings   `json:"findings"`
	GroupsProcessed int         `json:"duplicate_groups_processed"`
	ExactProcessed  int         `json:"exact_duplicates_processed"`
	Moved           []MovedFile `json:"moved_files"`
	Kept            []string    `json:"kept_files"`
	Errors          []string    `json:"errors"`
}

// Deduplicator moves redundant copies of pending invoices into the
// duplicates folder.
type Deduplicator struct {
	numbers *NumberReader
	search  *pdf.Search
	layout  Layout
	logger  *zap.Logger
}

// NewDeduplicator wires a deduplicator.
func NewDeduplicator(numbers *NumberReader, search *pdf.Search, layout Layout, logger *zap.Logger) *Deduplicator {
	return &Deduplicator{numbers: numbers, search: search, layout: layout, logger: logging.OrNop(logger)}
}

// Find groups the PDFs directly inside the pending folder by invoice
// number and by content hash.
func (d *Deduplicator) Find(ctx context.Context) (*Findings, error) {
	files, err := pendingPDFs(d.search, d.layout)
	if err != nil {
		return nil, err
	}
	res := &Findings{Total: len(files), Groups: []DuplicateGroup{}, Exact: []ExactGroup{}, NoNumber: []string{}}

	byNumber := make(map[string][]FileEntry)
	byHash := make(map[string][]FileEntry)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, err := describe(f.Path)
		if err != nil {
			d.logger.Error("failed to read pending file", zap.String("file", f.Name), zap.Error(err))
			continue
		}
		byHash[entry.Hash] = append(byHash[entry.Hash], entry)

		numbers, err := d.numbers.Numbers(ctx, f.Path)
		if err != nil {
			d.logger.Error("failed to read invoice numbers", zap.String("file", f.Name), zap.Error(err))
			continue
		}
		if len(numbers) == 0 {
			d.logger.Warn("no invoice number found", zap.String("file", f.Name))
			res.NoNumber = append(res.NoNumber, f.Path)
			continue
		}
		res.WithNumbers++
		for _, n := range numbers {
			byNumber[n] = append(byNumber[n], entry)
		}
	}

	for _, n := range sortedKeys(byNumber) {
		if entries := byNumber[n]; len(entries) > 1 {
			sortKeepFirst(entries)
			res.Groups = append(res.Groups, DuplicateGroup{Number: n, Files: entries})
		}
	}
	for _, h := range sortedKeys(byHash) {
		if entries := byHash[h]; len(entries) > 1 {
			sortKeepFirst(entries)
			res.Exact = append(res.Exact, ExactGroup{Hash: h, Files: entries})
		}
	}
	return res, nil
}

// Run finds duplicates and, unless dryRun is set, moves every copy but the
// kept one. A file kept for one group is never moved for another.
func (d *Deduplicator) Run(ctx context.Context, dryRun bool) (*DedupeResult, error) {
	findings, err := d.Find(ctx)
	if err != nil {
		return nil, err
	}
	res := &DedupeResult{Findings: findings, Moved: []MovedFile{}, Kept: []string{}, Errors: []string{}}
	if findings.Empty() {
		d.logger.Info("no duplicates in pending folder")
		return res, nil
	}

	kept := make(map[string]bool)
	for _, g := range findings.Groups {
		kept[g.Files[0].Path] = true
	}

	moved := make(map[string]bool)
	relocate := func(e FileEntry, name, reason string, numbers []string) {
		if kept[e.Path] || moved[e.Path] {
			return
		}
		m := MovedFile{
			Original: e.Path,
			Target:   filepath.Join(d.layout.Duplicates, name),
			Numbers:  numbers,
			Reason:   reason,
		}
		if !dryRun {
			target, err := move(e.Path, d.layout.Duplicates, name)
			if err != nil {
				d.logger.Error("failed to move duplicate", zap.String("file", e.Name), zap.Error(err))
				res.Errors = append(res.Errors, fmt.Sprintf("移动文件 %s 时出错: %v", e.Name, err))
				return
			}
			m.Target = target
		}
		moved[e.Path] = true
		res.Moved = append(res.Moved, m)
		d.logger.Info("duplicate invoice", zap.String("file", e.Name), zap.String("reason", reason), zap.Bool("dry_run", dryRun))
	}

	for _, g := range findings.Groups {
		for _, e := range g.Files[1:] {
			relocate(e, g.Number+"_"+e.Name, ReasonSameNumber, []string{g.Number})
		}
		res.GroupsProcessed++
	}
	for _, g := range findings.Exact {
		var remaining []FileEntry
		for _, e := range g.Files {
			if !moved[e.Path] {
				remaining = append(remaining, e)
			}
		}
		if len(remaining) < 2 {
			continue
		}
		if !anyKept(remaining, kept) {
			kept[remaining[0].Path] = true
		}
		for _, e := range remaining {
			name := fmt.Sprintf("%s_dup_%s%s", stem(e.Name), g.Hash[:8], filepath.Ext(e.Name))
			relocate(e, name, ReasonSameContent, nil)
		}
		res.ExactProcessed++
	}

	for path := range kept {
		res.Kept = append(res.Kept, path)
	}
	sort.Strings(res.Kept)
	return res, nil
}

func anyKept(entries []FileEntry, kept map[string]bool) bool {
	for _, e := range entries {
		if kept[e.Path] {
			return true
		}
	}
	return false
}

// sortKeepFirst orders newest first, then larger, then by name.
func sortKeepFirst(entries []FileEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Modified.Equal(b.Modified) {
			return a.Modified.After(b.Modified)
		}
		if a.Size != b.Size {
			return a.Size > b.Size
		}
		return a.Name < b.Name
	})
}

func describe(path string) (FileEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileEntry{}, err
	}
	hash, err := fileMD5(path)
	if err != nil {
		return FileEntry{}, err
	}
	return FileEntry{
		Path:     path,
		Name:     filepath.Base(path),
		Size:     info.Size(),
		Hash:     hash,
		Modified: info.ModTime(),
	}, nil
}

func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
