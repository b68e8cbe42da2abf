package archive

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/a3tai/pdf-clerk/internal/logging"
	"github.com/a3tai/pdf-clerk/internal/pdf"
)

const schema = `
CREATE TABLE IF NOT EXISTS invoice_files (
	invoice_number TEXT NOT NULL,
	file_path TEXT NOT NULL,
	PRIMARY KEY (invoice_number, file_path)
);
CREATE INDEX IF NOT EXISTS idx_invoice_files_path ON invoice_files(file_path);

CREATE TABLE IF NOT EXISTS index_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

const metaBuiltAt = "built_at"

// Index maps invoice numbers to the archive files that contain them. It
// is persisted in a sqlite database so later runs skip the OCR pass.
type Index struct {
	db      *sql.DB
	path    string
	layout  Layout
	numbers *NumberReader
	search  *pdf.Search
	logger  *zap.Logger
	mu      sync.Mutex
}

// OpenIndex opens or creates the index database at path.
func OpenIndex(path string, layout Layout, numbers *NumberReader, search *pdf.Search, logger *zap.Logger) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize index schema: %w", err)
	}

	return &Index{
		db:      db,
		path:    path,
		layout:  layout,
		numbers: numbers,
		search:  search,
		logger:  logging.OrNop(logger),
	}, nil
}

// Close closes the database.
func (x *Index) Close() error {
	return x.db.Close()
}

// BuildResult describes an index build.
type BuildResult struct {
	Files   int  `json:"files"`
	Numbers int  `json:"numbers"`
	Reused  bool `json:"reused"`
}

// Build scans every PDF under the archive, pending folder included, and
// replaces the stored index. A non-empty stored index is kept unless force
// is set.
func (x *Index) Build(ctx context.Context, force bool) (*BuildResult, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if !force {
		n, err := x.countNumbers(ctx)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			x.logger.Info("using stored invoice index", zap.Int("numbers", n), zap.String("index", x.path))
			return &BuildResult{Numbers: n, Reused: true}, nil
		}
	}

	files, err := x.search.FindPDFs(x.layout.Base, pdf.SearchOptions{Recursive: true})
	if err != nil {
		return nil, fmt.Errorf("failed to scan archive: %w", err)
	}
	if len(files) == 0 {
		x.logger.Warn("no PDF files found in archive", zap.String("path", x.layout.Base))
	}
	x.logger.Info("indexing invoice numbers", zap.Int("files", len(files)))

	type pair struct{ number, path string }
	var pairs []pair
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		numbers, err := x.numbers.Numbers(ctx, f.Path)
		if err != nil {
			x.logger.Warn("failed to read invoice numbers", zap.String("file", f.Path), zap.Error(err))
			continue
		}
		for _, n := range numbers {
			pairs = append(pairs, pair{n, f.Path})
		}
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin index update: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_files`); err != nil {
		return nil, fmt.Errorf("failed to clear index: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO invoice_files (invoice_number, file_path) VALUES (?, ?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	for _, p := range pairs {
		if _, err := stmt.ExecContext(ctx, p.number, p.path); err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", p.number, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO index_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		metaBuiltAt, time.Now().Format(time.RFC3339)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit index: %w", err)
	}

	n, err := x.countNumbers(ctx)
	if err != nil {
		return nil, err
	}
	x.logger.Info("invoice index built", zap.Int("files", len(files)), zap.Int("numbers", n))
	return &BuildResult{Files: len(files), Numbers: n}, nil
}

func (x *Index) countNumbers(ctx context.Context) (int, error) {
	var n int
	err := x.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT invoice_number) FROM invoice_files`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count index: %w", err)
	}
	return n, nil
}

// CheckResult answers whether an invoice number was reimbursed.
type CheckResult struct {
	Number         string   `json:"invoice_number"`
	Exists         bool     `json:"exists"`
	Files          []string `json:"files"`
	IncludePending bool     `json:"include_pending"`
}

// Check looks number up. Files in the pending folder are only counted
// when includePending is set, so by default Exists means "reimbursed".
func (x *Index) Check(ctx context.Context, number string, includePending bool) (*CheckResult, error) {
	number = strings.TrimSpace(number)
	rows, err := x.db.QueryContext(ctx,
		`SELECT file_path FROM invoice_files WHERE invoice_number = ? ORDER BY rowid`, number)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}
	defer rows.Close()

	res := &CheckResult{Number: number, Files: []string{}, IncludePending: includePending}
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		if !includePending && x.layout.InPending(path) {
			continue
		}
		res.Files = append(res.Files, path)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	res.Exists = len(res.Files) > 0
	return res, nil
}

// FileResult lists the numbers found in one PDF and where else in the
// archive each of them appears.
type FileResult struct {
	Path       string         `json:"pdf_path"`
	Exists     bool           `json:"exists"`
	Numbers    []string       `json:"invoice_numbers,omitempty"`
	Count      int            `json:"count"`
	Checks     []*CheckResult `json:"checks,omitempty"`
	Reimbursed bool           `json:"reimbursed"`
	Error      string         `json:"error,omitempty"`
}

// CheckFile reads the invoice numbers of a single PDF and looks each one up.
// The file itself never counts as a match.
func (x *Index) CheckFile(ctx context.Context, path string, includePending bool) (*FileResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	res := &FileResult{Path: abs}
	if _, err := os.Stat(abs); err != nil {
		res.Error = "文件不存在"
		return res, nil
	}
	res.Exists = true
	if !pdf.IsPDFName(abs) {
		res.Error = "不是PDF文件"
		return res, nil
	}
	numbers, err := x.numbers.Numbers(ctx, abs)
	if err != nil {
		return nil, err
	}
	res.Numbers = numbers
	res.Count = len(numbers)

	for _, n := range numbers {
		check, err := x.Check(ctx, n, includePending)
		if err != nil {
			return nil, err
		}
		others := check.Files[:0]
		for _, f := range check.Files {
			if f != abs {
				others = append(others, f)
			}
		}
		check.Files = others
		check.Exists = len(others) > 0
		if check.Exists {
			res.Reimbursed = true
		}
		res.Checks = append(res.Checks, check)
	}
	return res, nil
}

// FolderResult lists the numbers found in a folder tree.
type FolderResult struct {
	Folder   string              `json:"folder_path"`
	PDFCount int                 `json:"pdf_count"`
	Numbers  map[string][]string `json:"invoice_numbers"`
	Unique   int                 `json:"total_unique_numbers"`
}

// CheckFolder reads every PDF below dir. The pending folder is skipped
// unless includePending is set.
func (x *Index) CheckFolder(ctx context.Context, dir string, includePending bool) (*FolderResult, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	opts := pdf.SearchOptions{Recursive: true}
	if !includePending {
		opts.Exclude = []string{x.layout.Pending}
	}
	files, err := x.search.FindPDFs(abs, opts)
	if err != nil {
		return nil, err
	}

	res := &FolderResult{Folder: abs, PDFCount: len(files), Numbers: make(map[string][]string)}
	unique := make(map[string]bool)
	for _, f := range files {
		numbers, err := x.numbers.Numbers(ctx, f.Path)
		if err != nil {
			x.logger.Warn("failed to read invoice numbers", zap.String("file", f.Path), zap.Error(err))
			continue
		}
		if len(numbers) == 0 {
			continue
		}
		res.Numbers[f.Path] = numbers
		for _, n := range numbers {
			unique[n] = true
		}
	}
	res.Unique = len(unique)
	return res, nil
}

// Stats summarizes the stored index.
type Stats struct {
	Numbers   int       `json:"total_unique_numbers"`
	Files     int       `json:"total_files_with_invoices"`
	BasePath  string    `json:"base_path"`
	Pending   string    `json:"pending_folder"`
	IndexPath string    `json:"index_path"`
	BuiltAt   time.Time `json:"built_at,omitempty"`
}

// Stats reports index totals.
func (x *Index) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{BasePath: x.layout.Base, Pending: x.layout.Pending, IndexPath: x.path}
	err := x.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT invoice_number), COUNT(DISTINCT file_path) FROM invoice_files`,
	).Scan(&st.Numbers, &st.Files)
	if err != nil {
		return nil, fmt.Errorf("failed to read index stats: %w", err)
	}

	var built string
	err = x.db.QueryRowContext(ctx, `SELECT value FROM index_meta WHERE key = ?`, metaBuiltAt).Scan(&built)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, err
	default:
		st.BuiltAt, _ = time.Parse(time.RFC3339, built)
	}
	return st, nil
}

// Export writes every number followed by its files, one block per number.
func (x *Index) Export(ctx context.Context, w io.Writer) error {
	rows, err := x.db.QueryContext(ctx,
		`SELECT invoice_number, file_path FROM invoice_files ORDER BY invoice_number, rowid`)
	if err != nil {
		return fmt.Errorf("failed to query index: %w", err)
	}
	defer rows.Close()

	var (
		current string
		files   []string
	)
	flush := func() error {
		if current == "" {
			return nil
		}
		if _, err := fmt.Fprintf(w, "%s: %d files\n", current, len(files)); err != nil {
			return err
		}
		for _, f := range files {
			if _, err := fmt.Fprintf(w, "  - %s\n", f); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintln(w)
		return err
	}

	for rows.Next() {
		var number, path string
		if err := rows.Scan(&number, &path); err != nil {
			return err
		}
		if number != current {
			if err := flush(); err != nil {
				return err
			}
			current, files = number, nil
		}
		files = append(files, path)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return flush()
}
