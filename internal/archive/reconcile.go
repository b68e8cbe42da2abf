package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/a3tai/pdf-clerk/internal/logging"
	"github.com/a3tai/pdf-clerk/internal/pdf"
)

// ReconcileResult reports a Reconciler run.
type ReconcileResult struct {
	Total         int         `json:"total_files"`
	Reimbursed    int         `json:"reimbursed_files"`
	NotReimbursed int         `json:"non_reimbursed_files"`
	Moved         []MovedFile `json:"moved_files"`
	Errors        []string    `json:"errors"`
}

// Reconciler moves pending invoices that were already reimbursed into the
// done folder.
type Reconciler struct {
	index   *Index
	numbers *NumberReader
	search  *pdf.Search
	layout  Layout
	logger  *zap.Logger
	now     func() time.Time
}

// NewReconciler wires a reconciler.
func NewReconciler(index *Index, numbers *NumberReader, search *pdf.Search, layout Layout, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		index:   index,
		numbers: numbers,
		search:  search,
		layout:  layout,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
}

// Run checks every PDF directly inside the pending folder. With dryRun no
// file is touched.
func (r *Reconciler) Run(ctx context.Context, dryRun bool) (*ReconcileResult, error) {
	res := &ReconcileResult{Moved: []MovedFile{}, Errors: []string{}}

	files, err := pendingPDFs(r.search, r.layout)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		r.logger.Info("no PDF files in pending folder", zap.String("folder", r.layout.Pending))
		return res, nil
	}
	if _, err := r.index.Build(ctx, false); err != nil {
		return nil, err
	}

	res.Total = len(files)
	r.logger.Info("checking pending invoices", zap.Int("files", len(files)), zap.Bool("dry_run", dryRun))

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.reconcileFile(ctx, f.Path, dryRun, res); err != nil {
			msg := fmt.Sprintf("处理文件 %s 时出错: %v", f.Name, err)
			r.logger.Error("failed to reconcile invoice", zap.String("file", f.Name), zap.Error(err))
			res.Errors = append(res.Errors, msg)
		}
	}
	return res, nil
}

func (r *Reconciler) reconcileFile(ctx context.Context, path string, dryRun bool, res *ReconcileResult) error {
	name := filepath.Base(path)
	numbers, err := r.numbers.Numbers(ctx, path)
	if err != nil {
		return err
	}
	if len(numbers) == 0 {
		r.logger.Warn("no invoice number found", zap.String("file", name))
		return nil
	}

	var reimbursed []string
	for _, n := range numbers {
		check, err := r.index.Check(ctx, n, false)
		if err != nil {
			return err
		}
		if check.Exists {
			reimbursed = append(reimbursed, n)
		}
	}
	if len(reimbursed) == 0 {
		res.NotReimbursed++
		r.logger.Info("invoice not reimbursed", zap.String("file", name), zap.Strings("numbers", numbers))
		return nil
	}

	res.Reimbursed++
	r.logger.Info("invoice already reimbursed", zap.String("file", name), zap.Strings("numbers", reimbursed))

	moved := MovedFile{Original: path, Target: filepath.Join(r.layout.Done, name), Numbers: reimbursed}
	if !dryRun {
		target, err := move(path, r.layout.Done, name)
		if err != nil {
			return err
		}
		moved.Target = target
		if err := r.writeRecord(path, target, reimbursed); err != nil {
			return err
		}
		r.logger.Info("moved reimbursed invoice", zap.String("from", path), zap.String("to", target))
	}
	res.Moved = append(res.Moved, moved)
	return nil
}

// writeRecord leaves a note next to the moved file.
func (r *Reconciler) writeRecord(original, target string, numbers []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "原文件路径: %s\n", original)
	fmt.Fprintf(&b, "已报销的发票号码: %s\n", strings.Join(numbers, ", "))
	fmt.Fprintf(&b, "移动时间: %s\n", r.now().Format("2006-01-02 15:04:05"))

	record := filepath.Join(filepath.Dir(target), stem(target)+"_info.txt")
	if err := os.WriteFile(record, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// pendingPDFs lists the PDFs directly inside the pending folder. A missing
// folder has no files.
func pendingPDFs(search *pdf.Search, layout Layout) ([]pdf.FileInfo, error) {
	if _, err := os.Stat(layout.Pending); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return search.FindPDFs(layout.Pending, pdf.SearchOptions{})
}
