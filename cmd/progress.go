package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/shared"
	"github.com/desertthunder/bookrack/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ProgressSet records the current page of a book, stamping it with the current time.
func (r *Runner) ProgressSet(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}
	id, err := r.bookIDArg(cmd)
	if err != nil {
		return err
	}

	page := int(cmd.Int("page"))
	total := int(cmd.Int("total"))
	if !cmd.IsSet("total") {
		if existing, ok := r.stores.Progress.Find(id); ok {
			total = existing.TotalPages
		}
	}
	if page < 0 || total < 0 {
		return fmt.Errorf("%w: pages must not be negative", shared.ErrInvalidFlag)
	}

	defer r.warnUnsaved()
	p := r.stores.Progress.Upsert(id, page, total, nil)
	return r.writePlain("%s\n", describeProgress(p))
}

// ProgressTurn moves the current page by --by, staying within the book.
func (r *Runner) ProgressTurn(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}
	id, err := r.bookIDArg(cmd)
	if err != nil {
		return err
	}

	defer r.warnUnsaved()
	p, ok := r.engine.Turn(id, int(cmd.Int("by")))
	if !ok {
		return fmt.Errorf("%w: no progress for %s", shared.ErrNotFound, id)
	}
	return r.writePlain("%s\n", describeProgress(p))
}

// ProgressShow prints the record for one book.
func (r *Runner) ProgressShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}
	id, err := r.bookIDArg(cmd)
	if err != nil {
		return err
	}

	p, ok := r.stores.Progress.Find(id)
	if !ok {
		return fmt.Errorf("%w: no progress for %s", shared.ErrNotFound, id)
	}
	if cmd.Bool("json") {
		return r.writeJSON(p, cmd.Bool("pretty"))
	}
	return r.writePlain("%s\n", describeProgress(p))
}

// ProgressActive lists books started but not finished.
func (r *Runner) ProgressActive(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}
	return r.writeProgress(cmd, r.stores.Progress.ListActive(), "Nothing in progress")
}

// ProgressList lists every record.
func (r *Runner) ProgressList(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}
	return r.writeProgress(cmd, r.stores.Progress.List(), "No reading progress")
}

func (r *Runner) writeProgress(cmd *cli.Command, records []models.ReadingProgress, empty string) error {
	if cmd.Bool("json") {
		if records == nil {
			records = []models.ReadingProgress{}
		}
		return r.writeJSON(records, cmd.Bool("pretty"))
	}
	if len(records) == 0 {
		return r.writePlain("%s\n", empty)
	}
	for _, p := range records {
		r.writePlain("%s\n", describeProgress(p))
	}
	return nil
}

// ProgressForget deletes the record for one book.
func (r *Runner) ProgressForget(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}
	id, err := r.bookIDArg(cmd)
	if err != nil {
		return err
	}

	defer r.warnUnsaved()
	if !r.stores.Progress.Forget(id) {
		return r.writePlain("No progress for %s\n", id)
	}
	return r.writePlain("Forgot progress for %s\n", id)
}

// ProgressImport hashes a local file and starts tracking it.
func (r *Runner) ProgressImport(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	defer r.warnUnsaved()
	result, err := r.engine.ImportLocal(path, tasks.ImportOpts{
		TotalPages: int(cmd.Int("pages")),
		Bookmark:   cmd.Bool("bookmark"),
	}, nil)
	if err != nil {
		return err
	}

	if result.Created {
		r.writePlain("✓ Imported %s (%s)\n", path, result.MIME)
	} else {
		r.writePlain("%s is already tracked; progress kept\n", path)
	}
	r.writePlain("%s\n", describeProgress(result.Progress))
	if result.Pages == 0 {
		r.writePlain("Page count unknown. Set it with: bookrack progress set %s --page 0 --total N\n", result.ID)
	}
	return nil
}

func describeProgress(p models.ReadingProgress) string {
	status := "unknown length"
	switch {
	case p.Complete():
		status = "finished"
	case p.TotalPages > 0:
		status = fmt.Sprintf("%.0f%%", p.Percent())
	}

	last := "never"
	if p.LastRead != nil {
		last = p.LastRead.Local().Format(time.DateTime)
	}
	return fmt.Sprintf("%s  page %d/%d  %s  last read %s", p.MD5, p.CurrentPage, p.TotalPages, status, last)
}
