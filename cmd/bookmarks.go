package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/shared"
	"github.com/urfave/cli/v3"
)

// bookIDArg reads the md5 argument. Ids that do not look like md5 digests are accepted with a warning.
func (r *Runner) bookIDArg(cmd *cli.Command) (models.BookID, error) {
	id := models.ParseBookID(cmd.StringArg("md5"))
	if id == "" {
		return "", fmt.Errorf("%w: md5", shared.ErrMissingArgument)
	}
	if !id.Valid() {
		r.logger.Warn("id is not an md5 digest", "md5", id)
	}
	return id, nil
}

// BookmarksToggle flips the bookmark of one book.
func (r *Runner) BookmarksToggle(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}
	id, err := r.bookIDArg(cmd)
	if err != nil {
		return err
	}

	defer r.warnUnsaved()
	if r.stores.Bookmarks.Toggle(id) {
		return r.writePlain("★ Bookmarked %s\n", id)
	}
	return r.writePlain("☆ Removed bookmark %s\n", id)
}

// BookmarksHas prints true or false.
func (r *Runner) BookmarksHas(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}
	id, err := r.bookIDArg(cmd)
	if err != nil {
		return err
	}
	return r.writePlain("%t\n", r.stores.Bookmarks.Has(id))
}

// BookmarksList prints bookmarked ids, one per line or as a JSON array.
func (r *Runner) BookmarksList(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}

	ids := r.stores.Bookmarks.List()
	if cmd.Bool("json") {
		return r.writeJSON(ids, cmd.Bool("pretty"))
	}
	if len(ids) == 0 {
		return r.writePlain("No bookmarks\n")
	}
	for _, id := range ids {
		r.writePlain("%s\n", id)
	}
	return nil
}

// BookmarksRemove deletes a bookmark. With --progress the reading progress goes too.
func (r *Runner) BookmarksRemove(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}
	id, err := r.bookIDArg(cmd)
	if err != nil {
		return err
	}
	defer r.warnUnsaved()

	if cmd.Bool("progress") {
		bookmark, progress := r.engine.RemoveFromLibrary(id)
		return r.writePlain("Removed %s (bookmark: %t, progress: %t)\n", id, bookmark, progress)
	}
	if !r.stores.Bookmarks.Remove(id) {
		return r.writePlain("%s was not bookmarked\n", id)
	}
	return r.writePlain("☆ Removed bookmark %s\n", id)
}

// BookmarksClear removes every bookmark.
func (r *Runner) BookmarksClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}
	defer r.warnUnsaved()

	n := r.stores.Bookmarks.Len()
	r.stores.Bookmarks.Clear()
	return r.writePlain("Cleared %d bookmarks\n", n)
}
