package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/bookrack/internal/shared"
	"github.com/urfave/cli/v3"
)

func (r *Runner) requireCache() error {
	if r.books == nil {
		return fmt.Errorf("%w: book cache is disabled ([cache] enabled = false)", shared.ErrServiceUnavailable)
	}
	return nil
}

// CacheStats prints the number of cached books.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}
	if err := r.requireCache(); err != nil {
		return err
	}

	n, err := r.books.Count()
	if err != nil {
		return err
	}
	return r.writePlain("Cached books: %d (ttl %s)\n", n, r.config.Cache.TTL())
}

// CachePrune deletes cached books older than --older-than, or the configured TTL.
func (r *Runner) CachePrune(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}
	if err := r.requireCache(); err != nil {
		return err
	}

	age := r.config.Cache.TTL()
	if cmd.IsSet("older-than") {
		age = cmd.Duration("older-than")
	}
	if age < 0 {
		return fmt.Errorf("%w: --older-than must not be negative", shared.ErrInvalidFlag)
	}

	n, err := r.books.Prune(age)
	if err != nil {
		return err
	}
	r.logger.Info("pruned book cache", "removed", n, "older_than", age)
	return r.writePlain("Removed %d cached books older than %s\n", n, age)
}
