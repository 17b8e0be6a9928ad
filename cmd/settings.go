package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/shared"
	"github.com/urfave/cli/v3"
)

// SettingsShow prints the settings and the persisted layout flag.
func (r *Runner) SettingsShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}

	settings := r.stores.Settings.Get()
	layout := r.stores.Layout.Get()
	if cmd.Bool("json") {
		return r.writeJSON(struct {
			models.Settings
			SidebarOpen bool `json:"sidebarOpen"`
		}{settings, layout.SidebarOpen}, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Settings")
	r.writePlain("Books per search: %d\n", settings.BooksPerSearch)
	r.writePlain("Theme:            %s\n", settings.Theme)
	r.writePlain("Sidebar open:     %t\n", layout.SidebarOpen)
	return nil
}

// SettingsBooksPerSearch sets the search page size. Values below 1 are raised to 1.
func (r *Runner) SettingsBooksPerSearch(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}
	raw := cmd.StringArg("count")
	if raw == "" {
		return fmt.Errorf("%w: count", shared.ErrMissingArgument)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%w: count must be an integer: %q", shared.ErrInvalidArgument, raw)
	}

	defer r.warnUnsaved()
	stored := r.stores.Settings.SetBooksPerSearch(n)
	if stored != n {
		r.logger.Warn("books per search raised to minimum", "requested", n, "stored", stored)
	}
	return r.writePlain("Books per search: %d\n", stored)
}

// SettingsTheme sets the theme. Unknown names are stored but the UI falls back to light.
func (r *Runner) SettingsTheme(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}
	theme := strings.ToLower(strings.TrimSpace(cmd.StringArg("name")))
	if theme == "" {
		return fmt.Errorf("%w: name", shared.ErrMissingArgument)
	}
	if theme != models.ThemeLight && theme != models.ThemeDark {
		r.logger.Warn("unknown theme, the UI will use light", "theme", theme)
	}

	defer r.warnUnsaved()
	r.stores.Settings.SetTheme(theme)
	return r.writePlain("Theme: %s\n", theme)
}

// SettingsSidebar toggles the sidebar, or sets it when --open or --closed is given.
func (r *Runner) SettingsSidebar(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}
	open, closed := cmd.Bool("open"), cmd.Bool("closed")
	if open && closed {
		return fmt.Errorf("%w: cannot specify both --open and --closed", shared.ErrInvalidFlag)
	}

	defer r.warnUnsaved()
	switch {
	case open:
		r.stores.Layout.SetSidebarOpen(true)
	case closed:
		r.stores.Layout.SetSidebarOpen(false)
	default:
		r.stores.Layout.ToggleSidebar()
	}
	return r.writePlain("Sidebar open: %t\n", r.stores.Layout.SidebarOpen())
}

// SettingsReset restores default settings.
func (r *Runner) SettingsReset(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}
	defer r.warnUnsaved()
	s := r.stores.Settings.Reset()
	return r.writePlain("Settings reset (books per search: %d, theme: %s)\n", s.BooksPerSearch, s.Theme)
}
