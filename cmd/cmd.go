// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/bookrack/internal/formatter"
	"github.com/urfave/cli/v3"
)

// outputFlags returns fresh --json and --pretty flags. Flag values carry parse state, so commands never share them.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: true,
		},
	}
}

func md5Args() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "md5"}}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the example configuration to --config",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "rollback", Usage: "Roll back the most recent migration instead"},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// bookmarksCommand handles the bookmark set
func bookmarksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "bookmarks",
		Aliases: []string{"bm"},
		Usage:   "Manage bookmarked books",
		Commands: []*cli.Command{
			{
				Name:      "toggle",
				Usage:     "Bookmark a book, or remove the bookmark if present",
				Arguments: md5Args(),
				Action:    r.BookmarksToggle,
			},
			{
				Name:      "has",
				Usage:     "Report whether a book is bookmarked",
				Arguments: md5Args(),
				Action:    r.BookmarksHas,
			},
			{
				Name:   "list",
				Usage:  "List bookmarked content hashes",
				Flags:  outputFlags(),
				Action: r.BookmarksList,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a bookmark and, with --progress, the reading progress",
				Arguments: md5Args(),
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Also forget reading progress for the book",
					},
				},
				Action: r.BookmarksRemove,
			},
			{
				Name:   "clear",
				Usage:  "Remove every bookmark",
				Action: r.BookmarksClear,
			},
		},
	}
}

// progressCommand handles reading progress records
func progressCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "progress",
		Usage: "Track reading progress",
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Record the current page of a book",
				Arguments: md5Args(),
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "page",
						Aliases:  []string{"p"},
						Usage:    "Current page",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "total",
						Aliases: []string{"t"},
						Usage:   "Total pages (keeps the stored total when omitted)",
					},
				},
				Action: r.ProgressSet,
			},
			{
				Name:      "turn",
				Usage:     "Move the current page forward or back",
				Arguments: md5Args(),
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "by",
						Usage: "Pages to move, negative to go back",
						Value: 1,
					},
				},
				Action: r.ProgressTurn,
			},
			{
				Name:      "show",
				Usage:     "Show the progress record of a book",
				Arguments: md5Args(),
				Flags:     outputFlags(),
				Action:    r.ProgressShow,
			},
			{
				Name:   "active",
				Usage:  "List books in progress",
				Flags:  outputFlags(),
				Action: r.ProgressActive,
			},
			{
				Name:   "list",
				Usage:  "List every progress record, finished books included",
				Flags:  outputFlags(),
				Action: r.ProgressList,
			},
			{
				Name:      "forget",
				Usage:     "Delete the progress record of a book",
				Arguments: md5Args(),
				Action:    r.ProgressForget,
			},
			{
				Name:  "import",
				Usage: "Register a local file and start its progress at page 0",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "pages",
						Usage: "Total pages when they cannot be read from the file",
					},
					&cli.BoolFlag{
						Name:  "bookmark",
						Usage: "Also bookmark the book",
					},
				},
				Action: r.ProgressImport,
			},
		},
	}
}

// settingsCommand handles reader preferences and layout state
func settingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show and change reader preferences",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show settings and layout",
				Flags:  outputFlags(),
				Action: r.SettingsShow,
			},
			{
				Name:  "books-per-search",
				Usage: "Set the number of search results per page",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "count"},
				},
				Action: r.SettingsBooksPerSearch,
			},
			{
				Name:  "theme",
				Usage: "Set the UI theme (light or dark)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Action: r.SettingsTheme,
			},
			{
				Name:  "sidebar",
				Usage: "Toggle the sidebar, or set it with --open/--closed",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "open", Usage: "Open the sidebar"},
					&cli.BoolFlag{Name: "closed", Usage: "Close the sidebar"},
				},
				Action: r.SettingsSidebar,
			},
			{
				Name:   "reset",
				Usage:  "Restore default settings",
				Action: r.SettingsReset,
			},
		},
	}
}

// searchCommand queries the catalog
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the catalog; the page size comes from settings",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags:  outputFlags(),
		Action: r.Search,
	}
}

// libraryCommand handles the merged view of bookmarks and progress
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Resolve, export, and download the library",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show books in progress and bookmarks with catalog metadata",
				Flags:  outputFlags(),
				Action: r.LibraryShow,
			},
			{
				Name:  "export",
				Usage: "Export the library to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (json, csv, markdown, txt, yaml)",
						Value:   string(formatter.FormatJSON),
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file, or directory for markdown (default: library.<ext>)",
					},
					&cli.BoolFlag{
						Name:  "covers",
						Usage: "Download cover images (markdown only)",
					},
				},
				Action: r.LibraryExport,
			},
			{
				Name:  "download",
				Usage: "Download book files for a shelf",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "shelf",
						Usage: "Shelf to download (reading, bookmarks, all)",
						Value: "all",
					},
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: [downloads] dir)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent downloads (default: [downloads] workers)",
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Downloads started per second (default: [downloads] rate_limit)",
					},
				},
				Action: r.LibraryDownload,
			},
			{
				Name:      "open",
				Usage:     "Open a book's catalog link in the browser",
				Arguments: md5Args(),
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "print", Usage: "Print the link instead of opening it"},
				},
				Action: r.LibraryOpen,
			},
		},
	}
}

// uploadCommand submits a book to the catalog
func uploadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "upload",
		Usage: "Upload a book file with its metadata",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "Book file (epub, mobi, pdf)", Required: true},
			&cli.StringFlag{Name: "cover", Usage: "Cover image (png, jpeg, webp)"},
			&cli.StringFlag{Name: "title", Required: true},
			&cli.StringFlag{Name: "author", Required: true},
			&cli.StringFlag{Name: "publisher", Required: true},
			&cli.StringFlag{Name: "year", Usage: "Four digit publication year", Required: true},
			&cli.StringFlag{Name: "format", Usage: "epub, mobi, or pdf (default: from the file extension)"},
			&cli.StringFlag{Name: "series"},
			&cli.StringFlag{Name: "isbn"},
			&cli.StringFlag{Name: "cid", Usage: "IPFS content id"},
			&cli.StringSliceFlag{Name: "other-title", Usage: "Alternative title (repeatable)"},
			&cli.StringFlag{Name: "description"},
		},
		Action: r.Upload,
	}
}

// cacheCommand handles the local book metadata cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and prune the book metadata cache",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show the number of cached books",
				Action: r.CacheStats,
			},
			{
				Name:  "prune",
				Usage: "Delete cached books older than --older-than",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Maximum age to keep (default: [cache] ttl_minutes)",
					},
				},
				Action: r.CachePrune,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the interactive library.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive library",
		Action:  r.TUI,
	}
}
