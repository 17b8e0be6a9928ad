// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI presents the reader's library in three views:
//  1. [ReadingView] : Books in progress, most recently read first
//  2. [BookmarksView] : Bookmarked books with their progress, if any
//  3. [SearchView] : Catalog search with bookmarking of results
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// All edits go straight to the persisted stores; catalog metadata is loaded once through the LibraryEngine and kept
// in the model, so page turns and bookmark toggles re-render without another round trip.
//
// The layout store owns the sidebar toggle and the page title. The settings store owns the theme and the search
// page size.
package ui
