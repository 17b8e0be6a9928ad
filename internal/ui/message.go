package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgLibraryLoaded MsgKind = iota
	MsgProgressUpdate
	MsgSearchCompleted
)

type libraryLoaded struct {
	view *models.LibraryView
	err  error
}

type searchCompleted struct {
	query string
	books []models.Book
	err   error
}

// libraryLoadedMsg is the constructor for [MsgLibraryLoaded]
func libraryLoadedMsg(view *models.LibraryView, err error) Msg {
	return Msg{kind: MsgLibraryLoaded, data: libraryLoaded{view, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// searchCompletedMsg is the constructor for [MsgSearchCompleted]
func searchCompletedMsg(query string, books []models.Book, err error) Msg {
	return Msg{kind: MsgSearchCompleted, data: searchCompleted{query, books, err}}
}
