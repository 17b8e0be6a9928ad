// Package models defines the domain entities shared by the stores, the catalog client and the CLI.
//
// The package contains two categories of types:
//
// 1. Catalog data: records returned by the remote catalog backend
//   - [Book] : Book metadata keyed by content hash
//   - [ExternalDownload] : Alternate download mirror for a book
//   - [UploadSubmission] : Book upload form with validation tags
//
// 2. Persisted client state: values owned by the persisted stores
//   - [BookID] : Content hash identifying a book revision
//   - [ReadingProgress] : Current and total pages for one book
//   - [Settings] : Search size and theme preferences
//   - [Layout] : Sidebar state and the transient page title
//
// 3. Derived views: [LibraryView] merges both categories, and [DownloadReport] records a bulk download.
//
// [BookID] is the primary key everywhere. It is derived once from file content by [ContentKey]
// and never recomputed from mutable fields.
package models
