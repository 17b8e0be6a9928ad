package shared

import (
	"testing"

	"github.com/charmbracelet/log"
)

func TestTitleToSlug(t *testing.T) {
	tc := []struct {
		name  string
		title string
		want  string
	}{
		{name: "basic", title: "A Scanner Darkly", want: "a-scanner-darkly"},
		{name: "accents folded", title: "Les Misérables", want: "les-miserables"},
		{name: "punctuation and underscores", title: "  Dune: Part_Two  ", want: "dune-part-two"},
		{name: "dots become dashes", title: "Vol. 2.5", want: "vol-2-5"},
		{name: "nothing usable", title: "???", want: "book"},
		{name: "empty", title: "", want: "book"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := TitleToSlug(tt.title); got != tt.want {
				t.Errorf("TitleToSlug(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}

	t.Run("long titles are truncated", func(t *testing.T) {
		long := ""
		for range 50 {
			long += "word "
		}
		if got := TitleToSlug(long); len(got) > maxSlugLength {
			t.Errorf("expected at most %d characters, got %d", maxSlugLength, len(got))
		}
	})
}

func TestParseLogLevel(t *testing.T) {
	tc := map[string]log.Level{
		"debug":   log.DebugLevel,
		" WARN ":  log.WarnLevel,
		"error":   log.ErrorLevel,
		"":        log.InfoLevel,
		"verbose": log.InfoLevel,
	}
	for in, want := range tc {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestOpenBrowserRejectsRelativeLinks(t *testing.T) {
	for _, link := range []string{"", "/books/abc", "ftp://example.com/file", "javascript:alert(1)"} {
		if err := OpenBrowser(link); err == nil {
			t.Errorf("expected error for %q", link)
		}
	}
}
