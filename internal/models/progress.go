package models

import "time"

// ReadingProgress records how far a reader has got through one book.
//
// Pages are stored as given: the store does not clamp CurrentPage to TotalPages.
type ReadingProgress struct {
	MD5         BookID     `json:"md5" yaml:"md5"`
	CurrentPage int        `json:"currentPage" yaml:"current_page"`
	TotalPages  int        `json:"totalPages" yaml:"total_pages"`
	LastRead    *time.Time `json:"lastRead,omitempty" yaml:"last_read,omitempty"`
}

// Active reports whether the book is started but not finished: TotalPages > 0 and CurrentPage < TotalPages.
func (p ReadingProgress) Active() bool {
	return p.TotalPages > 0 && p.CurrentPage < p.TotalPages
}

// Complete reports whether CurrentPage has reached a known TotalPages.
func (p ReadingProgress) Complete() bool {
	return p.TotalPages > 0 && p.CurrentPage >= p.TotalPages
}

// Percent returns completion in [0, 100], or 0 when TotalPages is unknown.
func (p ReadingProgress) Percent() float64 {
	if p.TotalPages <= 0 {
		return 0
	}
	pct := float64(p.CurrentPage) / float64(p.TotalPages) * 100
	return min(max(pct, 0), 100)
}
