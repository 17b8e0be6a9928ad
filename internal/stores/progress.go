package stores

import (
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/storage"
)

// NamespaceProgress is the durable key owned by [ProgressStore].
const NamespaceProgress = "BR::progress"

// progressTable holds one record per book in first-upsert order.
type progressTable struct {
	records []models.ReadingProgress
	index   map[models.BookID]int
}

func newProgressTable(records []models.ReadingProgress) progressTable {
	t := progressTable{
		records: make([]models.ReadingProgress, 0, len(records)),
		index:   make(map[models.BookID]int, len(records)),
	}
	for _, r := range records {
		t = t.put(r)
	}
	return t
}

// put replaces the record for r.MD5 in place or appends it. It mutates t and is only called on fresh copies.
func (t progressTable) put(r models.ReadingProgress) progressTable {
	if i, ok := t.index[r.MD5]; ok {
		t.records[i] = r
		return t
	}
	t.index[r.MD5] = len(t.records)
	t.records = append(t.records, r)
	return t
}

func (t progressTable) upsert(r models.ReadingProgress) progressTable {
	next := progressTable{records: slices.Clone(t.records), index: make(map[models.BookID]int, len(t.index)+1)}
	for k, v := range t.index {
		next.index[k] = v
	}
	return next.put(r)
}

func (t progressTable) without(id models.BookID) progressTable {
	return newProgressTable(slices.DeleteFunc(slices.Clone(t.records), func(r models.ReadingProgress) bool {
		return r.MD5 == id
	}))
}

type progressBlob struct {
	ReadingProgress []models.ReadingProgress `json:"readingProgress"`
}

var progressSchema = Schema[progressTable, progressBlob]{
	Namespace: NamespaceProgress,
	Version:   0,
	Initial:   func() progressTable { return newProgressTable(nil) },
	Persist: func(t progressTable) progressBlob {
		return progressBlob{ReadingProgress: slices.Clone(t.records)}
	},
	Restore: func(b progressBlob) (progressTable, error) {
		return newProgressTable(b.ReadingProgress), nil
	},
}

// ProgressStore maps each book to its [models.ReadingProgress].
//
// Upsert stores pages exactly as given; bounds are the caller's responsibility.
type ProgressStore struct {
	p   *Persisted[progressTable, progressBlob]
	now func() time.Time
}

// NewProgressStore hydrates a [ProgressStore] from st. now stamps records upserted without a timestamp.
func NewProgressStore(st storage.Storage, logger *log.Logger, now func() time.Time) *ProgressStore {
	if now == nil {
		now = time.Now
	}
	return &ProgressStore{p: NewPersisted(st, progressSchema, logger), now: now}
}

// Upsert replaces the whole record for id. A nil lastRead is stamped with the store clock.
func (s *ProgressStore) Upsert(id models.BookID, currentPage, totalPages int, lastRead *time.Time) models.ReadingProgress {
	var ts time.Time
	if lastRead != nil {
		ts = *lastRead
	} else {
		ts = s.now().UTC()
	}
	lastRead = &ts
	record := models.ReadingProgress{MD5: id, CurrentPage: currentPage, TotalPages: totalPages, LastRead: lastRead}
	s.p.Update(func(t progressTable) progressTable { return t.upsert(record) })
	return detach(record)
}

// Find returns the record for id.
func (s *ProgressStore) Find(id models.BookID) (models.ReadingProgress, bool) {
	t := s.p.State()
	i, ok := t.index[id]
	if !ok {
		return models.ReadingProgress{}, false
	}
	return detach(t.records[i]), true
}

// ListActive returns records with TotalPages > 0 and CurrentPage < TotalPages.
//
// The order is stable while the store is unchanged.
func (s *ProgressStore) ListActive() []models.ReadingProgress {
	return s.filter(models.ReadingProgress.Active)
}

// ListComplete returns records whose CurrentPage has reached TotalPages.
func (s *ProgressStore) ListComplete() []models.ReadingProgress {
	return s.filter(models.ReadingProgress.Complete)
}

// List returns every record.
func (s *ProgressStore) List() []models.ReadingProgress {
	return detachAll(s.p.State().records)
}

func (s *ProgressStore) filter(keep func(models.ReadingProgress) bool) []models.ReadingProgress {
	var out []models.ReadingProgress
	for _, r := range s.p.State().records {
		if keep(r) {
			out = append(out, detach(r))
		}
	}
	return out
}

// Forget removes the record for id, reporting whether one existed.
func (s *ProgressStore) Forget(id models.BookID) bool {
	var removed bool
	s.p.Update(func(t progressTable) progressTable {
		if _, removed = t.index[id]; !removed {
			return t
		}
		return t.without(id)
	})
	return removed
}

// Len returns the number of records.
func (s *ProgressStore) Len() int {
	return len(s.p.State().records)
}

// Subscribe calls fn with every record after each change.
func (s *ProgressStore) Subscribe(fn func([]models.ReadingProgress)) (cancel func()) {
	return s.p.Subscribe(func(t progressTable) { fn(detachAll(t.records)) })
}

// detach copies r.LastRead so callers cannot write through to stored state.
func detach(r models.ReadingProgress) models.ReadingProgress {
	if r.LastRead != nil {
		ts := *r.LastRead
		r.LastRead = &ts
	}
	return r
}

func detachAll(records []models.ReadingProgress) []models.ReadingProgress {
	out := make([]models.ReadingProgress, len(records))
	for i, r := range records {
		out[i] = detach(r)
	}
	return out
}

// Err reports the most recent durable write failure.
func (s *ProgressStore) Err() error { return s.p.Err() }
