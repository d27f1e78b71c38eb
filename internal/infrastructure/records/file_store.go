package records

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/pkg/filesystem"
	"github.com/doeshing/promptkeep/internal/ports"
)

// FileStore keeps one JSON file per prompt, named by its integer id.
type FileStore struct {
	dir   string
	ids   ports.IDAllocator
	clock func() time.Time
}

// NewFileStore returns a store rooted at dir (usually <project>/.promptkeep/prompts).
func NewFileStore(dir string, ids ports.IDAllocator) *FileStore {
	return &FileStore{dir: dir, ids: ids, clock: time.Now}
}

// WithClock replaces the time source (tests).
func (s *FileStore) WithClock(clock func() time.Time) *FileStore {
	s.clock = clock
	return s
}

// Create assigns a fresh id and timestamps, then writes the record.
func (s *FileStore) Create(ctx context.Context, rec domain.PromptRecord) (domain.PromptRecord, error) {
	id, err := s.ids.NextID(ctx)
	if err != nil {
		return domain.PromptRecord{}, errors.Wrap(err, "allocate prompt id")
	}
	rec = rec.Clone()
	rec.Normalize()
	rec.ID = id
	now := s.now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if err := s.write(ctx, rec); err != nil {
		return domain.PromptRecord{}, err
	}
	return rec, nil
}

// Get loads the current record for id.
func (s *FileStore) Get(_ context.Context, id int) (domain.PromptRecord, error) {
	return s.read(id)
}

// Update loads the record, applies mutate and writes it back with a fresh
// updated_at. The id and created_at cannot be changed by the mutation.
// The caller holds the entity lock.
func (s *FileStore) Update(ctx context.Context, id int, mutate ports.Mutation) (domain.PromptRecord, error) {
	current, err := s.read(id)
	if err != nil {
		return domain.PromptRecord{}, err
	}
	next := current.Clone()
	if err := mutate(&next); err != nil {
		return domain.PromptRecord{}, err
	}
	next.Normalize()
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = s.now()
	if !next.UpdatedAt.After(current.UpdatedAt) {
		next.UpdatedAt = current.UpdatedAt.Add(time.Microsecond)
	}
	if err := s.write(ctx, next); err != nil {
		return domain.PromptRecord{}, err
	}
	return next, nil
}

// Delete removes the current record only. Version history is left untouched.
func (s *FileStore) Delete(_ context.Context, id int) error {
	path := s.pathFor(id)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return domain.NotFoundf("prompt %d", id)
		}
		return domain.NewIOFailure("remove", path, err)
	}
	return nil
}

// List returns every stored record, optionally filtered by tag and sorted.
// Without a sort key the order is the directory order.
func (s *FileStore) List(_ context.Context, opts domain.ListOptions) ([]domain.PromptRecord, error) {
	ids, err := s.storedIDs()
	if err != nil {
		return nil, err
	}
	var out []domain.PromptRecord
	for _, id := range ids {
		rec, err := s.read(id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// deleted between listing and reading
				continue
			}
			return nil, err
		}
		if opts.Tag != "" && !rec.HasTag(opts.Tag) {
			continue
		}
		out = append(out, rec)
	}
	domain.SortRecords(out, opts.SortBy)
	return out, nil
}

// Dir exposes the records directory path.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) storedIDs() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domain.NewIOFailure("read dir", s.dir, err)
	}
	var ids []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := parseRecordName(e.Name()); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *FileStore) read(id int) (domain.PromptRecord, error) {
	path := s.pathFor(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.PromptRecord{}, domain.NotFoundf("prompt %d", id)
		}
		return domain.PromptRecord{}, domain.NewIOFailure("read", path, err)
	}
	var rec domain.PromptRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.PromptRecord{}, domain.NewCorruptState(path, err)
	}
	if rec.ID != id {
		return domain.PromptRecord{}, domain.NewCorruptState(path, errors.Newf("file holds prompt %d", rec.ID))
	}
	rec.Normalize()
	return rec, nil
}

func (s *FileStore) write(ctx context.Context, rec domain.PromptRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode prompt %d", rec.ID)
	}
	return filesystem.WriteFileAtomic(ctx, s.pathFor(rec.ID), append(data, '\n'), domain.FilePermissions)
}

func (s *FileStore) pathFor(id int) string {
	return filepath.Join(s.dir, strconv.Itoa(id)+".json")
}

func (s *FileStore) now() time.Time {
	return s.clock().UTC()
}

func parseRecordName(name string) (int, bool) {
	stem, ok := strings.CutSuffix(name, ".json")
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(stem)
	if err != nil || id <= 0 || strconv.Itoa(id) != stem {
		return 0, false
	}
	return id, true
}

var _ ports.RecordStore = (*FileStore)(nil)
