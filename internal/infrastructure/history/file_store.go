package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/pkg/filesystem"
	"github.com/doeshing/promptkeep/internal/ports"
)

// FileStore keeps one directory per prompt under root, holding one immutable
// JSON file per version named by the zero-padded version number.
type FileStore struct {
	root     string
	minWidth int
	clock    func() time.Time
	index    ports.VersionIndex
	log      ports.Logger
	mu       sync.Mutex
}

// NewFileStore creates a version store rooted at root (usually <project>/.promptkeep/versions).
func NewFileStore(root string, minWidth int) *FileStore {
	if minWidth <= 0 {
		minWidth = domain.DefaultVersionWidth
	}
	return &FileStore{root: root, minWidth: minWidth, clock: time.Now}
}

// WithClock replaces the time source (tests).
func (f *FileStore) WithClock(clock func() time.Time) *FileStore {
	f.clock = clock
	return f
}

// WithIndex attaches an advisory index that is updated after each snapshot.
// Index failures are logged and never fail the snapshot.
func (f *FileStore) WithIndex(index ports.VersionIndex, log ports.Logger) *FileStore {
	f.index = index
	f.log = log
	return f
}

// Snapshot appends a new version holding a copy of rec.
func (f *FileStore) Snapshot(ctx context.Context, rec domain.PromptRecord, opts domain.SnapshotOptions) (domain.VersionSnapshot, error) {
	if rec.ID <= 0 {
		return domain.VersionSnapshot{}, domain.InvalidInputf("snapshot of unsaved prompt")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	files, err := f.scan(rec.ID)
	if err != nil {
		return domain.VersionSnapshot{}, err
	}
	next := 1
	width := f.minWidth
	if len(files) > 0 {
		last := files[len(files)-1]
		next = last.version + 1
		for _, vf := range files {
			width = max(width, vf.width)
		}
	}
	// widen instead of wrapping once the number outgrows the current width
	width = max(width, len(strconv.Itoa(next)))

	snap := domain.VersionSnapshot{
		Version:   next,
		EntityID:  rec.ID,
		Snapshot:  rec.Clone(),
		Message:   opts.Message,
		CreatedAt: f.clock().UTC(),
		Strategy:  opts.Strategy,
		Metrics:   cloneMetrics(opts.Metrics),
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return domain.VersionSnapshot{}, errors.Wrapf(err, "encode version %d of prompt %d", next, rec.ID)
	}
	path := filepath.Join(f.entityDir(rec.ID), fmt.Sprintf("%0*d.json", width, next))
	if err := filesystem.CreateFileExclusive(ctx, path, append(data, '\n'), domain.FilePermissions); err != nil {
		return domain.VersionSnapshot{}, err
	}

	if f.index != nil {
		if err := f.index.Record(ctx, snap); err != nil && f.log != nil {
			f.log.Warn("version index update failed", map[string]interface{}{
				"prompt_id": rec.ID,
				"version":   next,
				"error":     err.Error(),
			})
		}
	}
	return snap, nil
}

// History lists every snapshot of id in ascending version order. It is always
// derived from the files on disk.
func (f *FileStore) History(_ context.Context, id int) ([]domain.VersionSnapshot, error) {
	files, err := f.scan(id)
	if err != nil {
		return nil, err
	}
	out := make([]domain.VersionSnapshot, 0, len(files))
	for _, vf := range files {
		snap, err := f.load(id, vf)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// Get returns version n of id.
func (f *FileStore) Get(_ context.Context, id, version int) (domain.VersionSnapshot, error) {
	files, err := f.scan(id)
	if err != nil {
		return domain.VersionSnapshot{}, err
	}
	for _, vf := range files {
		if vf.version == version {
			return f.load(id, vf)
		}
	}
	return domain.VersionSnapshot{}, domain.NotFoundf("version %d of prompt %d", version, id)
}

// Latest returns the highest version of id, if any.
func (f *FileStore) Latest(_ context.Context, id int) (domain.VersionSnapshot, bool, error) {
	files, err := f.scan(id)
	if err != nil || len(files) == 0 {
		return domain.VersionSnapshot{}, false, err
	}
	snap, err := f.load(id, files[len(files)-1])
	if err != nil {
		return domain.VersionSnapshot{}, false, err
	}
	return snap, true, nil
}

// DeleteHistory removes every snapshot of id. It is only reached through an
// explicit cascade request.
func (f *FileStore) DeleteHistory(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := f.entityDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return domain.NotFoundf("history of prompt %d", id)
	}
	if err := os.RemoveAll(dir); err != nil {
		return domain.NewIOFailure("remove", dir, err)
	}
	if f.index != nil {
		if err := f.index.Forget(ctx, id); err != nil && f.log != nil {
			f.log.Warn("version index cleanup failed", map[string]interface{}{"prompt_id": id, "error": err.Error()})
		}
	}
	return nil
}

// Entities lists the ids that have a history directory, ascending.
func (f *FileStore) Entities(context.Context) ([]int, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domain.NewIOFailure("read dir", f.root, err)
	}
	var ids []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, err := strconv.Atoi(e.Name())
		if err != nil || id <= 0 || strconv.Itoa(id) != e.Name() {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

type versionFile struct {
	name    string
	version int
	width   int
}

// scan lists the version files of id sorted by number. Names that are not
// all digits (temp files, editor droppings) are ignored.
func (f *FileStore) scan(id int) ([]versionFile, error) {
	dir := f.entityDir(id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domain.NewIOFailure("read dir", dir, err)
	}
	files := make([]versionFile, 0, len(entries))
	seen := make(map[int]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		stem, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok || !allDigits(stem) {
			continue
		}
		n, err := strconv.Atoi(stem)
		if err != nil || n <= 0 {
			continue
		}
		if other, dup := seen[n]; dup {
			return nil, domain.NewCorruptState(filepath.Join(dir, e.Name()),
				errors.Newf("version %d also stored as %s", n, other))
		}
		seen[n] = e.Name()
		files = append(files, versionFile{name: e.Name(), version: n, width: len(stem)})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}

func (f *FileStore) load(id int, vf versionFile) (domain.VersionSnapshot, error) {
	path := filepath.Join(f.entityDir(id), vf.name)
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.VersionSnapshot{}, domain.NewIOFailure("read", path, err)
	}
	var snap domain.VersionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.VersionSnapshot{}, domain.NewCorruptState(path, err)
	}
	if snap.Version != vf.version || snap.EntityID != id {
		return domain.VersionSnapshot{}, domain.NewCorruptState(path,
			errors.Newf("file holds version %d of prompt %d", snap.Version, snap.EntityID))
	}
	snap.Snapshot.Normalize()
	return snap, nil
}

func (f *FileStore) entityDir(id int) string {
	return filepath.Join(f.root, strconv.Itoa(id))
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func cloneMetrics(in map[string]float64) map[string]float64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var _ ports.VersionStore = (*FileStore)(nil)
