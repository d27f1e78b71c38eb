package records

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/pkg/filesystem"
	"github.com/doeshing/promptkeep/internal/ports"
)

// Counter is the durable id allocator: a single file holding the last issued id.
//
// Calls are serialized within the process. Separate processes racing NextID on
// the same directory can issue the same id; single ownership of the store
// directory is assumed.
type Counter struct {
	path string
	mu   sync.Mutex
}

// NewCounter returns an allocator backed by the file at path.
func NewCounter(path string) *Counter {
	return &Counter{path: path}
}

// NextID reads the counter, persists counter+1 and only then returns it.
func (c *Counter) NextID(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, err := c.read()
	if err != nil {
		return 0, err
	}
	next := last + 1
	if err := filesystem.WriteFileAtomic(ctx, c.path, []byte(strconv.Itoa(next)+"\n"), domain.FilePermissions); err != nil {
		return 0, errors.Wrap(err, "persist id counter")
	}
	return next, nil
}

// Peek returns the last issued id without allocating. Zero means none issued.
func (c *Counter) Peek() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read()
}

// Path returns the backing file path.
func (c *Counter) Path() string {
	return c.path
}

func (c *Counter) read() (int, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, domain.NewCorruptState(c.path, err)
	}
	// A counter that cannot be parsed is never reset: reissuing ids would collide.
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, domain.NewCorruptState(c.path, err)
	}
	if n < 0 {
		return 0, domain.NewCorruptState(c.path, errors.Newf("negative counter %d", n))
	}
	return n, nil
}

var _ ports.IDAllocator = (*Counter)(nil)
