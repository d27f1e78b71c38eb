package prompts

import "sync"

// entityLocks serializes mutations per prompt id within the process.
type entityLocks struct {
	m sync.Map // map[int]*sync.Mutex
}

func (l *entityLocks) lock(id int) func() {
	v, _ := l.m.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
