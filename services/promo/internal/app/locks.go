package app

import "sync"

// workspaceLocks serialises load-modify-save cycles per workspace.
type workspaceLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newWorkspaceLocks() *workspaceLocks {
	return &workspaceLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the workspace mutex and returns its release func.
func (l *workspaceLocks) lock(workspace string) func() {
	l.mu.Lock()
	m, ok := l.locks[workspace]
	if !ok {
		m = &sync.Mutex{}
		l.locks[workspace] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}
