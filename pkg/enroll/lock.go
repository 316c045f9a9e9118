package enroll

import "sync"

// Lock is the process-wide exclusive-action lock. Every mutating operation
// (join, leave, deconfigure, login-policy change) acquires it before
// touching any back-end and releases it on every exit path. At most one
// holder exists at any time; read-only calls never take it.
type Lock struct {
	mu     sync.Mutex
	locked bool
	holder string
}

// NewLock creates an unlocked daemon lock. Initialized once at process
// start, alive for the process lifetime.
func NewLock() *Lock {
	return &Lock{}
}

// TryLock attempts to acquire the lock, tagging it with the inbound call
// identity for diagnostics. Returns false when another action holds it.
func (l *Lock) TryLock(holder string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked {
		return false
	}
	l.locked = true
	l.holder = holder
	return true
}

// Unlock releases the lock. Calling it once per successful TryLock is the
// contract; a spurious unlock of a free lock is ignored.
func (l *Lock) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locked = false
	l.holder = ""
}

// Holder returns the current holder tag, or "" when free.
func (l *Lock) Holder() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holder
}
