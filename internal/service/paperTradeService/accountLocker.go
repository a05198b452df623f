package paperTradeService

import "sync"

// accountLocker serializes mutating operations per account. The database
// transaction alone does not prevent two requests racing the balance read
// before either writes, so the check-then-act sequence needs an application
// level lock keyed by account id. Mutexes are never freed, the map is bounded
// by the number of accounts seen by this process.
type accountLocker struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newAccountLocker() *accountLocker {
	return &accountLocker{locks: make(map[int64]*sync.Mutex)}
}

func (l *accountLocker) lock(accountID int64) (unlock func()) {
	l.mu.Lock()
	m, ok := l.locks[accountID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[accountID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
