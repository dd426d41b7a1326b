package email

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mcp-mailbox/internal/config"
)

const (
	defaultIdleTimeout  = 5 * time.Minute
	defaultReapInterval = 60 * time.Second
)

// Pool owns at most one live IMAP session per account name. Sessions
// are created lazily on first acquire, reused while usable, and evicted
// by a background reaper once idle past the threshold.
type Pool struct {
	dial   Dialer
	logger *logrus.Logger

	mu      sync.Mutex
	entries map[string]*poolEntry

	idleTimeout  time.Duration
	reapInterval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

type poolEntry struct {
	session    Session
	lastUsedAt time.Time
}

// NewPool creates a pool and starts its idle reaper.
func NewPool(dial Dialer, logger *logrus.Logger) *Pool {
	p := &Pool{
		dial:         dial,
		logger:       logger,
		entries:      make(map[string]*poolEntry),
		idleTimeout:  defaultIdleTimeout,
		reapInterval: defaultReapInterval,
		stop:         make(chan struct{}),
	}
	go p.reapLoop()
	return p
}

// Acquire returns a ready, authenticated session for the account,
// reusing the cached one when it is still usable. A failed dial is
// returned to the caller; it is neither retried nor cached.
func (p *Pool) Acquire(ctx context.Context, acc *config.Account) (Session, error) {
	p.mu.Lock()
	if entry, ok := p.entries[acc.Name]; ok && entry.session.Usable() {
		entry.lastUsedAt = time.Now()
		p.mu.Unlock()
		return entry.session, nil
	}
	p.mu.Unlock()

	// Dial outside the lock so a slow handshake never blocks other
	// accounts and a half-constructed entry is never visible in the
	// map. Two concurrent cold acquires for one account may both dial;
	// the last writer wins and the loser's session falls out of scope
	// with its caller. The remote protocol tolerates multiple sessions
	// per account, so this is accepted rather than paying for a
	// per-account creation lock.
	session, err := p.dial(ctx, acc)
	if err != nil {
		return nil, fmt.Errorf("failed to connect account %s: %w", acc.Name, err)
	}

	p.mu.Lock()
	p.entries[acc.Name] = &poolEntry{session: session, lastUsedAt: time.Now()}
	p.mu.Unlock()

	p.logger.WithField("account", acc.Name).Debug("Opened IMAP session")
	return session, nil
}

func (p *Pool) reapLoop() {
	ticker := time.NewTicker(p.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.reapIdle(time.Now())
		case <-p.stop:
			return
		}
	}
}

// reapIdle evicts every entry idle past the threshold. Close runs in
// its own goroutine so a hung connection cannot stall the scan, and a
// close failure is swallowed.
func (p *Pool) reapIdle(now time.Time) {
	var evicted []Session

	p.mu.Lock()
	for name, entry := range p.entries {
		if now.Sub(entry.lastUsedAt) > p.idleTimeout {
			delete(p.entries, name)
			evicted = append(evicted, entry.session)
			p.logger.WithField("account", name).Debug("Evicting idle IMAP session")
		}
	}
	p.mu.Unlock()

	for _, session := range evicted {
		go func(s Session) {
			if err := s.Close(); err != nil {
				p.logger.WithError(err).Debug("Failed to close evicted session")
			}
		}(session)
	}
}

// Shutdown stops the reaper and closes every live session.
func (p *Pool) Shutdown() {
	p.stopOnce.Do(func() { close(p.stop) })

	p.mu.Lock()
	entries := p.entries
	p.entries = make(map[string]*poolEntry)
	p.mu.Unlock()

	for name, entry := range entries {
		if err := entry.session.Close(); err != nil {
			p.logger.WithError(err).WithField("account", name).Debug("Failed to close session during shutdown")
		}
	}
}
