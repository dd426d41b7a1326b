package email

import (
	"context"
	"io"
	"sync"

	"github.com/emersion/go-imap"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mcp-mailbox/internal/config"
)

// fakeSession implements Session in-memory. Fetches stream records
// back in reverse request order so tests exercise the sort contract.
type fakeSession struct {
	mu sync.Mutex

	usable   bool
	closed   bool
	closeErr error

	selected   []string
	searchUIDs []uint32
	searchErr  error

	// missing UIDs are silently absent from fetch responses, the way a
	// server reports nothing for an expunged message.
	missing map[uint32]bool

	summaryCalls [][]uint32
	fullCalls    [][]uint32
}

func newFakeSession() *fakeSession {
	return &fakeSession{usable: true}
}

func (f *fakeSession) Usable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usable && !f.closed
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return f.closeErr
}

func (f *fakeSession) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeSession) SelectMailbox(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = append(f.selected, name)
	return nil
}

func (f *fakeSession) SearchUIDs(criteria *imap.SearchCriteria) ([]uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchUIDs, nil
}

func (f *fakeSession) FetchSummaries(uids []uint32) ([]Fetched, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryCalls = append(f.summaryCalls, uids)
	return f.records(uids), nil
}

func (f *fakeSession) FetchFull(uids []uint32) ([]Fetched, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fullCalls = append(f.fullCalls, uids)
	return f.records(uids), nil
}

func (f *fakeSession) records(uids []uint32) []Fetched {
	out := []Fetched{}
	for i := len(uids) - 1; i >= 0; i-- {
		if f.missing[uids[i]] {
			continue
		}
		out = append(out, Fetched{UID: uids[i]})
	}
	return out
}

// fakeDialer hands out sessions in order and counts dials.
type fakeDialer struct {
	mu       sync.Mutex
	sessions []*fakeSession
	errs     []error
	dials    int
}

func (d *fakeDialer) dial(ctx context.Context, acc *config.Account) (Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.dials
	d.dials++
	if i < len(d.errs) && d.errs[i] != nil {
		return nil, d.errs[i]
	}
	if i < len(d.sessions) {
		return d.sessions[i], nil
	}
	return newFakeSession(), nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() *config.Config {
	return &config.Config{
		LogLevel: "info",
		Server:   config.ServerConfig{Port: 8080},
		Accounts: []config.Account{
			{
				Name:        "work",
				Description: "Work mailbox",
				IMAP: config.IMAPConfig{
					Host:     "imap.work.example",
					Port:     993,
					Secure:   true,
					Username: "jane@work.example",
					Password: "secret-1",
				},
			},
			{
				Name:        "personal",
				Description: "Personal mailbox",
				IMAP: config.IMAPConfig{
					Host:     "imap.home.example",
					Port:     993,
					Secure:   true,
					Username: "jane@home.example",
					Password: "secret-2",
				},
			},
		},
	}
}
