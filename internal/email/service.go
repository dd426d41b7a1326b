package email

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mcp-mailbox/internal/config"
	"github.com/brandon/mcp-mailbox/pkg/types"
)

// ErrUnknownAccount marks a request for an account name that is not in
// the configuration. The check runs before any connection attempt.
var ErrUnknownAccount = errors.New("unknown account")

const inboxMailbox = "INBOX"

// Service answers the mailbox operations against the configured
// accounts, using the pool for session reuse.
type Service struct {
	cfg    *config.Config
	pool   *Pool
	logger *logrus.Logger
}

// NewService creates a mailbox operations service.
func NewService(cfg *config.Config, pool *Pool, logger *logrus.Logger) *Service {
	return &Service{
		cfg:    cfg,
		pool:   pool,
		logger: logger,
	}
}

// ListAccounts projects the configured accounts, preserving input order
// and never exposing credentials.
func (s *Service) ListAccounts() []types.AccountInfo {
	accounts := make([]types.AccountInfo, 0, len(s.cfg.Accounts))
	for i := range s.cfg.Accounts {
		acc := &s.cfg.Accounts[i]
		accounts = append(accounts, types.AccountInfo{
			Name:         acc.Name,
			Description:  acc.Description,
			IMAPUsername: acc.IMAP.Username,
		})
	}
	return accounts
}

// SearchMessages runs the query against the account's INBOX and
// returns list items sorted ascending by UID. The limit keeps the
// first UIDs in the order the server returned them, before sorting.
func (s *Service) SearchMessages(ctx context.Context, accountName string, query SearchQuery, limit int) ([]types.MessageListItem, error) {
	session, err := s.inboxSession(ctx, accountName)
	if err != nil {
		return nil, err
	}

	uids, err := session.SearchUIDs(query.Criteria())
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	if len(uids) == 0 {
		return []types.MessageListItem{}, nil
	}
	if limit > 0 && len(uids) > limit {
		uids = uids[:limit]
	}

	fetched, err := session.FetchSummaries(uids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	results := make([]types.MessageListItem, 0, len(fetched))
	for _, f := range fetched {
		results = append(results, ToListItem(f))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].UID < results[j].UID })

	s.logger.WithFields(logrus.Fields{
		"account": accountName,
		"count":   len(results),
	}).Debug("Search completed")
	return results, nil
}

// ReadMessage fetches one message with full detail. A nil message with
// a nil error means the server has nothing for that UID.
func (s *Service) ReadMessage(ctx context.Context, accountName string, uid uint32) (*types.FullMessage, error) {
	session, err := s.inboxSession(ctx, accountName)
	if err != nil {
		return nil, err
	}

	fetched, err := session.FetchFull([]uint32{uid})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}

	for _, f := range fetched {
		if f.UID == uid {
			msg := ToFullMessage(f)
			return &msg, nil
		}
	}
	return nil, nil
}

// ReadMessages fetches a set of messages in one covering fetch.
// Duplicate UIDs collapse to one record; output is sorted ascending by
// UID. An empty input returns empty output without a network call.
func (s *Service) ReadMessages(ctx context.Context, accountName string, uids []uint32) ([]types.FullMessage, error) {
	if _, err := s.account(accountName); err != nil {
		return nil, err
	}

	unique := dedupeSorted(uids)
	if len(unique) == 0 {
		return []types.FullMessage{}, nil
	}

	session, err := s.inboxSession(ctx, accountName)
	if err != nil {
		return nil, err
	}

	fetched, err := session.FetchFull(unique)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	messages := make([]types.FullMessage, 0, len(fetched))
	for _, f := range fetched {
		messages = append(messages, ToFullMessage(f))
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].UID < messages[j].UID })
	return messages, nil
}

func (s *Service) account(name string) (*config.Account, error) {
	acc := s.cfg.GetAccount(name)
	if acc == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, name)
	}
	return acc, nil
}

// inboxSession acquires a pooled session for the account and selects
// INBOX on it.
func (s *Service) inboxSession(ctx context.Context, accountName string) (Session, error) {
	acc, err := s.account(accountName)
	if err != nil {
		return nil, err
	}

	session, err := s.pool.Acquire(ctx, acc)
	if err != nil {
		return nil, err
	}

	if err := session.SelectMailbox(inboxMailbox); err != nil {
		return nil, err
	}
	return session, nil
}

func dedupeSorted(uids []uint32) []uint32 {
	seen := make(map[uint32]struct{}, len(uids))
	out := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		out = append(out, uid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
