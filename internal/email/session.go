package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/jhillyerd/enmime"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mcp-mailbox/internal/config"
)

// Session is the capability set the pool and the operations need from
// a live, authenticated IMAP connection.
type Session interface {
	// Usable reports whether the session can still run commands.
	Usable() bool
	Close() error
	SelectMailbox(name string) error
	// SearchUIDs runs a UID SEARCH against the selected mailbox.
	SearchUIDs(criteria *imap.SearchCriteria) ([]uint32, error)
	// FetchSummaries fetches envelope, body structure and the text body
	// for each UID, enough for list-view normalization.
	FetchSummaries(uids []uint32) ([]Fetched, error)
	// FetchFull fetches everything read_message needs: full headers,
	// envelope, body structure, and decoded text and html bodies.
	FetchFull(uids []uint32) ([]Fetched, error)
}

// Dialer opens a ready, authenticated session for one account.
type Dialer func(ctx context.Context, acc *config.Account) (Session, error)

// imapSession implements Session on top of go-imap's client.
type imapSession struct {
	account string
	cl      *client.Client
	logger  *logrus.Logger
}

// NewDialer returns a Dialer backed by DialIMAP.
func NewDialer(logger *logrus.Logger) Dialer {
	return func(ctx context.Context, acc *config.Account) (Session, error) {
		return DialIMAP(ctx, acc, logger)
	}
}

// DialIMAP connects to the account's IMAP server and authenticates.
func DialIMAP(ctx context.Context, acc *config.Account, logger *logrus.Logger) (Session, error) {
	addr := fmt.Sprintf("%s:%d", acc.IMAP.Host, acc.IMAP.Port)

	var (
		cl  *client.Client
		err error
	)
	if acc.IMAP.Secure {
		cl, err = client.DialTLS(addr, &tls.Config{
			ServerName: acc.IMAP.Host,
			MinVersion: tls.VersionTLS12,
		})
	} else {
		cl, err = client.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := cl.Login(acc.IMAP.Username, acc.IMAP.Password); err != nil {
		cl.Logout() //nolint:errcheck
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	logger.WithField("account", acc.Name).Info("Connected to IMAP server")
	return &imapSession{account: acc.Name, cl: cl, logger: logger}, nil
}

// Usable reports whether the connection is still authenticated.
func (s *imapSession) Usable() bool {
	return s.cl.State()&imap.AuthenticatedState != 0
}

// Close logs out of the server.
func (s *imapSession) Close() error {
	return s.cl.Logout()
}

// SelectMailbox selects a mailbox read-only.
func (s *imapSession) SelectMailbox(name string) error {
	if _, err := s.cl.Select(name, true); err != nil {
		return fmt.Errorf("failed to select mailbox %s: %w", name, err)
	}
	return nil
}

// SearchUIDs runs a UID SEARCH with the given criteria.
func (s *imapSession) SearchUIDs(criteria *imap.SearchCriteria) ([]uint32, error) {
	uids, err := s.cl.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	return uids, nil
}

// FetchSummaries fetches the list-view items for the given UIDs.
func (s *imapSession) FetchSummaries(uids []uint32) ([]Fetched, error) {
	if len(uids) == 0 {
		return []Fetched{}, nil
	}

	textSection := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{Specifier: imap.TextSpecifier},
		Peek:         true,
	}
	items := []imap.FetchItem{
		imap.FetchUid,
		imap.FetchEnvelope,
		imap.FetchBodyStructure,
		textSection.FetchItem(),
	}

	return s.fetch(uids, items, func(f *Fetched, msg *imap.Message) {
		if body := msg.GetBody(textSection); body != nil {
			f.Parts = map[string]string{"text": string(s.readLiteral(body))}
		}
	})
}

// FetchFull fetches the full-detail records for the given UIDs.
func (s *imapSession) FetchFull(uids []uint32) ([]Fetched, error) {
	if len(uids) == 0 {
		return []Fetched{}, nil
	}

	entireSection := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchUid,
		imap.FetchEnvelope,
		imap.FetchBodyStructure,
		entireSection.FetchItem(),
	}

	return s.fetch(uids, items, func(f *Fetched, msg *imap.Message) {
		if body := msg.GetBody(entireSection); body != nil {
			s.parseRawMessage(f, s.readLiteral(body))
		}
	})
}

// fetch runs a UID FETCH and lifts each streamed message into the
// typed record, letting fill grab the requested body sections.
func (s *imapSession) fetch(uids []uint32, items []imap.FetchItem, fill func(*Fetched, *imap.Message)) ([]Fetched, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	go func() {
		done <- s.cl.UidFetch(seqSet, items, messages)
	}()

	fetched := []Fetched{}
	for msg := range messages {
		f := fetchedFromMessage(msg)
		fill(&f, msg)
		fetched = append(fetched, f)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return fetched, nil
}

// parseRawMessage fills parts and headers from the raw RFC822 payload.
// A payload enmime cannot parse degrades to a raw text part.
func (s *imapSession) parseRawMessage(f *Fetched, raw []byte) {
	if len(raw) == 0 {
		return
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		s.logger.WithError(err).WithField("uid", f.UID).Debug("Failed to parse message, using raw body")
		f.Parts = map[string]string{"text": string(raw)}
		return
	}

	parts := map[string]string{}
	if env.Text != "" {
		parts["text"] = env.Text
	}
	if env.HTML != "" {
		parts["html"] = env.HTML
	}
	f.Parts = parts

	if env.Root != nil {
		headers := make(map[string][]string, len(env.Root.Header))
		for name, values := range env.Root.Header {
			headers[name] = append([]string(nil), values...)
		}
		f.Headers = headers
	}
}

// fetchedFromMessage lifts a raw go-imap message into the typed
// ingestion record. A missing envelope or body structure stays nil.
func fetchedFromMessage(msg *imap.Message) Fetched {
	f := Fetched{UID: msg.Uid}

	if msg.Envelope != nil {
		f.Envelope = &Envelope{
			Date:    msg.Envelope.Date,
			Subject: msg.Envelope.Subject,
			From:    convertAddresses(msg.Envelope.From),
			To:      convertAddresses(msg.Envelope.To),
			Cc:      convertAddresses(msg.Envelope.Cc),
		}
	}

	f.Structure = convertStructure(msg.BodyStructure)
	return f
}

func convertAddresses(addrs []*imap.Address) []Address {
	out := make([]Address, 0, len(addrs))
	for _, a := range addrs {
		if a == nil {
			continue
		}
		out = append(out, Address{
			Name:    a.PersonalName,
			Mailbox: a.MailboxName,
			Host:    a.HostName,
		})
	}
	return out
}

func convertStructure(bs *imap.BodyStructure) *Part {
	if bs == nil {
		return nil
	}

	p := &Part{
		Type:              bs.MIMEType,
		Subtype:           bs.MIMESubType,
		Params:            lowerKeys(bs.Params),
		Disposition:       bs.Disposition,
		DispositionParams: lowerKeys(bs.DispositionParams),
		Size:              bs.Size,
	}
	for _, child := range bs.Parts {
		p.Children = append(p.Children, convertStructure(child))
	}
	return p
}

// lowerKeys normalizes parameter names so lookups like "filename" and
// "name" work regardless of the server's casing.
func lowerKeys(params map[string]string) map[string]string {
	if params == nil {
		return nil
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[strings.ToLower(k)] = v
	}
	return out
}

// readLiteral drains an IMAP literal into memory.
func (s *imapSession) readLiteral(literal imap.Literal) []byte {
	body, err := io.ReadAll(literal)
	if err != nil {
		s.logger.WithError(err).Error("Error reading literal")
	}
	return body
}
