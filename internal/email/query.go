package email

import (
	"net/textproto"
	"time"

	"github.com/emersion/go-imap"
)

// SearchQuery is the portable predicate set accepted by
// search_messages. Text is the free-form variant; when set, the
// structured fields are ignored.
type SearchQuery struct {
	Text string

	Keyword        string
	ExcludeKeyword string
	Since          time.Time
	Before         time.Time
	Subject        string
	Body           string
	From           string
	To             string
	Cc             string
	Bcc            string
}

// Criteria translates the query into the IMAP search grammar. The
// translation is a direct field mapping; no local filtering happens.
func (q SearchQuery) Criteria() *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()

	if q.Text != "" {
		criteria.Text = []string{q.Text}
		return criteria
	}

	if q.Keyword != "" {
		criteria.Text = []string{q.Keyword}
	}
	if q.ExcludeKeyword != "" {
		excluded := imap.NewSearchCriteria()
		excluded.Text = []string{q.ExcludeKeyword}
		criteria.Not = append(criteria.Not, excluded)
	}

	criteria.Since = q.Since
	criteria.Before = q.Before

	header := textproto.MIMEHeader{}
	if q.Subject != "" {
		header.Add("Subject", q.Subject)
	}
	if q.From != "" {
		header.Add("From", q.From)
	}
	if q.To != "" {
		header.Add("To", q.To)
	}
	if q.Cc != "" {
		header.Add("Cc", q.Cc)
	}
	if q.Bcc != "" {
		header.Add("Bcc", q.Bcc)
	}
	if len(header) > 0 {
		criteria.Header = header
	}

	if q.Body != "" {
		criteria.Body = []string{q.Body}
	}

	return criteria
}
