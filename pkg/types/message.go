package types

// AccountInfo is the list_accounts projection of a configured account.
// It never carries credentials.
type AccountInfo struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	IMAPUsername string `json:"imapUsername"`
}

// MessageListItem is the search-result view of a message.
type MessageListItem struct {
	UID     uint32   `json:"uid"`
	Date    string   `json:"date"`
	From    []string `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Snippet string   `json:"snippet"`
}

// Attachment describes one attachment part of a message.
type Attachment struct {
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Size        uint32 `json:"size"`
}

// FullMessage is the read_message view: everything the list item
// carries plus cc, raw headers, body content and attachments.
type FullMessage struct {
	MessageListItem
	Cc          []string            `json:"cc"`
	Headers     map[string][]string `json:"headers"`
	Text        string              `json:"text,omitempty"`
	HTML        string              `json:"html,omitempty"`
	Attachments []Attachment        `json:"attachments"`
}
