package email

import "time"

// Address is one parsed mailbox address from an envelope.
type Address struct {
	Name    string
	Mailbox string
	Host    string
}

// Envelope carries the addressing metadata of a fetched message.
type Envelope struct {
	Date    time.Time
	Subject string
	From    []Address
	To      []Address
	Cc      []Address
}

// Part is one node of a message's body-structure tree.
type Part struct {
	Type              string
	Subtype           string
	Params            map[string]string
	Disposition       string
	DispositionParams map[string]string
	Size              uint32
	Children          []*Part
}

// Fetched is the typed boundary between the IMAP session and the
// normalizer. Every field is optional: a nil envelope or structure and
// a missing part or header simply mean the server did not return them,
// and normalization degrades to empty values instead of failing.
type Fetched struct {
	UID      uint32
	Envelope *Envelope
	// Structure is the body-structure tree, used for attachment
	// discovery.
	Structure *Part
	// Parts maps a lowercase body label ("text", "html") to decoded
	// content.
	Parts map[string]string
	// Headers holds the raw message headers; a header name may repeat.
	Headers map[string][]string
}
