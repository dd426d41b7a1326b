package email

import (
	"fmt"
	"strings"
	"time"

	"github.com/brandon/mcp-mailbox/pkg/types"
)

// snippetLimit caps the derived snippet length in characters.
const snippetLimit = 160

// FormatAddress renders an address as `"Display Name" <box@host>`, or
// bare box@host when no display name is present.
func FormatAddress(a Address) string {
	addr := a.Mailbox + "@" + a.Host
	if a.Name == "" {
		return addr
	}
	return fmt.Sprintf("%q <%s>", a.Name, addr)
}

func formatAddressList(addrs []Address) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, FormatAddress(a))
	}
	return out
}

// Snippet collapses all whitespace runs to single spaces, trims, and
// truncates the result to 160 characters.
func Snippet(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	runes := []rune(collapsed)
	if len(runes) > snippetLimit {
		return string(runes[:snippetLimit])
	}
	return collapsed
}

// ToListItem converts a fetched record into its search-result view.
// Total: missing fields degrade to their zero values.
func ToListItem(f Fetched) types.MessageListItem {
	item := types.MessageListItem{
		UID:  f.UID,
		From: []string{},
		To:   []string{},
	}

	if env := f.Envelope; env != nil {
		if !env.Date.IsZero() {
			item.Date = env.Date.Format(time.RFC3339)
		}
		item.From = formatAddressList(env.From)
		item.To = formatAddressList(env.To)
		item.Subject = env.Subject
	}

	item.Snippet = Snippet(f.Parts["text"])
	return item
}

// ToFullMessage converts a fetched record into its read_message view.
// Total, like ToListItem.
func ToFullMessage(f Fetched) types.FullMessage {
	msg := types.FullMessage{
		MessageListItem: ToListItem(f),
		Cc:              []string{},
		Headers:         map[string][]string{},
	}

	if env := f.Envelope; env != nil {
		msg.Cc = formatAddressList(env.Cc)
	}

	for name, values := range f.Headers {
		msg.Headers[name] = append([]string(nil), values...)
	}

	msg.Text = f.Parts["text"]
	msg.HTML = f.Parts["html"]
	msg.Attachments = collectAttachments(f.Structure)
	return msg
}

// collectAttachments walks the body-structure tree and picks every part
// whose disposition is "attachment", pulling the filename from the
// disposition parameters with the part's own name parameter as
// fallback.
func collectAttachments(root *Part) []types.Attachment {
	out := []types.Attachment{}

	var walk func(*Part)
	walk = func(p *Part) {
		if p == nil {
			return
		}
		if strings.EqualFold(p.Disposition, "attachment") {
			att := types.Attachment{Size: p.Size}
			if fn := p.DispositionParams["filename"]; fn != "" {
				att.Filename = fn
			} else {
				att.Filename = p.Params["name"]
			}
			if p.Type != "" || p.Subtype != "" {
				att.ContentType = strings.ToLower(p.Type + "/" + p.Subtype)
			}
			out = append(out, att)
		}
		for _, child := range p.Children {
			walk(child)
		}
	}
	walk(root)

	return out
}
