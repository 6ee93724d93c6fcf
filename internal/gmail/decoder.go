package gmail

import (
	"encoding/base64"
	"slices"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

const (
	defaultAttachmentName = "attachment"
	defaultAttachmentType = "application/octet-stream"
)

// ExtractBody returns the first text/plain and the first text/html body of
// the part tree in depth-first, left-to-right order. Each slot is filled
// independently; later matches never overwrite an earlier one.
func ExtractBody(part *gmail.MessagePart) Body {
	var b Body
	walkParts(part, func(p *gmail.MessagePart) {
		if p.Body == nil || p.Body.Data == "" {
			return
		}
		switch strings.ToLower(p.MimeType) {
		case "text/plain":
			if b.Text == "" {
				b.Text = DecodeTransportText(p.Body.Data)
			}
		case "text/html":
			if b.HTML == "" {
				b.HTML = DecodeTransportText(p.Body.Data)
			}
		}
	})
	return b
}

// CollectAttachments returns every part whose body carries an attachment
// ID, in depth-first order.
func CollectAttachments(part *gmail.MessagePart) []Attachment {
	attachments := []Attachment{}
	walkParts(part, func(p *gmail.MessagePart) {
		if p.Body == nil || p.Body.AttachmentId == "" {
			return
		}

		h := NewHeaders(p.Headers)
		a := Attachment{
			ID:          p.Body.AttachmentId,
			Filename:    p.Filename,
			MimeType:    p.MimeType,
			Disposition: h.Get("content-disposition"),
			ContentID:   h.Get("content-id"),
			Size:        p.Body.Size,
		}
		if a.Filename == "" {
			a.Filename = defaultAttachmentName
		}
		if a.MimeType == "" {
			a.MimeType = defaultAttachmentType
		}
		attachments = append(attachments, a)
	})
	return attachments
}

// DecodeTransportText decodes Gmail part data. It accepts the URL-safe
// alphabet with or without padding and falls back to the standard alphabet.
// Undecodable input yields "".
func DecodeTransportText(data string) string {
	if data == "" {
		return ""
	}
	b, err := decodeBase64(data)
	if err != nil {
		return ""
	}
	return strings.ToValidUTF8(string(b), "�")
}

func decodeBase64(data string) ([]byte, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(data), "=")
	b, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(trimmed)
}

// walkParts visits part and its descendants depth first.
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}

// decodeMessage normalizes a full-format Gmail message.
func decodeMessage(m *gmail.Message) Message {
	var h Headers
	if m.Payload != nil {
		h = NewHeaders(m.Payload.Headers)
	} else {
		h = Headers{}
	}

	body := ExtractBody(m.Payload)
	body.Text = DecodeHTMLEntities(body.Text)

	date, _ := ParseDate(h.Get("date"))

	return Message{
		ID:          m.Id,
		ThreadID:    m.ThreadId,
		Subject:     DecodeHTMLEntities(h.Subject()),
		From:        h.Get("from"),
		FromAddress: SenderAddress(h.Get("from")),
		To:          h.Get("to"),
		Date:        date,
		RawDate:     h.Get("date"),
		DisplayDate: DisplayDate(h.Get("date")),
		Snippet:     DecodeHTMLEntities(m.Snippet),
		Body:        body,
		Attachments: CollectAttachments(m.Payload),
		Unread:      slices.Contains(m.LabelIds, labelUnread),
		Headers:     h,
	}
}
