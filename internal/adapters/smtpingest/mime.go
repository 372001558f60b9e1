package smtpingest

import (
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
)

// ExtractBody pulls the text/plain and text/html parts out of a message.
// Non-multipart messages land in one of the two depending on their
// Content-Type; unreadable structures fall back to the raw body as text.
func ExtractBody(msg *mail.Message) (text, html string, err error) {
	contentType := msg.Header.Get("Content-Type")

	mediaType, params, parseErr := mime.ParseMediaType(contentType)
	if contentType == "" || parseErr != nil || !strings.HasPrefix(mediaType, "multipart/") {
		raw, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", "", err
		}
		if strings.HasPrefix(mediaType, "text/html") {
			return "", string(raw), nil
		}
		return string(raw), "", nil
	}

	boundary, ok := params["boundary"]
	if !ok {
		raw, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", "", err
		}
		return string(raw), "", nil
	}

	mr := multipart.NewReader(msg.Body, boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		partType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(partType, "text/plain") && text == "":
			raw, err := io.ReadAll(part)
			if err == nil {
				text = string(raw)
			}
		case strings.HasPrefix(partType, "text/html") && html == "":
			raw, err := io.ReadAll(part)
			if err == nil {
				html = string(raw)
			}
		}
	}

	return text, html, nil
}
