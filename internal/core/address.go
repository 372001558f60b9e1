package core

import (
	"net/mail"
	"strings"
)

// ExtractSenderDomain parses a raw From header and returns the lower-cased
// domain of the sender's address. The second return value is false when no
// usable domain could be extracted.
func ExtractSenderDomain(rawFrom string) (string, bool) {
	rawFrom = strings.TrimSpace(rawFrom)
	if rawFrom == "" {
		return "", false
	}

	addr, err := mail.ParseAddress(rawFrom)
	if err != nil {
		// Some headers carry an address list; try the first parseable entry.
		for _, part := range strings.Split(rawFrom, ",") {
			if a, e := mail.ParseAddress(strings.TrimSpace(part)); e == nil {
				addr = a
				break
			}
		}
		if addr == nil {
			return "", false
		}
	}

	email := strings.TrimSpace(addr.Address)
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return "", false
	}

	return strings.ToLower(email[at+1:]), true
}
