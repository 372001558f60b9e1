package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSenderDomain(t *testing.T) {
	tests := []struct {
		name   string
		from   string
		domain string
		ok     bool
	}{
		{"bare address", "jane@example.com", "example.com", true},
		{"display name", `"Jane Doe" <jane@Example.COM>`, "example.com", true},
		{"angle brackets only", "<bob@acme.io>", "acme.io", true},
		{"address list", "Jane <jane@first.com>, Bob <bob@second.com>", "first.com", true},
		{"uppercase domain", "SALES@VENDOR.NET", "vendor.net", true},
		{"surrounding whitespace", "  jane@example.com  ", "example.com", true},
		{"not an email", "not-an-email", "", false},
		{"empty", "", "", false},
		{"missing domain", "jane@", "", false},
		{"missing local part", "@example.com", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			domain, ok := ExtractSenderDomain(tt.from)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.domain, domain)
		})
	}
}
