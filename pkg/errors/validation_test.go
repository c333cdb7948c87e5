package errors

import (
	"strings"
	"testing"
)

func TestValidateDocumentID(t *testing.T) {
	for _, tt := range []struct {
		id string
		ok bool
	}{
		{"b2b6c9e4", true},
		{"graph-with-dashes", true},
		{"", false},
		{"../escape", false},
		{"a/b", false},
		{"a\\b", false},
		{"bad\x00id", false},
		{strings.Repeat("x", 129), false},
	} {
		err := ValidateDocumentID(tt.id)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateDocumentID(%q) = %v, want ok=%v", tt.id, err, tt.ok)
		}
	}
}

func TestValidateImageURL(t *testing.T) {
	for _, tt := range []struct {
		url string
		ok  bool
	}{
		{"https://example.com/a.png", true},
		{"http://example.com/a.png", true},
		{"", false},
		{"ftp://example.com/a.png", false},
		{"file:///etc/passwd", false},
	} {
		err := ValidateImageURL(tt.url)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateImageURL(%q) = %v, want ok=%v", tt.url, err, tt.ok)
		}
	}
}
