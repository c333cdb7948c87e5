package errors

import (
	"strings"
	"unicode"
)

// ValidateDocumentID validates a graph document identifier.
// Document IDs become storage file names and cache keys, so the rules are
// intentionally conservative:
//   - No empty IDs
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
func ValidateDocumentID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidDocument, "document id cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidDocument, "document id too long (max 128 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidDocument, "document id contains control characters")
		}
	}

	if strings.ContainsAny(id, "/\\") {
		return New(ErrCodeInvalidDocument, "document id cannot contain path separators")
	}
	if strings.Contains(id, "..") {
		return New(ErrCodeInvalidDocument, "document id cannot contain traversal sequences (..)")
	}

	return nil
}

// ValidatePrincipal validates a permission principal identifier.
func ValidatePrincipal(principal string) error {
	if principal == "" {
		return New(ErrCodeInvalidInput, "principal cannot be empty")
	}
	for _, r := range principal {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "principal contains control characters")
		}
	}
	return nil
}

// ValidateImageURL validates an image reference used for export inlining.
// It ensures the URL has a safe scheme (http or https).
func ValidateImageURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "image URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "image URL must use http or https scheme")
	}

	return nil
}
