package errors

import (
	"strings"
	"unicode"
)

// maxFieldNameLength bounds field names accepted from configuration and requests.
const maxFieldNameLength = 256

// ValidateFieldName validates a row, column or value field name.
//
// The rules are intentionally loose because field names come from user data:
//   - No empty (or whitespace-only) names
//   - No control characters or null bytes
//   - Maximum length of 256 characters
//
// Case and punctuation are preserved; matching against the data is done
// case-insensitively by the engine.
func ValidateFieldName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidField, "field name cannot be empty")
	}

	if len(name) > maxFieldNameLength {
		return New(ErrCodeInvalidField, "field name too long (max %d characters)", maxFieldNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidField, "field name %q contains invalid control characters", name)
		}
	}

	return nil
}

// ValidateFieldNames validates every name and rejects case-insensitive duplicates.
// kind is used in error messages ("row", "column", "value").
func ValidateFieldNames(kind string, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if err := ValidateFieldName(name); err != nil {
			return Wrap(ErrCodeInvalidField, err, "invalid %s field", kind)
		}
		folded := strings.ToLower(strings.TrimSpace(name))
		if seen[folded] {
			return New(ErrCodeInvalidField, "duplicate %s field: %q", kind, name)
		}
		seen[folded] = true
	}
	return nil
}

// ValidatePath validates a local file path supplied through the HTTP API.
// It prevents path traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateURL validates a backend URL string.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
