package middleware

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	defaultLimit     = 10
	maxLimit         = 100
	maxFilenameBytes = 255
	maxURLBytes      = 2048
	maxScanKeyBytes  = 2048
)

// ValidateScanID: scan id selalu UUID
func ValidateScanID(scanID string) error {
	if scanID == "" {
		return fmt.Errorf("scan ID cannot be empty")
	}
	if _, err := uuid.Parse(scanID); err != nil {
		return fmt.Errorf("invalid scan ID format")
	}
	return nil
}

// ValidateURLInput only checks size; normalization decides validity.
func ValidateURLInput(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("url cannot be empty")
	}
	if len(raw) > maxURLBytes {
		return fmt.Errorf("url longer than %d bytes", maxURLBytes)
	}
	return nil
}

// ValidateScanKey bounds the normalized key; escaping can make it longer than the input.
func ValidateScanKey(key string) error {
	if len(key) > maxScanKeyBytes {
		return fmt.Errorf("normalized url longer than %d bytes", maxScanKeyBytes)
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// SanitizeFilename keeps only the base name of an uploaded file, for display.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = SanitizeString(filepath.Base(name))
	if name == "." || name == "/" || name == "" {
		return "upload.bin"
	}
	for len(name) > maxFilenameBytes {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
