// Package batch reads the plain-text input of a bulk translation run.
package batch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"codeberg.org/snonux/ynlb/internal/translation"
)

// ErrNotPlainText is returned for files that are not plain text
var ErrNotPlainText = errors.New("please upload a valid text file")

// sniffLen is the number of leading bytes checked for NUL
const sniffLen = 512

// ReadTextFile reads one translation item per line from a .txt file
func ReadTextFile(filename string) ([]string, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".txt") {
		return nil, fmt.Errorf("%s: %w", filepath.Base(filename), ErrNotPlainText)
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	if !IsPlainText(content) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(filename), ErrNotPlainText)
	}

	return Clean(splitLines(string(content))), nil
}

// ReadLines reads one translation item per line from r
func ReadLines(r io.Reader) ([]string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if !IsPlainText(content) {
		return nil, ErrNotPlainText
	}

	return Clean(splitLines(string(content))), nil
}

// IsPlainText reports whether content is UTF-8 text. Text that merely
// looks like markup or a document header is still text.
func IsPlainText(content []byte) bool {
	head := content
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	// A NUL byte in the head never appears in text files.
	if bytes.IndexByte(head, 0) >= 0 {
		return false
	}
	return utf8.Valid(content)
}

// Clean trims and NFC-normalises lines, drops blank ones and collapses
// duplicates keeping the first occurrence.
func Clean(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	var out []string

	for _, line := range lines {
		line = translation.Normalize(line)
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}

	return out
}

// splitLines splits a string by newlines
func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		lines = append(lines, strings.TrimSuffix(line, "\r"))
	}
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	if len(lines) == 0 {
		return nil
	}
	return lines
}
