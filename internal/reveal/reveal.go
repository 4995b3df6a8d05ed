// Package reveal tracks which masked secrets a view currently shows in clear text.
package reveal

import (
	"errors"
	"strings"
	"sync"
)

const (
	maskRun  = "••••••••••••"
	tailMask = "••••••••"
)

var ErrInvalidFieldKey = errors.New("invalid field key")

// Set holds per-field visibility for one view. Every field starts hidden.
type Set struct {
	mu       sync.Mutex
	revealed map[string]bool
}

func NewSet() *Set {
	return &Set{revealed: make(map[string]bool)}
}

// Toggle flips the visibility of fieldKey and returns the new state.
func (s *Set) Toggle(fieldKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := !s.revealed[fieldKey]
	if next {
		s.revealed[fieldKey] = true
	} else {
		delete(s.revealed, fieldKey)
	}
	return next
}

func (s *Set) Revealed(fieldKey string) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revealed[fieldKey]
}

// Reset hides every field again.
func (s *Set) Reset() {
	s.mu.Lock()
	s.revealed = make(map[string]bool)
	s.mu.Unlock()
}

// Show returns value when fieldKey is revealed and its mask otherwise.
func (s *Set) Show(fieldKey, value string) string {
	if s.Revealed(fieldKey) {
		return value
	}
	return Mask(value)
}

// ShowTail is Show for identifiers whose last n characters stay visible while hidden.
func (s *Set) ShowTail(fieldKey, value string, n int) string {
	if s.Revealed(fieldKey) {
		return value
	}
	return MaskTail(value, n)
}

// Mask hides a secret behind a fixed-width bullet run so its length is not leaked.
func Mask(value string) string {
	if value == "" {
		return ""
	}
	return maskRun
}

// MaskTail keeps the last n characters of value behind a bullet prefix, e.g.
// "••••••••7890". Values no longer than n are masked entirely.
func MaskTail(value string, n int) string {
	runes := []rune(value)
	if n <= 0 || len(runes) <= n {
		return Mask(value)
	}
	return tailMask + string(runes[len(runes)-n:])
}

// FieldKey builds the identifier of one masked value, e.g. "account:a1:password".
func FieldKey(kind, id, field string) string {
	return kind + ":" + id + ":" + field
}

// ParseFieldKey splits a key built by FieldKey.
func ParseFieldKey(key string) (kind, id, field string, err error) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", ErrInvalidFieldKey
	}
	return parts[0], parts[1], parts[2], nil
}
