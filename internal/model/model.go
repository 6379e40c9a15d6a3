// Package model holds the normalized data shapes every source maps into.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RawChapter is one entry of a site's chapter feed, before consolidation.
// Tokens are kept verbatim; Number is not guaranteed to be numeric.
type RawChapter struct {
	Title     string
	Volume    string
	Number    string
	Locale    string
	Scanlator string
	Date      string
	URL       string
}

// Chapter is a consolidated chapter. Number is its 1-based position in Branch.
type Chapter struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Number     int       `json:"number"`
	Volume     string    `json:"volume,omitempty"`
	Token      string    `json:"token"`
	Branch     string    `json:"branch"`
	Scanlator  string    `json:"scanlator,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
	URL        string    `json:"url"`
	Source     string    `json:"source,omitempty"`
}

type Page struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Preview string `json:"preview,omitempty"`
	Referer string `json:"referer,omitempty"`
}

type Manga struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Cover  string `json:"cover,omitempty"`
	Source string `json:"source"`
}

type Details struct {
	Manga
	AltTitles   []string `json:"alt_titles,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status,omitempty"`
	Tags        []Tag    `json:"tags,omitempty"`
}

type Tag struct {
	Key    string `json:"key"`
	Title  string `json:"title"`
	Source string `json:"source"`
}

// StableID derives an identifier that stays the same across runs for the
// same source URL.
func StableID(rawURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.TrimSpace(rawURL))).String()
}
