// Package model holds the records of a repository index. JSON tags are the
// index keys; identity fields that only exist locally are tagged "-".
package model

import (
	"errors"

	"github.com/cperrin88/idxsync/pkg/patch"
)

// LocalizedText maps a locale (e.g. "en-US") to a string.
type LocalizedText map[string]string

// Best returns the text for locale, falling back to en-US and then to any entry.
func (t LocalizedText) Best(locale string) string {
	if v, ok := t[locale]; ok {
		return v
	}
	if v, ok := t["en-US"]; ok {
		return v
	}
	for _, v := range t {
		return v
	}
	return ""
}

// File describes a downloadable file relative to the repository address.
type File struct {
	Name   string  `json:"name"`
	SHA256 *string `json:"sha256,omitempty"`
	Size   *int64  `json:"size,omitempty"`
}

func (f *File) PatchFields() []patch.Field {
	return []patch.Field{
		patch.String("name", &f.Name),
		patch.NullableString("sha256", &f.SHA256),
		patch.NullableInt64("size", &f.Size),
	}
}

// Validate rejects files created from a diff without a name.
func (f *File) Validate() error {
	if f.Name == "" {
		return errors.New("file name is empty")
	}
	return nil
}

// LocalizedFiles maps a locale to one file, e.g. an icon per locale.
type LocalizedFiles map[string]File

// LocalizedFileLists maps a locale to a list of files, e.g. screenshots.
type LocalizedFileLists map[string][]File
