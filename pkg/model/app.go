package model

import (
	"sort"

	"github.com/cperrin88/idxsync/pkg/patch"
)

// Localized file types stored per locale.
const (
	FileIcon           = "icon"
	FileFeatureGraphic = "featureGraphic"
	FilePromoGraphic   = "promoGraphic"
	FileTVBanner       = "tvBanner"
)

// Localized file list types stored per locale under "screenshots".
const (
	ScreenshotPhone     = "phone"
	ScreenshotSevenInch = "sevenInch"
	ScreenshotTenInch   = "tenInch"
	ScreenshotWear      = "wear"
	ScreenshotTV        = "tv"
)

// KeyScreenshots is the metadata key holding the screenshot lists.
const KeyScreenshots = "screenshots"

var (
	// FileTypes lists the single-file graphic types of package metadata.
	FileTypes = []string{FileIcon, FileFeatureGraphic, FilePromoGraphic, FileTVBanner}
	// ScreenshotTypes lists the screenshot list types.
	ScreenshotTypes = []string{ScreenshotPhone, ScreenshotSevenInch, ScreenshotTenInch, ScreenshotWear, ScreenshotTV}

	// AppMetadataDenyList holds identity keys never accepted in a metadata diff.
	AppMetadataDenyList = []string{"packageName", "repoId"}
	// LocalizedFileDenyList holds identity keys never accepted in a localized file diff.
	LocalizedFileDenyList = []string{"packageName", "repoId", "type"}
)

// Package is one entry of the index "packages" object.
type Package struct {
	Metadata PackageMetadata    `json:"metadata"`
	Versions map[string]Version `json:"versions,omitempty"`
}

// PackageMetadata is the wire form of package metadata including graphics.
type PackageMetadata struct {
	AppMetadata

	Icon           LocalizedFiles `json:"icon,omitempty"`
	FeatureGraphic LocalizedFiles `json:"featureGraphic,omitempty"`
	PromoGraphic   LocalizedFiles `json:"promoGraphic,omitempty"`
	TVBanner       LocalizedFiles `json:"tvBanner,omitempty"`
	Screenshots    *Screenshots   `json:"screenshots,omitempty"`
}

// Screenshots groups the per-locale screenshot lists by device class.
type Screenshots struct {
	Phone     LocalizedFileLists `json:"phone,omitempty"`
	SevenInch LocalizedFileLists `json:"sevenInch,omitempty"`
	TenInch   LocalizedFileLists `json:"tenInch,omitempty"`
	Wear      LocalizedFileLists `json:"wear,omitempty"`
	TV        LocalizedFileLists `json:"tv,omitempty"`
}

func (s *Screenshots) byType(t string) LocalizedFileLists {
	switch t {
	case ScreenshotPhone:
		return s.Phone
	case ScreenshotSevenInch:
		return s.SevenInch
	case ScreenshotTenInch:
		return s.TenInch
	case ScreenshotWear:
		return s.Wear
	case ScreenshotTV:
		return s.TV
	}
	return nil
}

func (m *PackageMetadata) filesByType(t string) LocalizedFiles {
	switch t {
	case FileIcon:
		return m.Icon
	case FileFeatureGraphic:
		return m.FeatureGraphic
	case FilePromoGraphic:
		return m.PromoGraphic
	case FileTVBanner:
		return m.TVBanner
	}
	return nil
}

// LocalizedFiles flattens the graphics into storage rows, sorted by type and locale.
func (m *PackageMetadata) LocalizedFiles() []LocalizedFile {
	var rows []LocalizedFile
	for _, t := range FileTypes {
		files := m.filesByType(t)
		for _, locale := range sortedKeys(files) {
			rows = append(rows, LocalizedFile{
				RepoID:      m.RepoID,
				PackageName: m.PackageName,
				Type:        t,
				Locale:      locale,
				File:        files[locale],
			})
		}
	}
	return rows
}

// LocalizedFileLists flattens the screenshots into storage rows, sorted by type and locale.
func (m *PackageMetadata) LocalizedFileLists() []LocalizedFileList {
	if m.Screenshots == nil {
		return nil
	}
	var rows []LocalizedFileList
	for _, t := range ScreenshotTypes {
		lists := m.Screenshots.byType(t)
		for _, locale := range sortedKeys(lists) {
			rows = append(rows, LocalizedFileList{
				RepoID:      m.RepoID,
				PackageName: m.PackageName,
				Type:        t,
				Locale:      locale,
				Files:       lists[locale],
			})
		}
	}
	return rows
}

// AppMetadata is the stored metadata row of a package.
type AppMetadata struct {
	RepoID      int64  `json:"-"`
	PackageName string `json:"-"`

	Added       int64         `json:"added"`
	LastUpdated int64         `json:"lastUpdated"`
	Name        LocalizedText `json:"name,omitempty"`
	Summary     LocalizedText `json:"summary,omitempty"`
	Description LocalizedText `json:"description,omitempty"`

	WebSite         *string  `json:"webSite,omitempty"`
	Changelog       *string  `json:"changelog,omitempty"`
	License         *string  `json:"license,omitempty"`
	SourceCode      *string  `json:"sourceCode,omitempty"`
	IssueTracker    *string  `json:"issueTracker,omitempty"`
	Translation     *string  `json:"translation,omitempty"`
	PreferredSigner *string  `json:"preferredSigner,omitempty"`
	Categories      []string `json:"categories,omitempty"`

	AuthorName    *string `json:"authorName,omitempty"`
	AuthorEmail   *string `json:"authorEmail,omitempty"`
	AuthorWebSite *string `json:"authorWebSite,omitempty"`
	AuthorPhone   *string `json:"authorPhone,omitempty"`

	Donate         []string      `json:"donate,omitempty"`
	Liberapay      *string       `json:"liberapay,omitempty"`
	OpenCollective *string       `json:"openCollective,omitempty"`
	Bitcoin        *string       `json:"bitcoin,omitempty"`
	Litecoin       *string       `json:"litecoin,omitempty"`
	Video          LocalizedText `json:"video,omitempty"`
}

// PatchFields covers the metadata row. Graphics and screenshots live in their
// own tables and are delegated.
func (a *AppMetadata) PatchFields() []patch.Field {
	return []patch.Field{
		patch.Int64("added", &a.Added),
		patch.Int64("lastUpdated", &a.LastUpdated),
		patch.Text("name", &a.Name),
		patch.Text("summary", &a.Summary),
		patch.Text("description", &a.Description),
		patch.NullableString("webSite", &a.WebSite),
		patch.NullableString("changelog", &a.Changelog),
		patch.NullableString("license", &a.License),
		patch.NullableString("sourceCode", &a.SourceCode),
		patch.NullableString("issueTracker", &a.IssueTracker),
		patch.NullableString("translation", &a.Translation),
		patch.NullableString("preferredSigner", &a.PreferredSigner),
		patch.Strings("categories", &a.Categories),
		patch.NullableString("authorName", &a.AuthorName),
		patch.NullableString("authorEmail", &a.AuthorEmail),
		patch.NullableString("authorWebSite", &a.AuthorWebSite),
		patch.NullableString("authorPhone", &a.AuthorPhone),
		patch.Strings("donate", &a.Donate),
		patch.NullableString("liberapay", &a.Liberapay),
		patch.NullableString("openCollective", &a.OpenCollective),
		patch.NullableString("bitcoin", &a.Bitcoin),
		patch.NullableString("litecoin", &a.Litecoin),
		patch.Text("video", &a.Video),
		patch.Delegated(FileIcon),
		patch.Delegated(FileFeatureGraphic),
		patch.Delegated(FilePromoGraphic),
		patch.Delegated(FileTVBanner),
		patch.Delegated(KeyScreenshots),
	}
}

// LocalizedFile is one stored graphic of a package for one locale.
type LocalizedFile struct {
	RepoID      int64
	PackageName string
	Type        string
	Locale      string
	File
}

// ValidNewLocalizedFile reports whether a file created from a diff is complete.
func ValidNewLocalizedFile(f LocalizedFile) bool {
	return f.Name != ""
}

// LocalizedFileList is one stored screenshot list of a package for one locale.
type LocalizedFileList struct {
	RepoID      int64
	PackageName string
	Type        string
	Locale      string
	Files       []File
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
