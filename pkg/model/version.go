package model

import "github.com/cperrin88/idxsync/pkg/patch"

// VersionDenyList holds identity keys never accepted in a version diff.
var VersionDenyList = []string{"packageName", "repoId", "versionId"}

// Version is one released build of a package.
type Version struct {
	RepoID      int64  `json:"-"`
	PackageName string `json:"-"`
	VersionID   string `json:"-"`

	Added           int64                    `json:"added"`
	File            File                     `json:"file"`
	Src             *File                    `json:"src,omitempty"`
	Manifest        Manifest                 `json:"manifest"`
	ReleaseChannels []string                 `json:"releaseChannels,omitempty"`
	AntiFeatures    map[string]LocalizedText `json:"antiFeatures,omitempty"`
	WhatsNew        LocalizedText            `json:"whatsNew,omitempty"`

	// IsCompatible is derived from Manifest on this device and never patched.
	IsCompatible bool `json:"-"`
}

func (v *Version) PatchFields() []patch.Field {
	return []patch.Field{
		patch.Int64("added", &v.Added),
		patch.Nested("file", &v.File),
		patch.NullableNested("src", &v.Src),
		patch.Nested("manifest", &v.Manifest),
		patch.Strings("releaseChannels", &v.ReleaseChannels),
		patch.TextMap("antiFeatures", &v.AntiFeatures),
		patch.Text("whatsNew", &v.WhatsNew),
	}
}

// Validate rejects versions created from a diff without a file.
func (v *Version) Validate() error {
	return v.File.Validate()
}

// Manifest carries the build facts needed to decide compatibility.
type Manifest struct {
	VersionName   string   `json:"versionName"`
	VersionCode   int64    `json:"versionCode"`
	UsesSdk       *UsesSdk `json:"usesSdk,omitempty"`
	MaxSdkVersion *int32   `json:"maxSdkVersion,omitempty"`
	Signer        *Signer  `json:"signer,omitempty"`
	Nativecode    []string `json:"nativecode,omitempty"`
	Features      []string `json:"features,omitempty"`
}

func (m *Manifest) PatchFields() []patch.Field {
	return []patch.Field{
		patch.String("versionName", &m.VersionName),
		patch.Int64("versionCode", &m.VersionCode),
		patch.NullableNested("usesSdk", &m.UsesSdk),
		patch.NullableInt32("maxSdkVersion", &m.MaxSdkVersion),
		patch.NullableNested("signer", &m.Signer),
		patch.Strings("nativecode", &m.Nativecode),
		patch.Strings("features", &m.Features),
	}
}

type UsesSdk struct {
	MinSdkVersion    int32 `json:"minSdkVersion"`
	TargetSdkVersion int32 `json:"targetSdkVersion"`
}

func (u *UsesSdk) PatchFields() []patch.Field {
	return []patch.Field{
		patch.Int32("minSdkVersion", &u.MinSdkVersion),
		patch.Int32("targetSdkVersion", &u.TargetSdkVersion),
	}
}

// Signer lists the SHA-256 fingerprints of the certificates that signed the build.
type Signer struct {
	SHA256             []string `json:"sha256"`
	HasMultipleSigners bool     `json:"hasMultipleSigners,omitempty"`
}

func (s *Signer) PatchFields() []patch.Field {
	return []patch.Field{
		patch.Strings("sha256", &s.SHA256),
		patch.Bool("hasMultipleSigners", &s.HasMultipleSigners),
	}
}
