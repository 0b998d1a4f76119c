package model

import "github.com/cperrin88/idxsync/pkg/patch"

// Keys of the repository section that are applied as separate tables.
const (
	KeyMirrors         = "mirrors"
	KeyAntiFeatures    = "antiFeatures"
	KeyCategories      = "categories"
	KeyReleaseChannels = "releaseChannels"
)

// Repository is the repository section of an index plus local identity.
type Repository struct {
	RepoID      int64          `json:"-"`
	Address     string         `json:"address"`
	WebBaseURL  *string        `json:"webBaseUrl,omitempty"`
	Name        LocalizedText  `json:"name,omitempty"`
	Icon        LocalizedFiles `json:"icon,omitempty"`
	Description LocalizedText  `json:"description,omitempty"`
	Timestamp   int64          `json:"timestamp"`
	// Certificate is the hex encoded DER certificate pinned for this repository.
	Certificate string `json:"-"`

	Mirrors         []Mirror             `json:"mirrors,omitempty"`
	AntiFeatures    map[string]Attribute `json:"antiFeatures,omitempty"`
	Categories      map[string]Attribute `json:"categories,omitempty"`
	ReleaseChannels map[string]Attribute `json:"releaseChannels,omitempty"`
}

// PatchFields covers the core repository row. Collections are delegated.
func (r *Repository) PatchFields() []patch.Field {
	return []patch.Field{
		patch.String("address", &r.Address),
		patch.NullableString("webBaseUrl", &r.WebBaseURL),
		patch.Text("name", &r.Name),
		patch.ObjectMap("icon", &r.Icon),
		patch.Text("description", &r.Description),
		patch.Int64("timestamp", &r.Timestamp),
		patch.Delegated(KeyMirrors),
		patch.Delegated(KeyAntiFeatures),
		patch.Delegated(KeyCategories),
		patch.Delegated(KeyReleaseChannels),
	}
}

// Attributes returns the attribute table for kind.
func (r *Repository) Attributes(kind AttributeKind) map[string]Attribute {
	switch kind {
	case AntiFeature:
		return r.AntiFeatures
	case Category:
		return r.Categories
	case ReleaseChannel:
		return r.ReleaseChannels
	}
	return nil
}

// SetAttribute adds a to the table of its kind.
func (r *Repository) SetAttribute(a Attribute) {
	var table *map[string]Attribute
	switch a.Kind {
	case AntiFeature:
		table = &r.AntiFeatures
	case Category:
		table = &r.Categories
	case ReleaseChannel:
		table = &r.ReleaseChannels
	default:
		return
	}
	if *table == nil {
		*table = map[string]Attribute{}
	}
	(*table)[a.ID] = a
}

// Bind stamps the local repository id onto the record and its attributes.
func (r *Repository) Bind(repoID int64) {
	r.RepoID = repoID
	for _, kind := range AttributeKinds {
		for id, a := range r.Attributes(kind) {
			a.RepoID, a.Kind, a.ID = repoID, kind, id
			r.Attributes(kind)[id] = a
		}
	}
}

// Mirror is an alternative address serving the same repository.
type Mirror struct {
	URL         string  `json:"url"`
	CountryCode *string `json:"countryCode,omitempty"`
}

// AttributeKind names one of the repository-level attribute tables.
type AttributeKind string

const (
	AntiFeature    AttributeKind = "antiFeature"
	Category       AttributeKind = "category"
	ReleaseChannel AttributeKind = "releaseChannel"
)

// AttributeKinds lists every attribute table in a fixed order.
var AttributeKinds = []AttributeKind{AntiFeature, Category, ReleaseChannel}

// Key returns the repository section key holding attributes of this kind.
func (k AttributeKind) Key() string {
	switch k {
	case AntiFeature:
		return KeyAntiFeatures
	case Category:
		return KeyCategories
	default:
		return KeyReleaseChannels
	}
}

// Attribute is an anti-feature, category or release channel declared by a repository.
type Attribute struct {
	RepoID      int64          `json:"-"`
	Kind        AttributeKind  `json:"-"`
	ID          string         `json:"-"`
	Icon        LocalizedFiles `json:"icon,omitempty"`
	Name        LocalizedText  `json:"name,omitempty"`
	Description LocalizedText  `json:"description,omitempty"`
}

func (a *Attribute) PatchFields() []patch.Field {
	return []patch.Field{
		patch.ObjectMap("icon", &a.Icon),
		patch.Text("name", &a.Name),
		patch.Text("description", &a.Description),
	}
}
