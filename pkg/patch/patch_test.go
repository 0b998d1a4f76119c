package patch_test

import (
	"encoding/json"
	"testing"

	"github.com/cperrin88/idxsync/pkg/model"
	"github.com/cperrin88/idxsync/pkg/patch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obj(t *testing.T, s string) patch.Object {
	t.Helper()
	o, err := patch.ParseObject(json.RawMessage(s))
	require.NoError(t, err)
	return o
}

func ptr[T any](v T) *T { return &v }

func baseVersion() model.Version {
	return model.Version{
		RepoID:      1,
		PackageName: "org.example",
		VersionID:   "v1",
		Added:       100,
		File:        model.File{Name: "/app.apk", SHA256: ptr("aa"), Size: ptr(int64(10))},
		Src:         &model.File{Name: "/src.tar.gz"},
		Manifest: model.Manifest{
			VersionName: "1.0",
			VersionCode: 1,
			UsesSdk:     &model.UsesSdk{MinSdkVersion: 21, TargetSdkVersion: 30},
			Nativecode:  []string{"arm64-v8a"},
		},
		WhatsNew:     model.LocalizedText{"en-US": "fixes", "de": "Fehler"},
		AntiFeatures: map[string]model.LocalizedText{"Ads": {"en-US": "has ads"}},
		IsCompatible: true,
	}
}

func TestApplyChangesOnlyPatchedField(t *testing.T) {
	base := baseVersion()

	got, err := patch.Apply(base, obj(t, `{"added": 200}`))
	require.NoError(t, err)

	want := baseVersion()
	want.Added = 200
	assert.Equal(t, want, got)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	base := baseVersion()

	_, err := patch.Apply(base, obj(t, `{
		"whatsNew": {"de": null, "fr": "corrections"},
		"antiFeatures": {"Ads": {"de": "Werbung"}},
		"manifest": {"usesSdk": {"minSdkVersion": 24}, "nativecode": ["x86"]},
		"src": {"size": 5}
	}`))
	require.NoError(t, err)

	assert.Equal(t, baseVersion(), base)
}

func TestApplyNullClearsNullableField(t *testing.T) {
	got, err := patch.Apply(baseVersion(), obj(t, `{"src": null, "whatsNew": null, "releaseChannels": null}`))
	require.NoError(t, err)

	assert.Nil(t, got.Src)
	assert.Nil(t, got.WhatsNew)
	assert.Nil(t, got.ReleaseChannels)
	assert.Equal(t, "/app.apk", got.File.Name)
}

func TestApplyNullOnRequiredFieldFails(t *testing.T) {
	_, err := patch.Apply(baseVersion(), obj(t, `{"file": null}`))

	require.ErrorIs(t, err, patch.ErrNotNullable)
	assert.EqualError(t, err, "not nullable: file")
}

func TestApplyNestedPreservesSiblings(t *testing.T) {
	got, err := patch.Apply(baseVersion(), obj(t, `{"manifest": {"usesSdk": {"minSdkVersion": 23}}}`))
	require.NoError(t, err)

	assert.Equal(t, int32(23), got.Manifest.UsesSdk.MinSdkVersion)
	assert.Equal(t, int32(30), got.Manifest.UsesSdk.TargetSdkVersion)
	assert.Equal(t, "1.0", got.Manifest.VersionName)
	assert.Equal(t, []string{"arm64-v8a"}, got.Manifest.Nativecode)
}

func TestApplyLocalizedTextPerLocale(t *testing.T) {
	got, err := patch.Apply(baseVersion(), obj(t, `{"whatsNew": {"de": null, "fr": "corrections"}}`))
	require.NoError(t, err)

	assert.Equal(t, model.LocalizedText{"en-US": "fixes", "fr": "corrections"}, got.WhatsNew)
}

func TestApplyTextMap(t *testing.T) {
	got, err := patch.Apply(baseVersion(), obj(t, `{"antiFeatures": {"Ads": {"de": "Werbung"}, "Tracking": {"en-US": "tracks"}}}`))
	require.NoError(t, err)

	assert.Equal(t, model.LocalizedText{"en-US": "has ads", "de": "Werbung"}, got.AntiFeatures["Ads"])
	assert.Equal(t, model.LocalizedText{"en-US": "tracks"}, got.AntiFeatures["Tracking"])

	got, err = patch.Apply(got, obj(t, `{"antiFeatures": {"Ads": null}}`))
	require.NoError(t, err)
	assert.NotContains(t, got.AntiFeatures, "Ads")
}

func TestApplyTypeMismatch(t *testing.T) {
	tests := []struct {
		name  string
		patch string
		msg   string
	}{
		{name: "long", patch: `{"added": "soon"}`, msg: "added no long"},
		{name: "string", patch: `{"manifest": {"versionName": 2}}`, msg: "manifest.versionName no string"},
		{name: "dict", patch: `{"manifest": []}`, msg: "manifest no dict"},
		{name: "array", patch: `{"releaseChannels": "beta"}`, msg: "releaseChannels no array"},
		{name: "array element", patch: `{"releaseChannels": [1]}`, msg: "releaseChannels no array of string"},
		{name: "int", patch: `{"manifest": {"usesSdk": {"minSdkVersion": 1.5}}}`, msg: "manifest.usesSdk.minSdkVersion no int"},
		{name: "bool", patch: `{"manifest": {"signer": {"sha256": [], "hasMultipleSigners": "yes"}}}`, msg: "manifest.signer.hasMultipleSigners no bool"},
		{name: "locale", patch: `{"whatsNew": {"en-US": 1}}`, msg: "whatsNew.en-US no string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := patch.Apply(baseVersion(), obj(t, tt.patch))
			require.ErrorIs(t, err, patch.ErrWrongType)
			assert.EqualError(t, err, tt.msg)
		})
	}
}

func TestApplyIntOverflow(t *testing.T) {
	_, err := patch.Apply(baseVersion(), obj(t, `{"manifest": {"usesSdk": {"minSdkVersion": 2147483648}}}`))
	require.ErrorIs(t, err, patch.ErrOverflow)

	got, err := patch.Apply(baseVersion(), obj(t, `{"manifest": {"versionCode": 2147483648}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(2147483648), got.Manifest.VersionCode)
}

func TestApplyUnknownKeyFails(t *testing.T) {
	_, err := patch.Apply(baseVersion(), obj(t, `{"isCompatible": false}`))

	require.ErrorIs(t, err, patch.ErrNoMember)
	assert.EqualError(t, err, "no member for parameter isCompatible")
}

func TestApplyChecksAllKeysBeforeMutation(t *testing.T) {
	rec := baseVersion()

	err := patch.ApplyTo(&rec, obj(t, `{"added": 1, "zzz": 2}`))

	require.ErrorIs(t, err, patch.ErrNoMember)
	assert.Equal(t, int64(100), rec.Added)
}

func TestApplyToRequiresFieldTable(t *testing.T) {
	type plain struct{ Name string }

	err := patch.ApplyTo(&plain{}, obj(t, `{"Name": "x"}`))

	assert.ErrorIs(t, err, patch.ErrNoFieldTable)
}

func TestApplyNewNestedRecordMustValidate(t *testing.T) {
	v := baseVersion()
	v.Src = nil

	_, err := patch.Apply(v, obj(t, `{"src": {"size": 5}}`))
	require.ErrorIs(t, err, patch.ErrInvalidRecord)

	got, err := patch.Apply(v, obj(t, `{"src": {"name": "/src.zip", "size": 5}}`))
	require.NoError(t, err)
	assert.Equal(t, &model.File{Name: "/src.zip", Size: ptr(int64(5))}, got.Src)
}

func TestApplyObjectMap(t *testing.T) {
	repo := model.Repository{
		Address:   "https://example.org",
		Timestamp: 1,
		Icon:      model.LocalizedFiles{"en-US": {Name: "/icon.png", Size: ptr(int64(3))}},
	}

	got, err := patch.Apply(repo, obj(t, `{"icon": {"en-US": {"size": 4}, "de": {"name": "/de.png"}}}`))
	require.NoError(t, err)
	assert.Equal(t, model.File{Name: "/icon.png", Size: ptr(int64(4))}, got.Icon["en-US"])
	assert.Equal(t, model.File{Name: "/de.png"}, got.Icon["de"])
	assert.Equal(t, int64(3), *repo.Icon["en-US"].Size)

	_, err = patch.Apply(repo, obj(t, `{"icon": {"fr": {"size": 1}}}`))
	require.ErrorIs(t, err, patch.ErrInvalidRecord)

	got, err = patch.Apply(repo, obj(t, `{"icon": {"en-US": null}}`))
	require.NoError(t, err)
	assert.Empty(t, got.Icon)
}

func TestApplySkipsDelegatedKeys(t *testing.T) {
	meta := model.AppMetadata{PackageName: "org.example", Added: 1}

	got, err := patch.Apply(meta, obj(t, `{
		"lastUpdated": 7,
		"icon": {"en-US": {"name": "/i.png"}},
		"screenshots": null
	}`))
	require.NoError(t, err)

	assert.Equal(t, int64(7), got.LastUpdated)
	assert.Equal(t, "org.example", got.PackageName)
}

func TestCheckDenied(t *testing.T) {
	err := patch.CheckDenied(obj(t, `{"added": 1, "packageName": "evil"}`), model.AppMetadataDenyList...)
	require.ErrorIs(t, err, patch.ErrDenied)
	assert.EqualError(t, err, "denied key: packageName")

	assert.NoError(t, patch.CheckDenied(obj(t, `{"added": 1}`), model.VersionDenyList...))
}

func TestParseObject(t *testing.T) {
	o, err := patch.ParseObject(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Nil(t, o)

	o, err = patch.ParseObject(json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.NotNil(t, o)

	_, err = patch.ParseObject(json.RawMessage(`[1]`))
	assert.ErrorIs(t, err, patch.ErrWrongType)
}

func TestApplyNew(t *testing.T) {
	got, err := patch.ApplyNew("v2", model.Version{}, obj(t, `{
		"added": 2,
		"file": {"name": "/v2.apk"},
		"manifest": {"versionName": "2", "versionCode": 2, "maxSdkVersion": 33}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "/v2.apk", got.File.Name)
	assert.Equal(t, int32(33), *got.Manifest.MaxSdkVersion)

	_, err = patch.ApplyNew("v2", model.Version{}, obj(t, `{"added": 2}`))
	require.ErrorIs(t, err, patch.ErrInvalidRecord)
	assert.EqualError(t, err, "v2: invalid record: file name is empty")

	_, err = patch.ApplyNew("v2", model.Version{}, obj(t, `{"file": {"name": "/v2.apk"}, "bogusKey": 1}`))
	require.ErrorIs(t, err, patch.ErrNoMember)

	_, err = patch.ApplyNew("v2", model.Version{}, obj(t, `{"file": {"name": "/v2.apk"}, "manifest": {"maxSdkVersion": 4294967296}}`))
	require.ErrorIs(t, err, patch.ErrOverflow)
	assert.EqualError(t, err, "manifest.maxSdkVersion overflows int")
}
