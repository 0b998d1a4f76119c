package database_test

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/cperrin88/idxsync/pkg/database"
	pkgerrors "github.com/cperrin88/idxsync/pkg/errors"
	"github.com/cperrin88/idxsync/pkg/index"
	"github.com/cperrin88/idxsync/pkg/model"
	"github.com/cperrin88/idxsync/pkg/patch"
	"github.com/cperrin88/idxsync/pkg/repository"
	"github.com/cperrin88/idxsync/pkg/signing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const oldIndex = `{
  "repo": {
    "address": "https://example.org/repo",
    "timestamp": 100,
    "name": {"en-US": "Example"},
    "mirrors": [{"url": "https://m1.example.org/repo"}],
    "categories": {"Games": {"name": {"en-US": "Games"}}, "Tools": {"name": {"en-US": "Tools"}}}
  },
  "packages": {
    "org.example.kept": {
      "metadata": {
        "added": 1, "lastUpdated": 1,
        "name": {"en-US": "Kept", "de": "Behalten"},
        "summary": {"en-US": "Old"},
        "icon": {"en-US": {"name": "/kept.png"}},
        "featureGraphic": {"en-US": {"name": "/feature.png", "sha256": "aa", "size": 10}},
        "screenshots": {"phone": {"en-US": [{"name": "/s1.png"}]}, "wear": {"en-US": [{"name": "/w1.png"}]}}
      },
      "versions": {
        "v1": {"added": 1, "file": {"name": "/kept-1.apk"}, "manifest": {"versionName": "1", "versionCode": 1}}
      }
    },
    "org.example.removed": {
      "metadata": {"added": 1, "lastUpdated": 1, "name": {"en-US": "Removed"}},
      "versions": {
        "r1": {"added": 1, "file": {"name": "/removed.apk"}, "manifest": {"versionName": "1", "versionCode": 1}}
      }
    }
  }
}`

const newIndex = `{
  "repo": {
    "address": "https://example.org/repo",
    "timestamp": 200,
    "name": {"en-US": "Example"},
    "categories": {"Games": {"name": {"en-US": "Games!"}}}
  },
  "packages": {
    "org.example.kept": {
      "metadata": {
        "added": 1, "lastUpdated": 2,
        "name": {"en-US": "Kept"},
        "icon": {"en-US": {"name": "/kept-2.png"}, "de": {"name": "/kept-de.png"}},
        "promoGraphic": {"de": {"name": "/promo.png"}},
        "screenshots": {"phone": {"en-US": [{"name": "/s2.png"}, {"name": "/s3.png"}]}, "tenInch": {"de": [{"name": "/t1.png"}]}}
      },
      "versions": {
        "v1": {"added": 1, "file": {"name": "/kept-1.apk"}, "manifest": {"versionName": "1", "versionCode": 1}},
        "v2": {"added": 2, "file": {"name": "/kept-2.apk"}, "manifest": {"versionName": "2", "versionCode": 2, "usesSdk": {"minSdkVersion": 30, "targetSdkVersion": 33}}}
      }
    },
    "org.example.added": {
      "metadata": {
        "added": 2, "lastUpdated": 2,
        "name": {"en-US": "Added"},
        "icon": {"en-US": {"name": "/added.png", "size": 4}},
        "screenshots": {"phone": {"en-US": [{"name": "/a1.png"}]}}
      },
      "versions": {
        "a1": {"added": 2, "file": {"name": "/added.apk"}, "manifest": {"versionName": "1", "versionCode": 1, "nativecode": ["x86"]}}
      }
    }
  }
}`

type fixture struct {
	t      *testing.T
	db     *database.DB
	syncer *repository.Syncer
	signer *signing.Signer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "example.org"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &fixture{
		t:      t,
		db:     db,
		syncer: repository.NewSyncer(db, repository.WithCompatibility(repository.DeviceChecker{SDK: 29, ABIs: []string{"arm64-v8a"}})),
		signer: signing.NewSigner(cert, key),
	}
}

func (f *fixture) addRepository(address string) int64 {
	f.t.Helper()
	id, err := f.db.AddRepository(context.Background(), address)
	require.NoError(f.t, err)
	return id
}

func (f *fixture) sync(repoID int64, mode repository.Mode, payload []byte) (repository.Result, error) {
	f.t.Helper()
	var buf bytes.Buffer
	require.NoError(f.t, f.signer.Sign(&buf, signing.DefaultPayloadName, payload))
	return f.syncer.Sync(context.Background(), repository.Request{
		RepoID:    repoID,
		Mode:      mode,
		Container: bytes.NewReader(buf.Bytes()),
		Size:      int64(buf.Len()),
	})
}

// snapshot collects everything stored for a repository with local ids cleared.
// Graphics and screenshots are keyed by package, then type, then locale.
type snapshot struct {
	Repo        model.Repository
	Apps        []model.AppMetadata
	Versions    map[string][]model.Version
	Files       map[string]map[string]map[string]model.LocalizedFile
	Screenshots map[string]map[string]map[string]model.LocalizedFileList
}

func (f *fixture) snapshot(repoID int64) snapshot {
	f.t.Helper()
	ctx := context.Background()

	repo, err := f.db.Repository(ctx, repoID)
	require.NoError(f.t, err)
	repo.RepoID = 0
	for _, kind := range model.AttributeKinds {
		for id, attr := range repo.Attributes(kind) {
			attr.RepoID = 0
			repo.Attributes(kind)[id] = attr
		}
	}

	apps, err := f.db.Apps(ctx, repoID)
	require.NoError(f.t, err)
	s := snapshot{
		Repo:        *repo,
		Versions:    map[string][]model.Version{},
		Files:       map[string]map[string]map[string]model.LocalizedFile{},
		Screenshots: map[string]map[string]map[string]model.LocalizedFileList{},
	}
	for _, app := range apps {
		app.RepoID = 0
		s.Apps = append(s.Apps, app)

		versions, err := f.db.Versions(ctx, repoID, app.PackageName)
		require.NoError(f.t, err)
		for i := range versions {
			versions[i].RepoID = 0
		}
		s.Versions[app.PackageName] = versions

		s.Files[app.PackageName] = map[string]map[string]model.LocalizedFile{}
		for _, fileType := range model.FileTypes {
			files, err := f.db.LocalizedFiles(ctx, repoID, app.PackageName, fileType)
			require.NoError(f.t, err)
			for locale, file := range files {
				file.RepoID = 0
				files[locale] = file
			}
			s.Files[app.PackageName][fileType] = files
		}

		s.Screenshots[app.PackageName] = map[string]map[string]model.LocalizedFileList{}
		for _, listType := range model.ScreenshotTypes {
			lists, err := f.db.LocalizedFileLists(ctx, repoID, app.PackageName, listType)
			require.NoError(f.t, err)
			for locale, list := range lists {
				list.RepoID = 0
				lists[locale] = list
			}
			s.Screenshots[app.PackageName][listType] = lists
		}
	}
	return s
}

func TestSync_DiffMatchesFullIndex(t *testing.T) {
	f := newFixture(t)
	patched := f.addRepository("https://example.org/repo")
	fresh := f.addRepository("https://mirror.example.org/repo")

	result, err := f.sync(patched, repository.ModeFull, []byte(oldIndex))
	require.NoError(t, err)
	assert.Equal(t, repository.ResultProcessed, result)

	diff, err := index.CreateDiff([]byte(oldIndex), []byte(newIndex))
	require.NoError(t, err)
	result, err = f.sync(patched, repository.ModeDiff, diff)
	require.NoError(t, err)
	assert.Equal(t, repository.ResultProcessed, result)

	result, err = f.sync(fresh, repository.ModeFull, []byte(newIndex))
	require.NoError(t, err)
	assert.Equal(t, repository.ResultProcessed, result)

	got := f.snapshot(patched)
	assert.Equal(t, f.snapshot(fresh), got)

	assert.Equal(t, int64(200), got.Repo.Timestamp)
	assert.Empty(t, got.Repo.Mirrors)
	assert.Equal(t, "Games!", got.Repo.Categories["Games"].Name["en-US"])
	assert.NotContains(t, got.Repo.Categories, "Tools")
	require.Len(t, got.Apps, 2)
	assert.Equal(t, "org.example.added", got.Apps[0].PackageName)
	assert.Nil(t, got.Apps[1].Summary)
	kept := got.Files["org.example.kept"]
	assert.Equal(t, "/kept-de.png", kept[model.FileIcon]["de"].Name)
	assert.Empty(t, kept[model.FileFeatureGraphic])
	assert.Equal(t, "/promo.png", kept[model.FilePromoGraphic]["de"].Name)
	shots := got.Screenshots["org.example.kept"]
	assert.Equal(t, []model.File{{Name: "/s2.png"}, {Name: "/s3.png"}}, shots[model.ScreenshotPhone]["en-US"].Files)
	assert.Equal(t, []model.File{{Name: "/t1.png"}}, shots[model.ScreenshotTenInch]["de"].Files)
	assert.Empty(t, shots[model.ScreenshotWear])
	assert.Equal(t, "/added.png", got.Files["org.example.added"][model.FileIcon]["en-US"].Name)
	assert.Equal(t, []model.File{{Name: "/a1.png"}}, got.Screenshots["org.example.added"][model.ScreenshotPhone]["en-US"].Files)
	require.Len(t, got.Versions["org.example.kept"], 2)
	assert.False(t, got.Versions["org.example.kept"][0].IsCompatible)
	assert.True(t, got.Versions["org.example.kept"][1].IsCompatible)
	assert.False(t, got.Versions["org.example.added"][0].IsCompatible)
}

func TestSync_FullIndexReplacesEverything(t *testing.T) {
	f := newFixture(t)
	id := f.addRepository("https://example.org/repo")

	_, err := f.sync(id, repository.ModeFull, []byte(oldIndex))
	require.NoError(t, err)
	_, err = f.sync(id, repository.ModeFull, []byte(newIndex))
	require.NoError(t, err)

	apps, err := f.db.Apps(context.Background(), id)
	require.NoError(t, err)
	var names []string
	for _, app := range apps {
		names = append(names, app.PackageName)
	}
	assert.Equal(t, []string{"org.example.added", "org.example.kept"}, names)
}

func TestSync_FailedSyncLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t)
	id := f.addRepository("https://example.org/repo")
	_, err := f.sync(id, repository.ModeFull, []byte(oldIndex))
	require.NoError(t, err)
	before := f.snapshot(id)

	// The broken package comes after valid ones that were already applied.
	broken := []byte(`{"base": 100, "packages": {"org.example.kept": {"metadata": {"lastUpdated": 5}}, "org.example.zzz": {"metadata": {"added": "soon"}}}, "repo": {"timestamp": 300}}`)
	_, err = f.sync(id, repository.ModeDiff, broken)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.KindStructural, pkgerrors.KindOf(err))
	assert.Equal(t, before, f.snapshot(id))

	stale := []byte(`{"base": 50, "repo": {"timestamp": 300}}`)
	_, err = f.sync(id, repository.ModeDiff, stale)
	assert.ErrorIs(t, err, repository.ErrDiffBaseMismatch)
	assert.Equal(t, before, f.snapshot(id))

	result, err := f.sync(id, repository.ModeFull, []byte(oldIndex))
	require.NoError(t, err)
	assert.Equal(t, repository.ResultUnchanged, result)
	assert.Equal(t, before, f.snapshot(id))
}

func TestSync_PinsSignerCertificate(t *testing.T) {
	f := newFixture(t)
	id := f.addRepository("https://example.org/repo")
	_, err := f.sync(id, repository.ModeFull, []byte(oldIndex))
	require.NoError(t, err)

	repo, err := f.db.Repository(context.Background(), id)
	require.NoError(t, err)
	assert.NotEmpty(t, repo.Certificate)

	f.signer = newFixture(t).signer
	_, err = f.sync(id, repository.ModeFull, []byte(newIndex))
	require.Error(t, err)
	assert.ErrorIs(t, err, signing.ErrCertificateMismatch)
}

func TestSync_DiffBaseMayComeLast(t *testing.T) {
	f := newFixture(t)
	id := f.addRepository("https://example.org/repo")
	_, err := f.sync(id, repository.ModeFull, []byte(oldIndex))
	require.NoError(t, err)
	before := f.snapshot(id)

	mismatch := []byte(`{"packages": {"org.example.kept": {"metadata": {"lastUpdated": 5}}}, "repo": {"timestamp": 300}, "base": 50}`)
	_, err = f.sync(id, repository.ModeDiff, mismatch)
	assert.ErrorIs(t, err, repository.ErrDiffBaseMismatch)
	assert.Equal(t, before, f.snapshot(id))

	late := []byte(`{"packages": {"org.example.kept": {"metadata": {"lastUpdated": 5}}}, "repo": {"timestamp": 300}, "base": 100}`)
	result, err := f.sync(id, repository.ModeDiff, late)
	require.NoError(t, err)
	assert.Equal(t, repository.ResultProcessed, result)

	got := f.snapshot(id)
	assert.Equal(t, int64(300), got.Repo.Timestamp)
	assert.Equal(t, int64(5), got.Apps[0].LastUpdated)
}

func TestSync_NewRecordsAreStrictlyTyped(t *testing.T) {
	f := newFixture(t)
	id := f.addRepository("https://example.org/repo")
	_, err := f.sync(id, repository.ModeFull, []byte(oldIndex))
	require.NoError(t, err)
	before := f.snapshot(id)

	tests := []struct {
		name    string
		payload string
		wantErr error
	}{
		{
			name:    "existing version overflow",
			payload: `{"base": 100, "repo": {"timestamp": 300}, "packages": {"org.example.kept": {"versions": {"v1": {"manifest": {"usesSdk": {"minSdkVersion": 4294967296, "targetSdkVersion": 1}}}}}}}`,
			wantErr: patch.ErrOverflow,
		},
		{
			name:    "new version overflow",
			payload: `{"base": 100, "repo": {"timestamp": 300}, "packages": {"org.example.kept": {"versions": {"v2": {"file": {"name": "/v2.apk"}, "manifest": {"usesSdk": {"minSdkVersion": 4294967296, "targetSdkVersion": 1}}}}}}}`,
			wantErr: patch.ErrOverflow,
		},
		{
			name:    "new version unknown key",
			payload: `{"base": 100, "repo": {"timestamp": 300}, "packages": {"org.example.kept": {"versions": {"v2": {"file": {"name": "/v2.apk"}, "bogusKey": 1}}}}}`,
			wantErr: patch.ErrNoMember,
		},
		{
			name:    "new package unknown key",
			payload: `{"base": 100, "repo": {"timestamp": 300}, "packages": {"org.example.new": {"metadata": {"added": 3, "bogusKey": 1}}}}`,
			wantErr: patch.ErrNoMember,
		},
		{
			name:    "new screenshot type unknown",
			payload: `{"base": 100, "repo": {"timestamp": 300}, "packages": {"org.example.new": {"metadata": {"added": 3, "screenshots": {"watch": {}}}}}}`,
			wantErr: patch.ErrNoMember,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.sync(id, repository.ModeDiff, []byte(tt.payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, pkgerrors.KindStructural, pkgerrors.KindOf(err))
			assert.Equal(t, before, f.snapshot(id))
		})
	}

	t.Run("full index overflow", func(t *testing.T) {
		other := f.addRepository("https://other.example.org/repo")
		full := `{"repo": {"address": "https://other.example.org/repo", "timestamp": 1}, "packages": {"org.example.app": {"metadata": {"added": 1, "lastUpdated": 1}, "versions": {"v1": {"added": 1, "file": {"name": "/a.apk"}, "manifest": {"versionName": "1", "versionCode": 1, "maxSdkVersion": 4294967296}}}}}}`
		_, err := f.sync(other, repository.ModeFull, []byte(full))
		require.Error(t, err)
		assert.Equal(t, pkgerrors.KindStructural, pkgerrors.KindOf(err))
	})
}
