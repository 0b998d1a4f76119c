package database

import (
	"context"
	"path/filepath"
	"testing"

	pkgerrors "github.com/cperrin88/idxsync/pkg/errors"
	"github.com/cperrin88/idxsync/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idxsync.db")

	db, err := Open(path)
	require.NoError(t, err)
	id, err := db.AddRepository(context.Background(), "https://example.org/repo")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	repo, err := db.Repository(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/repo", repo.Address)
}

func TestRepositoryManagement(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.AddRepository(ctx, "  ")
	assert.ErrorIs(t, err, pkgerrors.ErrEmptyAddress)

	first, err := db.AddRepository(ctx, "https://example.org/repo")
	require.NoError(t, err)
	second, err := db.AddRepository(ctx, "https://example.com/fdroid/repo")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = db.AddRepository(ctx, "https://example.org/repo")
	assert.ErrorIs(t, err, pkgerrors.ErrRepositoryExists)

	repos, err := db.Repositories(ctx)
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, first, repos[0].RepoID)
	assert.Equal(t, "https://example.com/fdroid/repo", repos[1].Address)
	assert.Zero(t, repos[1].Timestamp)

	require.NoError(t, db.RemoveRepository(ctx, first))
	assert.ErrorIs(t, db.RemoveRepository(ctx, first), pkgerrors.ErrRepositoryNotFound)
	_, err = db.Repository(ctx, first)
	assert.ErrorIs(t, err, pkgerrors.ErrRepositoryNotFound)
}

func TestTx_RepositoryRow(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	id, err := db.AddRepository(ctx, "https://example.org/repo")
	require.NoError(t, err)

	store, err := db.Begin(ctx)
	require.NoError(t, err)
	tx := store.(*Tx)

	repo := model.Repository{
		RepoID:      id,
		Address:     "https://example.org/repo",
		Name:        model.LocalizedText{"en-US": "Example"},
		Timestamp:   42,
		Certificate: "3082",
		Mirrors:     []model.Mirror{{URL: "https://ignored.example.org"}},
	}
	require.NoError(t, tx.UpdateRepository(ctx, repo))
	require.NoError(t, tx.ReplaceMirrors(ctx, id, []model.Mirror{
		{URL: "https://a.example.org"},
		{URL: "https://b.example.org", CountryCode: strPtr("DE")},
	}))
	require.NoError(t, tx.UpsertAttribute(ctx, model.Attribute{RepoID: id, Kind: model.Category, ID: "Games", Name: model.LocalizedText{"en-US": "Games"}}))
	require.NoError(t, tx.UpsertAttribute(ctx, model.Attribute{RepoID: id, Kind: model.Category, ID: "Games", Name: model.LocalizedText{"en-US": "Fun"}}))
	require.NoError(t, tx.UpsertAttribute(ctx, model.Attribute{RepoID: id, Kind: model.AntiFeature, ID: "Ads"}))
	require.NoError(t, tx.Commit())

	got, err := db.Repository(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Timestamp)
	assert.Equal(t, "3082", got.Certificate)
	assert.Equal(t, "Example", got.Name["en-US"])
	require.Len(t, got.Mirrors, 2)
	assert.Equal(t, "https://a.example.org", got.Mirrors[0].URL)
	assert.Nil(t, got.Mirrors[0].CountryCode)
	assert.Equal(t, "DE", *got.Mirrors[1].CountryCode)
	assert.Equal(t, "Fun", got.Categories["Games"].Name["en-US"])
	assert.Equal(t, model.Category, got.Categories["Games"].Kind)
	assert.Contains(t, got.AntiFeatures, "Ads")

	store, err = db.Begin(ctx)
	require.NoError(t, err)
	tx = store.(*Tx)
	require.NoError(t, tx.DeleteAttributes(ctx, id, model.Category, ""))
	require.NoError(t, tx.Commit())

	got, err = db.Repository(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got.Categories)
	assert.Len(t, got.AntiFeatures, 1)
}

func TestTx_UpdateUnknownRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	err = tx.UpdateRepository(ctx, model.Repository{RepoID: 99})
	assert.ErrorIs(t, err, pkgerrors.ErrRepositoryNotFound)
	_, err = tx.GetRepository(ctx, 99)
	assert.ErrorIs(t, err, pkgerrors.ErrRepositoryNotFound)
}

func TestTx_PackageRows(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	id, err := db.AddRepository(ctx, "https://example.org/repo")
	require.NoError(t, err)

	tx, err := db.Begin(ctx)
	require.NoError(t, err)

	const pkg = "org.example.app"
	require.NoError(t, tx.UpsertAppMetadata(ctx, model.AppMetadata{RepoID: id, PackageName: pkg, Added: 1, LastUpdated: 2, License: strPtr("GPL-3.0-only")}))
	require.NoError(t, tx.UpsertLocalizedFile(ctx, model.LocalizedFile{RepoID: id, PackageName: pkg, Type: model.FileIcon, Locale: "en-US", File: model.File{Name: "/icon.png", SHA256: strPtr("abc")}}))
	require.NoError(t, tx.UpsertLocalizedFile(ctx, model.LocalizedFile{RepoID: id, PackageName: pkg, Type: model.FileIcon, Locale: "de", File: model.File{Name: "/icon-de.png"}}))
	require.NoError(t, tx.UpsertLocalizedFileList(ctx, model.LocalizedFileList{RepoID: id, PackageName: pkg, Type: model.ScreenshotPhone, Locale: "en-US", Files: []model.File{{Name: "/1.png"}}}))
	for code, vid := range []string{"a", "b", "c"} {
		require.NoError(t, tx.UpsertVersion(ctx, model.Version{
			RepoID: id, PackageName: pkg, VersionID: vid,
			Manifest:     model.Manifest{VersionCode: int64(code + 1)},
			IsCompatible: code%2 == 0,
		}))
	}

	meta, err := tx.GetAppMetadata(ctx, id, pkg)
	require.NoError(t, err)
	assert.Equal(t, "GPL-3.0-only", *meta.License)
	assert.Equal(t, pkg, meta.PackageName)

	missing, err := tx.GetAppMetadata(ctx, id, "org.example.none")
	require.NoError(t, err)
	assert.Nil(t, missing)

	icons, err := tx.GetLocalizedFiles(ctx, id, pkg, model.FileIcon)
	require.NoError(t, err)
	require.Len(t, icons, 2)
	assert.Equal(t, "abc", *icons["en-US"].SHA256)
	assert.Nil(t, icons["de"].Size)

	require.NoError(t, tx.DeleteLocalizedFiles(ctx, id, pkg, model.FileIcon, "de"))
	icons, err = tx.GetLocalizedFiles(ctx, id, pkg, model.FileIcon)
	require.NoError(t, err)
	assert.Len(t, icons, 1)

	v, err := tx.GetVersion(ctx, id, pkg, "a")
	require.NoError(t, err)
	assert.True(t, v.IsCompatible)
	assert.Equal(t, "a", v.VersionID)
	require.NoError(t, tx.DeleteVersions(ctx, id, pkg, "b"))
	v, err = tx.GetVersion(ctx, id, pkg, "b")
	require.NoError(t, err)
	assert.Nil(t, v)
	require.NoError(t, tx.Commit())

	versions, err := db.Versions(ctx, id, pkg)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "c", versions[0].VersionID)
	assert.Equal(t, "a", versions[1].VersionID)

	tx, err = db.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.DeleteApp(ctx, id, pkg))
	require.NoError(t, tx.Commit())

	versions, err = db.Versions(ctx, id, pkg)
	require.NoError(t, err)
	assert.Empty(t, versions)
	icons, err = db.LocalizedFiles(ctx, id, pkg, model.FileIcon)
	require.NoError(t, err)
	assert.Empty(t, icons)
}

func TestTx_RollbackAndClear(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	id, err := db.AddRepository(ctx, "https://example.org/repo")
	require.NoError(t, err)

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertAppMetadata(ctx, model.AppMetadata{RepoID: id, PackageName: "org.example.a"}))
	require.NoError(t, tx.Rollback())

	apps, err := db.Apps(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, apps)

	tx, err = db.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertAppMetadata(ctx, model.AppMetadata{RepoID: id, PackageName: "org.example.a"}))
	require.NoError(t, tx.UpsertVersion(ctx, model.Version{RepoID: id, PackageName: "org.example.a", VersionID: "1"}))
	require.NoError(t, tx.ReplaceMirrors(ctx, id, []model.Mirror{{URL: "https://m.example.org"}}))
	require.NoError(t, tx.Commit())

	tx, err = db.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.ClearRepository(ctx, id))
	require.NoError(t, tx.Commit())

	apps, err = db.Apps(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, apps)
	repo, err := db.Repository(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, repo.Mirrors)
}

func TestTx_VersionRequiresPackage(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	id, err := db.AddRepository(ctx, "https://example.org/repo")
	require.NoError(t, err)

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()
	err = tx.UpsertVersion(ctx, model.Version{RepoID: id, PackageName: "org.example.none", VersionID: "1"})
	assert.Error(t, err)
}
