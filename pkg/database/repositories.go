package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sqlite "github.com/mattn/go-sqlite3"

	pkgerrors "github.com/cperrin88/idxsync/pkg/errors"
	"github.com/cperrin88/idxsync/pkg/model"
)

// AddRepository registers a repository by address and returns its id. The
// repository stays empty until its first full sync.
func (d *DB) AddRepository(ctx context.Context, address string) (int64, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return 0, pkgerrors.ErrEmptyAddress
	}
	res, err := d.db.ExecContext(ctx, "INSERT INTO repository (address) VALUES (?)", address)
	if err != nil {
		var sqlErr sqlite.Error
		if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite.ErrConstraintUnique {
			return 0, fmt.Errorf("%w: %s", pkgerrors.ErrRepositoryExists, address)
		}
		return 0, err
	}
	return res.LastInsertId()
}

// RemoveRepository deletes a repository and everything synced from it.
func (d *DB) RemoveRepository(ctx context.Context, repoID int64) error {
	res, err := d.db.ExecContext(ctx, "DELETE FROM repository WHERE repo_id = ?", repoID)
	if err != nil {
		return err
	}
	return expectRow(res, repoID)
}

// Repository returns one repository with its mirrors and attributes.
func (d *DB) Repository(ctx context.Context, repoID int64) (*model.Repository, error) {
	return getRepository(ctx, d.db, repoID)
}

// Repositories lists every registered repository ordered by id. Mirrors and
// attributes are not loaded. The address is the one announced by the last
// synced index, or the registered one before the first sync.
func (d *DB) Repositories(ctx context.Context) ([]model.Repository, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT repo_id, address, timestamp, certificate, data FROM repository ORDER BY repo_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Repository
	for rows.Next() {
		var (
			repo    model.Repository
			id, ts  int64
			address string
			cert    string
			data    string
		)
		if err := rows.Scan(&id, &address, &ts, &cert, &data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &repo); err != nil {
			return nil, fmt.Errorf("repository %d: %w", id, err)
		}
		if repo.Address == "" {
			repo.Address = address
		}
		repo.RepoID, repo.Timestamp, repo.Certificate = id, ts, cert
		list = append(list, repo)
	}
	return list, rows.Err()
}

// Apps lists the package metadata of a repository ordered by package name.
func (d *DB) Apps(ctx context.Context, repoID int64) ([]model.AppMetadata, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT package_name, data FROM app_metadata WHERE repo_id = ? ORDER BY package_name", repoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []model.AppMetadata
	for rows.Next() {
		var name, data string
		if err := rows.Scan(&name, &data); err != nil {
			return nil, err
		}
		meta, err := decodeApp(repoID, name, data)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *meta)
	}
	return apps, rows.Err()
}

// Versions lists the versions of a package, newest version code first.
func (d *DB) Versions(ctx context.Context, repoID int64, packageName string) ([]model.Version, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT version_id, is_compatible, data FROM version
		WHERE repo_id = ? AND package_name = ?
		ORDER BY version_code DESC, version_id`, repoID, packageName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []model.Version
	for rows.Next() {
		var (
			id, data   string
			compatible bool
		)
		if err := rows.Scan(&id, &compatible, &data); err != nil {
			return nil, err
		}
		v, err := decodeVersion(repoID, packageName, id, compatible, data)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}
	return versions, rows.Err()
}

// LocalizedFiles returns the graphics of one type of a package keyed by locale.
func (d *DB) LocalizedFiles(ctx context.Context, repoID int64, packageName, fileType string) (map[string]model.LocalizedFile, error) {
	return localizedFiles(ctx, d.db, repoID, packageName, fileType)
}

// LocalizedFileLists returns the screenshot lists of one type of a package keyed by locale.
func (d *DB) LocalizedFileLists(ctx context.Context, repoID int64, packageName, listType string) (map[string]model.LocalizedFileList, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT locale, files FROM localized_file_list WHERE repo_id = ? AND package_name = ? AND type = ?",
		repoID, packageName, listType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lists := map[string]model.LocalizedFileList{}
	for rows.Next() {
		l := model.LocalizedFileList{RepoID: repoID, PackageName: packageName, Type: listType}
		var files string
		if err := rows.Scan(&l.Locale, &files); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(files), &l.Files); err != nil {
			return nil, fmt.Errorf("decode %s screenshots of %s: %w", listType, packageName, err)
		}
		lists[l.Locale] = l
	}
	return lists, rows.Err()
}
