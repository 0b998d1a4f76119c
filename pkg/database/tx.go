package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/cperrin88/idxsync/pkg/errors"
	"github.com/cperrin88/idxsync/pkg/model"
	"github.com/cperrin88/idxsync/pkg/repository"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is one sync session transaction.
type Tx struct {
	tx *sql.Tx
}

var _ repository.Tx = (*Tx)(nil)

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

func (t *Tx) GetRepository(ctx context.Context, repoID int64) (*model.Repository, error) {
	return getRepository(ctx, t.tx, repoID)
}

func getRepository(ctx context.Context, q querier, repoID int64) (*model.Repository, error) {
	var (
		address, certificate, data string
		timestamp                  int64
	)
	err := q.QueryRowContext(ctx,
		"SELECT address, timestamp, certificate, data FROM repository WHERE repo_id = ?", repoID,
	).Scan(&address, &timestamp, &certificate, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", pkgerrors.ErrRepositoryNotFound, repoID)
	}
	if err != nil {
		return nil, err
	}

	var repo model.Repository
	if err := json.Unmarshal([]byte(data), &repo); err != nil {
		return nil, fmt.Errorf("repository %d: %w", repoID, err)
	}
	if repo.Address == "" {
		repo.Address = address
	}
	repo.RepoID, repo.Timestamp, repo.Certificate = repoID, timestamp, certificate

	if repo.Mirrors, err = mirrors(ctx, q, repoID); err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, "SELECT kind, id, data FROM repo_attribute WHERE repo_id = ?", repoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var attr model.Attribute
		var kind, id, raw string
		if err := rows.Scan(&kind, &id, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &attr); err != nil {
			return nil, fmt.Errorf("attribute %s/%s: %w", kind, id, err)
		}
		attr.RepoID, attr.Kind, attr.ID = repoID, model.AttributeKind(kind), id
		repo.SetAttribute(attr)
	}
	return &repo, rows.Err()
}

func mirrors(ctx context.Context, q querier, repoID int64) ([]model.Mirror, error) {
	rows, err := q.QueryContext(ctx, "SELECT url, country_code FROM mirror WHERE repo_id = ? ORDER BY position", repoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Mirror
	for rows.Next() {
		var m model.Mirror
		var country sql.NullString
		if err := rows.Scan(&m.URL, &country); err != nil {
			return nil, err
		}
		if country.Valid {
			m.CountryCode = &country.String
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (t *Tx) ClearRepository(ctx context.Context, repoID int64) error {
	for _, table := range []string{"mirror", "repo_attribute", "app_metadata"} {
		if _, err := t.tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE repo_id = ?", repoID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func (t *Tx) UpdateRepository(ctx context.Context, repo model.Repository) error {
	// Mirrors and attributes have their own tables.
	repo.Mirrors, repo.AntiFeatures, repo.Categories, repo.ReleaseChannels = nil, nil, nil, nil
	data, err := json.Marshal(repo)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx,
		"UPDATE repository SET timestamp = ?, certificate = ?, data = ? WHERE repo_id = ?",
		repo.Timestamp, repo.Certificate, string(data), repo.RepoID)
	if err != nil {
		return err
	}
	return expectRow(res, repo.RepoID)
}

func (t *Tx) ReplaceMirrors(ctx context.Context, repoID int64, mirrors []model.Mirror) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM mirror WHERE repo_id = ?", repoID); err != nil {
		return err
	}
	for i, m := range mirrors {
		if _, err := t.tx.ExecContext(ctx,
			"INSERT INTO mirror (repo_id, position, url, country_code) VALUES (?, ?, ?, ?)",
			repoID, i, m.URL, m.CountryCode); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tx) UpsertAttribute(ctx context.Context, attr model.Attribute) error {
	data, err := json.Marshal(attr)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO repo_attribute (repo_id, kind, id, data) VALUES (?, ?, ?, ?)
		ON CONFLICT (repo_id, kind, id) DO UPDATE SET data = excluded.data`,
		attr.RepoID, string(attr.Kind), attr.ID, string(data))
	return err
}

func (t *Tx) DeleteAttributes(ctx context.Context, repoID int64, kind model.AttributeKind, id string) error {
	return t.deleteRows(ctx, "repo_attribute", newFilter(repoID).eq("kind", string(kind)).eq("id", id))
}

func (t *Tx) GetAppMetadata(ctx context.Context, repoID int64, packageName string) (*model.AppMetadata, error) {
	var data string
	err := t.tx.QueryRowContext(ctx,
		"SELECT data FROM app_metadata WHERE repo_id = ? AND package_name = ?", repoID, packageName,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeApp(repoID, packageName, data)
}

func decodeApp(repoID int64, packageName, data string) (*model.AppMetadata, error) {
	var meta model.AppMetadata
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, fmt.Errorf("package %s: %w", packageName, err)
	}
	meta.RepoID, meta.PackageName = repoID, packageName
	return &meta, nil
}

func (t *Tx) UpsertAppMetadata(ctx context.Context, meta model.AppMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO app_metadata (repo_id, package_name, last_updated, data) VALUES (?, ?, ?, ?)
		ON CONFLICT (repo_id, package_name) DO UPDATE SET last_updated = excluded.last_updated, data = excluded.data`,
		meta.RepoID, meta.PackageName, meta.LastUpdated, string(data))
	return err
}

func (t *Tx) DeleteApp(ctx context.Context, repoID int64, packageName string) error {
	_, err := t.tx.ExecContext(ctx, "DELETE FROM app_metadata WHERE repo_id = ? AND package_name = ?", repoID, packageName)
	return err
}

func (t *Tx) GetLocalizedFiles(ctx context.Context, repoID int64, packageName, fileType string) (map[string]model.LocalizedFile, error) {
	return localizedFiles(ctx, t.tx, repoID, packageName, fileType)
}

func localizedFiles(ctx context.Context, q querier, repoID int64, packageName, fileType string) (map[string]model.LocalizedFile, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT locale, name, sha256, size FROM localized_file WHERE repo_id = ? AND package_name = ? AND type = ?",
		repoID, packageName, fileType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := map[string]model.LocalizedFile{}
	for rows.Next() {
		f := model.LocalizedFile{RepoID: repoID, PackageName: packageName, Type: fileType}
		var (
			sha256 sql.NullString
			size   sql.NullInt64
		)
		if err := rows.Scan(&f.Locale, &f.Name, &sha256, &size); err != nil {
			return nil, err
		}
		if sha256.Valid {
			f.SHA256 = &sha256.String
		}
		if size.Valid {
			f.Size = &size.Int64
		}
		files[f.Locale] = f
	}
	return files, rows.Err()
}

func (t *Tx) UpsertLocalizedFile(ctx context.Context, f model.LocalizedFile) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO localized_file (repo_id, package_name, type, locale, name, sha256, size) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (repo_id, package_name, type, locale)
		DO UPDATE SET name = excluded.name, sha256 = excluded.sha256, size = excluded.size`,
		f.RepoID, f.PackageName, f.Type, f.Locale, f.Name, f.SHA256, f.Size)
	return err
}

func (t *Tx) DeleteLocalizedFiles(ctx context.Context, repoID int64, packageName, fileType, locale string) error {
	return t.deleteRows(ctx, "localized_file",
		newFilter(repoID).eq("package_name", packageName).eq("type", fileType).eq("locale", locale))
}

func (t *Tx) UpsertLocalizedFileList(ctx context.Context, l model.LocalizedFileList) error {
	files, err := json.Marshal(l.Files)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO localized_file_list (repo_id, package_name, type, locale, files) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (repo_id, package_name, type, locale) DO UPDATE SET files = excluded.files`,
		l.RepoID, l.PackageName, l.Type, l.Locale, string(files))
	return err
}

func (t *Tx) DeleteLocalizedFileLists(ctx context.Context, repoID int64, packageName, fileType, locale string) error {
	return t.deleteRows(ctx, "localized_file_list",
		newFilter(repoID).eq("package_name", packageName).eq("type", fileType).eq("locale", locale))
}

func (t *Tx) GetVersion(ctx context.Context, repoID int64, packageName, versionID string) (*model.Version, error) {
	var (
		data       string
		compatible bool
	)
	err := t.tx.QueryRowContext(ctx,
		"SELECT is_compatible, data FROM version WHERE repo_id = ? AND package_name = ? AND version_id = ?",
		repoID, packageName, versionID,
	).Scan(&compatible, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeVersion(repoID, packageName, versionID, compatible, data)
}

func decodeVersion(repoID int64, packageName, versionID string, compatible bool, data string) (*model.Version, error) {
	var v model.Version
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, fmt.Errorf("version %s/%s: %w", packageName, versionID, err)
	}
	v.RepoID, v.PackageName, v.VersionID, v.IsCompatible = repoID, packageName, versionID, compatible
	return &v, nil
}

func (t *Tx) UpsertVersion(ctx context.Context, v model.Version) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO version (repo_id, package_name, version_id, version_code, is_compatible, data) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (repo_id, package_name, version_id)
		DO UPDATE SET version_code = excluded.version_code, is_compatible = excluded.is_compatible, data = excluded.data`,
		v.RepoID, v.PackageName, v.VersionID, v.Manifest.VersionCode, v.IsCompatible, string(data))
	return err
}

func (t *Tx) DeleteVersions(ctx context.Context, repoID int64, packageName, versionID string) error {
	return t.deleteRows(ctx, "version",
		newFilter(repoID).eq("package_name", packageName).eq("version_id", versionID))
}

func (t *Tx) deleteRows(ctx context.Context, table string, f *filter) error {
	_, err := t.tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE "+f.where(), f.args...)
	return err
}

// filter builds a WHERE clause scoped to one repository. Empty values match all rows.
type filter struct {
	clauses []string
	args    []any
}

func newFilter(repoID int64) *filter {
	return &filter{clauses: []string{"repo_id = ?"}, args: []any{repoID}}
}

func (f *filter) eq(column, value string) *filter {
	if value == "" {
		return f
	}
	f.clauses = append(f.clauses, column+" = ?")
	f.args = append(f.args, value)
	return f
}

func (f *filter) where() string {
	return strings.Join(f.clauses, " AND ")
}

func expectRow(res sql.Result, repoID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", pkgerrors.ErrRepositoryNotFound, repoID)
	}
	return nil
}
