//go:generate mockgen -destination=./mocks/store.go . Store,Tx,CompatibilityChecker

package repository

import (
	"context"

	"github.com/cperrin88/idxsync/pkg/model"
)

// Store opens storage transactions. Every sync session runs in exactly one.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a storage transaction scoped to the records of one index.
//
// Getters return nil and no error for rows that do not exist, except
// GetRepository, which fails with errors.ErrRepositoryNotFound. Delete methods
// treat an empty id, type or locale as "all".
type Tx interface {
	// GetRepository returns the repository row with its mirrors and attributes.
	GetRepository(ctx context.Context, repoID int64) (*model.Repository, error)
	// ClearRepository removes every row that belongs to the repository
	// except the repository row itself.
	ClearRepository(ctx context.Context, repoID int64) error
	UpdateRepository(ctx context.Context, repo model.Repository) error
	ReplaceMirrors(ctx context.Context, repoID int64, mirrors []model.Mirror) error
	UpsertAttribute(ctx context.Context, attr model.Attribute) error
	DeleteAttributes(ctx context.Context, repoID int64, kind model.AttributeKind, id string) error

	GetAppMetadata(ctx context.Context, repoID int64, packageName string) (*model.AppMetadata, error)
	UpsertAppMetadata(ctx context.Context, meta model.AppMetadata) error
	// DeleteApp removes the package with its graphics, screenshots and versions.
	DeleteApp(ctx context.Context, repoID int64, packageName string) error

	// GetLocalizedFiles returns the files of one type keyed by locale.
	GetLocalizedFiles(ctx context.Context, repoID int64, packageName, fileType string) (map[string]model.LocalizedFile, error)
	UpsertLocalizedFile(ctx context.Context, file model.LocalizedFile) error
	DeleteLocalizedFiles(ctx context.Context, repoID int64, packageName, fileType, locale string) error
	UpsertLocalizedFileList(ctx context.Context, list model.LocalizedFileList) error
	DeleteLocalizedFileLists(ctx context.Context, repoID int64, packageName, fileType, locale string) error

	GetVersion(ctx context.Context, repoID int64, packageName, versionID string) (*model.Version, error)
	UpsertVersion(ctx context.Context, version model.Version) error
	DeleteVersions(ctx context.Context, repoID int64, packageName, versionID string) error

	Commit() error
	Rollback() error
}

// CompatibilityChecker decides whether a version can be installed on this device.
type CompatibilityChecker interface {
	IsCompatible(version model.Version) (bool, error)
}
