package repository

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"

	"github.com/cperrin88/idxsync/pkg/model"
	"github.com/cperrin88/idxsync/pkg/patch"
)

// OnRepo stores the repository section of a full index.
func (s *Session) OnRepo(repo model.Repository) error {
	return s.apply(func() error {
		if repo.Timestamp <= s.stored.Timestamp {
			return errUnchanged
		}
		if err := s.clear(); err != nil {
			return err
		}
		s.seenRepo = true

		repo.Bind(s.repoID)
		repo.Certificate = s.certificate()
		if err := s.tx.UpdateRepository(s.ctx, repo); err != nil {
			return storeError(err)
		}
		if err := s.tx.ReplaceMirrors(s.ctx, s.repoID, repo.Mirrors); err != nil {
			return storeError(err)
		}
		for _, kind := range model.AttributeKinds {
			attrs := repo.Attributes(kind)
			for _, id := range sortedKeys(attrs) {
				if err := s.tx.UpsertAttribute(s.ctx, attrs[id]); err != nil {
					return storeError(err)
				}
			}
		}
		return nil
	})
}

// OnPackage stores one package of a full index.
func (s *Session) OnPackage(id string, pkg model.Package) error {
	return s.apply(func() error {
		if err := s.clear(); err != nil {
			return err
		}
		s.touch(id)
		if err := s.insertMetadata(id, pkg.Metadata); err != nil {
			return err
		}
		for _, versionID := range sortedKeys(pkg.Versions) {
			if err := s.writeVersion(id, versionID, pkg.Versions[versionID]); err != nil {
				return err
			}
		}
		return nil
	})
}

// clear empties the repository once, on the first event of a full index.
func (s *Session) clear() error {
	if s.cleared {
		return nil
	}
	s.cleared = true
	s.log.Debug("clearing repository for full index")
	return storeError(s.tx.ClearRepository(s.ctx, s.repoID))
}

func (s *Session) insertMetadata(id string, meta model.PackageMetadata) error {
	meta.RepoID, meta.PackageName = s.repoID, id
	if err := s.tx.UpsertAppMetadata(s.ctx, meta.AppMetadata); err != nil {
		return storeError(err)
	}
	for _, f := range meta.LocalizedFiles() {
		if err := s.tx.UpsertLocalizedFile(s.ctx, f); err != nil {
			return storeError(err)
		}
	}
	for _, l := range meta.LocalizedFileLists() {
		if err := s.tx.UpsertLocalizedFileList(s.ctx, l); err != nil {
			return storeError(err)
		}
	}
	return nil
}

func (s *Session) writeVersion(packageName, versionID string, v model.Version) error {
	v.RepoID, v.PackageName, v.VersionID = s.repoID, packageName, versionID
	compatible, err := s.compat.IsCompatible(v)
	if err != nil {
		return stateError("compatibility", fmt.Errorf("%s/%s: %w", packageName, versionID, err))
	}
	v.IsCompatible = compatible
	return storeError(s.tx.UpsertVersion(s.ctx, v))
}

// OnDiffBase records the timestamp the diff was built against. The base may
// arrive anywhere in the diff; a mismatch fails as soon as it is known to
// matter and is checked again when the stream ends.
func (s *Session) OnDiffBase(timestamp int64) error {
	return s.apply(func() error {
		s.seenBase = true
		s.baseMatches = timestamp == s.stored.Timestamp
		if s.baseMatches {
			return nil
		}
		s.log.Debug("diff base differs from stored index", "base", timestamp, "stored", s.stored.Timestamp)
		if s.seenRepo || len(s.touched) > 0 {
			return s.checkBase()
		}
		return nil
	})
}

// checkBase fails once a diff base was seen that differs from the stored timestamp.
func (s *Session) checkBase() error {
	if s.seenBase && !s.baseMatches {
		return stateError("diff", fmt.Errorf("%w: stored index is %d", ErrDiffBaseMismatch, s.stored.Timestamp))
	}
	return nil
}

// OnRepoDiff patches the repository row, its mirrors and its attributes.
func (s *Session) OnRepoDiff(timestamp int64, diff patch.Object) error {
	return s.apply(func() error {
		if timestamp <= s.stored.Timestamp {
			return errUnchanged
		}
		if err := s.checkBase(); err != nil {
			return err
		}
		s.seenRepo = true

		repo, err := patch.Apply(s.stored, diff)
		if err != nil {
			return structuralError("repo", err)
		}
		repo.Certificate = s.certificate()
		if err := s.tx.UpdateRepository(s.ctx, repo); err != nil {
			return storeError(err)
		}

		if raw, ok := diff[model.KeyMirrors]; ok {
			var mirrors []model.Mirror
			if !patch.IsNull(raw) {
				if err := json.Unmarshal(raw, &mirrors); err != nil {
					return structuralError("repo", fmt.Errorf("%s: %w", model.KeyMirrors, err))
				}
			}
			if err := s.tx.ReplaceMirrors(s.ctx, s.repoID, mirrors); err != nil {
				return storeError(err)
			}
		}

		for _, kind := range model.AttributeKinds {
			if err := s.diffAttributes(kind, diff[kind.Key()]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Session) diffAttributes(kind model.AttributeKind, raw json.RawMessage) error {
	ops, err := patch.DiffTable(kind.Key(), s.stored.Attributes(kind), raw, patch.TableOptions[model.Attribute]{
		New: func(id string) model.Attribute {
			return model.Attribute{RepoID: s.repoID, Kind: kind, ID: id}
		},
	})
	if err != nil {
		return structuralError("repo", err)
	}
	for _, op := range ops {
		switch op.Kind {
		case patch.OpDeleteAll:
			err = s.tx.DeleteAttributes(s.ctx, s.repoID, kind, "")
		case patch.OpDelete:
			err = s.tx.DeleteAttributes(s.ctx, s.repoID, kind, op.Key)
		case patch.OpUpsert:
			attr := op.Item
			attr.RepoID, attr.Kind, attr.ID = s.repoID, kind, op.Key
			err = s.tx.UpsertAttribute(s.ctx, attr)
		}
		if err != nil {
			return storeError(err)
		}
	}
	return nil
}

// OnPackageMetadataDiff creates, patches or deletes one package.
func (s *Session) OnPackageMetadataDiff(id string, diff patch.Object) error {
	return s.apply(func() error {
		if err := s.checkBase(); err != nil {
			return err
		}
		s.touch(id)
		if diff == nil {
			return storeError(s.tx.DeleteApp(s.ctx, s.repoID, id))
		}
		if err := patch.CheckDenied(diff, model.AppMetadataDenyList...); err != nil {
			return structuralError("metadata", err)
		}

		existing, err := s.tx.GetAppMetadata(s.ctx, s.repoID, id)
		if err != nil {
			return storeError(err)
		}
		var meta model.AppMetadata
		if existing == nil {
			meta, err = patch.ApplyNew(id, model.AppMetadata{RepoID: s.repoID, PackageName: id}, diff)
		} else {
			meta, err = patch.Apply(*existing, diff)
		}
		if err != nil {
			return structuralError("metadata", fmt.Errorf("%s: %w", id, err))
		}
		meta.RepoID, meta.PackageName = s.repoID, id
		if err := s.tx.UpsertAppMetadata(s.ctx, meta); err != nil {
			return storeError(err)
		}
		for _, fileType := range model.FileTypes {
			if raw, ok := diff[fileType]; ok {
				if err := s.diffLocalizedFiles(id, fileType, raw); err != nil {
					return err
				}
			}
		}
		if raw, ok := diff[model.KeyScreenshots]; ok {
			return s.diffScreenshots(id, raw)
		}
		return nil
	})
}

func (s *Session) diffLocalizedFiles(packageName, fileType string, raw json.RawMessage) error {
	existing, err := s.tx.GetLocalizedFiles(s.ctx, s.repoID, packageName, fileType)
	if err != nil {
		return storeError(err)
	}
	ops, err := patch.DiffTable(fileType, existing, raw, patch.TableOptions[model.LocalizedFile]{
		New: func(locale string) model.LocalizedFile {
			return model.LocalizedFile{RepoID: s.repoID, PackageName: packageName, Type: fileType, Locale: locale}
		},
		Valid: model.ValidNewLocalizedFile,
		Deny:  model.LocalizedFileDenyList,
	})
	if err != nil {
		return structuralError("metadata", fmt.Errorf("%s: %w", packageName, err))
	}
	for _, op := range ops {
		switch op.Kind {
		case patch.OpDeleteAll:
			err = s.tx.DeleteLocalizedFiles(s.ctx, s.repoID, packageName, fileType, "")
		case patch.OpDelete:
			err = s.tx.DeleteLocalizedFiles(s.ctx, s.repoID, packageName, fileType, op.Key)
		case patch.OpUpsert:
			err = s.tx.UpsertLocalizedFile(s.ctx, op.Item)
		}
		if err != nil {
			return storeError(err)
		}
	}
	return nil
}

func (s *Session) diffScreenshots(packageName string, raw json.RawMessage) error {
	if patch.IsNull(raw) {
		return storeError(s.tx.DeleteLocalizedFileLists(s.ctx, s.repoID, packageName, "", ""))
	}
	byType, err := patch.ParseObject(raw)
	if err != nil {
		return structuralError("metadata", fmt.Errorf("%s: %s: %w", packageName, model.KeyScreenshots, err))
	}
	for _, listType := range byType.Keys() {
		if !slices.Contains(model.ScreenshotTypes, listType) {
			return structuralError("metadata", &patch.FieldError{Field: model.KeyScreenshots + "." + listType, Err: patch.ErrNoMember})
		}
		ops, err := patch.DiffListTable(model.KeyScreenshots+"."+listType, byType[listType], decodeFiles)
		if err != nil {
			return structuralError("metadata", fmt.Errorf("%s: %w", packageName, err))
		}
		for _, op := range ops {
			switch op.Kind {
			case patch.OpDeleteAll:
				err = s.tx.DeleteLocalizedFileLists(s.ctx, s.repoID, packageName, listType, "")
			case patch.OpDelete:
				err = s.tx.DeleteLocalizedFileLists(s.ctx, s.repoID, packageName, listType, op.Key)
			case patch.OpUpsert:
				err = s.tx.UpsertLocalizedFileList(s.ctx, model.LocalizedFileList{
					RepoID:      s.repoID,
					PackageName: packageName,
					Type:        listType,
					Locale:      op.Key,
					Files:       op.Items,
				})
			}
			if err != nil {
				return storeError(err)
			}
		}
	}
	return nil
}

// OnVersionsDiff creates, patches or deletes versions of one package.
func (s *Session) OnVersionsDiff(id string, diffs map[string]patch.Object) error {
	return s.apply(func() error {
		if err := s.checkBase(); err != nil {
			return err
		}
		s.touch(id)
		if diffs == nil {
			return storeError(s.tx.DeleteVersions(s.ctx, s.repoID, id, ""))
		}

		app, err := s.tx.GetAppMetadata(s.ctx, s.repoID, id)
		if err != nil {
			return storeError(err)
		}
		if app == nil {
			return structuralError("versions", fmt.Errorf("%w: %s", ErrUnknownPackage, id))
		}

		for _, versionID := range sortedKeys(diffs) {
			diff := diffs[versionID]
			if diff == nil {
				if err := s.tx.DeleteVersions(s.ctx, s.repoID, id, versionID); err != nil {
					return storeError(err)
				}
				continue
			}
			if err := patch.CheckDenied(diff, model.VersionDenyList...); err != nil {
				return structuralError("versions", fmt.Errorf("%s/%s: %w", id, versionID, err))
			}

			existing, err := s.tx.GetVersion(s.ctx, s.repoID, id, versionID)
			if err != nil {
				return storeError(err)
			}
			var v model.Version
			if existing == nil {
				v, err = patch.ApplyNew(versionID, model.Version{}, diff)
			} else {
				v, err = patch.Apply(*existing, diff)
			}
			if err != nil {
				return structuralError("versions", fmt.Errorf("%s/%s: %w", id, versionID, err))
			}
			if err := s.writeVersion(id, versionID, v); err != nil {
				return err
			}
		}
		return nil
	})
}

func decodeFiles(_ string, raw json.RawMessage) ([]model.File, error) {
	var files []model.File
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, err
	}
	for i := range files {
		if err := files[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: file %d: %w", patch.ErrInvalidRecord, i, err)
		}
	}
	return files, nil
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
