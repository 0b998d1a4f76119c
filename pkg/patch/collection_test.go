package patch_test

import (
	"encoding/json"
	"testing"

	"github.com/cperrin88/idxsync/pkg/model"
	"github.com/cperrin88/idxsync/pkg/patch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileTableOptions() patch.TableOptions[model.LocalizedFile] {
	return patch.TableOptions[model.LocalizedFile]{
		New: func(locale string) model.LocalizedFile {
			return model.LocalizedFile{RepoID: 1, PackageName: "org.example", Type: model.FileIcon, Locale: locale}
		},
		Valid: model.ValidNewLocalizedFile,
		Deny:  model.LocalizedFileDenyList,
	}
}

func existingIcons() map[string]model.LocalizedFile {
	return map[string]model.LocalizedFile{
		"en-US": {RepoID: 1, PackageName: "org.example", Type: model.FileIcon, Locale: "en-US", File: model.File{Name: "/en.png"}},
		"de":    {RepoID: 1, PackageName: "org.example", Type: model.FileIcon, Locale: "de", File: model.File{Name: "/de.png"}},
	}
}

func TestDiffTableAbsentKeyYieldsNoOps(t *testing.T) {
	ops, err := patch.DiffTable("icon", existingIcons(), nil, fileTableOptions())
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestDiffTableNullDeletesAll(t *testing.T) {
	ops, err := patch.DiffTable("icon", existingIcons(), json.RawMessage(`null`), fileTableOptions())
	require.NoError(t, err)
	assert.Equal(t, []patch.Op[model.LocalizedFile]{{Kind: patch.OpDeleteAll}}, ops)
}

func TestDiffTableMixedOps(t *testing.T) {
	raw := json.RawMessage(`{
		"de": null,
		"en-US": {"size": 12},
		"fr": {"name": "/fr.png"}
	}`)

	ops, err := patch.DiffTable("icon", existingIcons(), raw, fileTableOptions())
	require.NoError(t, err)
	require.Len(t, ops, 3)

	assert.Equal(t, patch.OpDelete, ops[0].Kind)
	assert.Equal(t, "de", ops[0].Key)

	assert.Equal(t, patch.OpUpsert, ops[1].Kind)
	assert.Equal(t, "en-US", ops[1].Key)
	assert.Equal(t, "/en.png", ops[1].Item.Name)
	assert.Equal(t, int64(12), *ops[1].Item.Size)

	assert.Equal(t, patch.OpUpsert, ops[2].Kind)
	assert.Equal(t, "fr", ops[2].Item.Locale)
	assert.Equal(t, model.FileIcon, ops[2].Item.Type)
	assert.Equal(t, "/fr.png", ops[2].Item.Name)
}

func TestDiffTableRejectsDeniedKeys(t *testing.T) {
	raw := json.RawMessage(`{"en-US": {"type": "featureGraphic"}}`)

	_, err := patch.DiffTable("icon", existingIcons(), raw, fileTableOptions())

	require.ErrorIs(t, err, patch.ErrDenied)
	assert.EqualError(t, err, "denied key: icon.en-US.type")
}

func TestDiffTableRejectsInvalidNewItem(t *testing.T) {
	raw := json.RawMessage(`{"fr": {"name": "/fr.png"}, "it": {"sha256": "00"}}`)

	ops, err := patch.DiffTable("icon", existingIcons(), raw, fileTableOptions())

	require.ErrorIs(t, err, patch.ErrInvalidRecord)
	assert.EqualError(t, err, "icon.it: invalid record")
	assert.Nil(t, ops)

	// A patch that leaves an existing item incomplete is not checked.
	ops, err = patch.DiffTable("icon", existingIcons(), json.RawMessage(`{"de": {"sha256": "00"}}`), fileTableOptions())
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "/de.png", ops[0].Item.Name)
}

func TestDiffTableWithoutValidityPredicate(t *testing.T) {
	opts := patch.TableOptions[model.Attribute]{
		New: func(id string) model.Attribute {
			return model.Attribute{RepoID: 1, Kind: model.Category, ID: id}
		},
	}

	ops, err := patch.DiffTable("categories", nil, json.RawMessage(`{"Games": {}}`), opts)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, model.Attribute{RepoID: 1, Kind: model.Category, ID: "Games"}, ops[0].Item)
}

func TestDiffTableRejectsNonObject(t *testing.T) {
	_, err := patch.DiffTable("icon", nil, json.RawMessage(`[]`), fileTableOptions())
	assert.ErrorIs(t, err, patch.ErrWrongType)

	_, err = patch.DiffTable("icon", nil, json.RawMessage(`{"de": "x"}`), fileTableOptions())
	assert.ErrorIs(t, err, patch.ErrWrongType)
}

func decodeFiles(_ string, raw json.RawMessage) ([]model.File, error) {
	var files []model.File
	err := json.Unmarshal(raw, &files)
	return files, err
}

func TestDiffListTable(t *testing.T) {
	ops, err := patch.DiffListTable("phone", nil, decodeFiles)
	require.NoError(t, err)
	assert.Empty(t, ops)

	ops, err = patch.DiffListTable("phone", json.RawMessage(`null`), decodeFiles)
	require.NoError(t, err)
	assert.Equal(t, []patch.ListOp[model.File]{{Kind: patch.OpDeleteAll}}, ops)

	ops, err = patch.DiffListTable("phone", json.RawMessage(`{"de": null, "en-US": [{"name": "/1.png"}, {"name": "/2.png"}]}`), decodeFiles)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, patch.ListOp[model.File]{Kind: patch.OpDelete, Key: "de"}, ops[0])
	assert.Equal(t, patch.OpUpsert, ops[1].Kind)
	assert.Equal(t, []model.File{{Name: "/1.png"}, {Name: "/2.png"}}, ops[1].Items)

	_, err = patch.DiffListTable("phone", json.RawMessage(`{"de": {"name": "/x.png"}}`), decodeFiles)
	assert.ErrorIs(t, err, patch.ErrWrongType)
}

func TestOpKindString(t *testing.T) {
	assert.Equal(t, "upsert", patch.OpUpsert.String())
	assert.Equal(t, "delete", patch.OpDelete.String())
	assert.Equal(t, "delete-all", patch.OpDeleteAll.String())
}
