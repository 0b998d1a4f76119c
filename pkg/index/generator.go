package index

import (
	"encoding/json"

	pkgerrors "github.com/cperrin88/idxsync/pkg/errors"
	jsonpatch "github.com/evanphx/json-patch"
)

// CreateDiff builds a diff index that turns oldIndex into newIndex.
//
// The diff is the JSON merge patch between both documents, stamped with the
// old repository timestamp as "base". The repository timestamp of newIndex is
// always carried so the result is a valid diff document even when the
// repository section itself did not change.
func CreateDiff(oldIndex, newIndex []byte) ([]byte, error) {
	base, err := repoTimestamp(oldIndex)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "old index")
	}
	current, err := repoTimestamp(newIndex)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "new index")
	}

	merge, err := jsonpatch.CreateMergePatch(oldIndex, newIndex)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.KindStructural, "diff", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(merge, &doc); err != nil {
		return nil, classify(err)
	}

	repo := map[string]json.RawMessage{}
	if raw, ok := doc[KeyRepo]; ok {
		if err := json.Unmarshal(raw, &repo); err != nil {
			return nil, classify(err)
		}
	}
	repo[keyTimestamp] = mustMarshal(current)
	doc[KeyRepo] = mustMarshal(repo)
	doc[KeyBase] = mustMarshal(base)

	return json.Marshal(doc)
}

func repoTimestamp(document []byte) (int64, error) {
	var doc struct {
		Repo *struct {
			Timestamp *int64 `json:"timestamp"`
		} `json:"repo"`
	}
	if err := json.Unmarshal(document, &doc); err != nil {
		return 0, classify(err)
	}
	if doc.Repo == nil {
		return 0, shapeError("$."+KeyRepo, "missing")
	}
	if doc.Repo.Timestamp == nil {
		return 0, shapeError("$."+KeyRepo+"."+keyTimestamp, "missing")
	}
	return *doc.Repo.Timestamp, nil
}

// mustMarshal encodes values that cannot fail to encode.
func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
