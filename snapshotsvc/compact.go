package snapshotsvc

import (
	"context"
	"net/http"

	"github.com/fulldump/box"
)

type compactRequest struct {
	BlockID int `json:"blockId"`
}

// compact is an operational escape hatch: nothing in this module
// triggers compaction on its own (spec.md has no opinion on
// compaction policy), so an operator drives it explicitly.
func compact(ctx context.Context, w http.ResponseWriter, input *compactRequest) error {

	reg := GetRegistry(ctx)
	tableName := box.GetUrlParameter(ctx, "tableName")
	t, err := reg.GetTable(tableName)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return err
	}

	if err := t.Compact(input.BlockID); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
