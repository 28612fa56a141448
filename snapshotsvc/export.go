package snapshotsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SierraSoftworks/connor"
	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/fulldump/box"

	"github.com/fulldump/snaptable/snapshot"
	"github.com/fulldump/snaptable/table"
)

// batchSize is how many rows snapshotExport delivers between
// CheckRemainingTuples diagnostics, mirroring the original's
// "serialization batch" concept (spec.md's SerializationBatches
// counter) without committing this module to any particular on-wire
// batching format.
const batchSize = 1000

type snapshotExportRequest struct {
	Filter map[string]interface{} `json:"filter"`
}

// snapshotExport activates a copy-on-write scan over the named table
// and streams every row it yields as newline-delimited JSON, honoring
// an optional filter. This is the HTTP realization of spec.md §1's
// "snapshot streamer / serializer... assumed; the context exposes
// hooks" — the hook is Context.Advance, the streamer is this handler.
// Grounded on api/apicollectionv1/insertStream.go's chunked-response
// style and 0_traverse.go's connor.Match filter application.
func snapshotExport(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	reg := GetRegistry(ctx)
	tableName := box.GetUrlParameter(ctx, "tableName")
	t, err := reg.GetTable(tableName)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return err
	}

	var input snapshotExportRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil && err.Error() != "EOF" {
		w.WriteHeader(http.StatusBadRequest)
		return err
	}
	hasFilter := len(input.Filter) > 0

	w.Header().Set("Content-Type", "application/x-ndjson; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	surgeon := table.NewSurgeon(t)
	scan := snapshot.NewContext(t, surgeon, int64(t.ActiveTupleCount()))

	if err := scan.Activate(); err != nil {
		w.WriteHeader(http.StatusConflict)
		return err
	}

	enc := jsontext.NewEncoder(w)

	batch := 0
	for {
		tup, ok := scan.Advance()
		if !ok {
			break
		}

		emit := true
		if hasFilter {
			var row map[string]interface{}
			if err := json.Unmarshal(tup.Payload, &row); err != nil {
				return fmt.Errorf("unmarshal row for filter: %w", err)
			}
			match, err := connor.Match(input.Filter, row)
			if err != nil {
				return fmt.Errorf("match filter: %w", err)
			}
			emit = match
		}

		if emit {
			if err := jsonv2.MarshalEncode(enc, json.RawMessage(tup.Payload)); err != nil {
				return fmt.Errorf("encode row: %w", err)
			}
			w.Write([]byte("\n"))
		}

		if err := scan.CleanupTuple(tup, false); err != nil {
			return fmt.Errorf("cleanup tuple: %w", err)
		}

		batch++
		if batch%batchSize == 0 {
			scan.CheckRemainingTuples(tableName)
		}
	}

	if err := scan.Err(); err != nil {
		return err
	}

	return nil
}
