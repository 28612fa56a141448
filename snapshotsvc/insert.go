package snapshotsvc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/fulldump/box"

	"github.com/fulldump/snaptable/registry"
)

// insert streams newline-delimited JSON documents from the request
// body into the named table, one Table.Insert per document. Grounded
// on api/apicollectionv1/insert.go's decode-loop shape.
func insert(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	reg := GetRegistry(ctx)
	tableName := box.GetUrlParameter(ctx, "tableName")
	t, err := reg.GetTable(tableName)
	if err == registry.ErrTableNotFound {
		t, err = reg.CreateTable(tableName)
	}
	if err != nil {
		return err
	}

	jsonReader := json.NewDecoder(r.Body)
	jsonWriter := json.NewEncoder(w)

	for i := 0; ; i++ {
		var doc map[string]any
		err := jsonReader.Decode(&doc)
		if err == io.EOF {
			if i == 0 {
				w.WriteHeader(http.StatusNoContent)
			}
			return nil
		}
		if err != nil {
			if i == 0 {
				w.WriteHeader(http.StatusBadRequest)
			}
			return err
		}

		payload, err := json.Marshal(doc)
		if err != nil {
			return err
		}

		tup, err := t.Insert(payload)
		if err != nil {
			if i == 0 {
				w.WriteHeader(http.StatusConflict)
			}
			return err
		}

		if i == 0 {
			w.WriteHeader(http.StatusCreated)
		}
		jsonWriter.Encode(tup.Address)
	}
}
