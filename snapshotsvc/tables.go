package snapshotsvc

import (
	"context"
	"net/http"

	"github.com/fulldump/snaptable/registry"
)

type TableResponse struct {
	Name  string `json:"name"`
	Total int    `json:"total"`
}

func listTables(ctx context.Context) interface{} {
	r := GetRegistry(ctx)
	return r.ListTables()
}

type createTableRequest struct {
	Name string `json:"name"`
}

func createTable(ctx context.Context, w http.ResponseWriter, input *createTableRequest) (*TableResponse, error) {

	r := GetRegistry(ctx)

	t, err := r.CreateTable(input.Name)
	if err == registry.ErrTableAlreadyExists {
		w.WriteHeader(http.StatusConflict)
		return nil, err
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return nil, err
	}

	w.WriteHeader(http.StatusCreated)
	return &TableResponse{
		Name:  t.Name,
		Total: t.ActiveTupleCount(),
	}, nil
}
