package snapshotsvc

import (
	"net/http"
	"strings"
	"testing"

	"github.com/fulldump/apitest"
	"github.com/fulldump/biff"

	"github.com/fulldump/box"

	"github.com/fulldump/snaptable/registry"
)

func newTestAPI() *apitest.Apitest {
	r := registry.New(4)
	b := Build(box.NewBox(), r)
	return apitest.NewWithHandler(b)
}

func TestAcceptance(t *testing.T) {

	biff.Alternative("Setup", func(a *biff.A) {

		api := newTestAPI()

		biff.Alternative("Create a table", func(a *biff.A) {

			res := api.Request(http.MethodPost, "/tables").
				WithBodyJson(map[string]interface{}{"name": "orders"}).
				Do()

			biff.AssertEqual(res.StatusCode, http.StatusCreated)

			body := res.BodyJsonMap()
			biff.AssertEqual(body["name"], "orders")

			biff.Alternative("Creating it again fails", func(a *biff.A) {
				res := api.Request(http.MethodPost, "/tables").
					WithBodyJson(map[string]interface{}{"name": "orders"}).
					Do()
				biff.AssertEqual(res.StatusCode, http.StatusConflict)
			})

			biff.Alternative("Insert rows and list tables", func(a *biff.A) {

				insertRes := api.Request(http.MethodPost, "/tables/orders:insert").
					WithBodyString(`{"id":1}` + "\n" + `{"id":2}` + "\n").
					Do()
				biff.AssertEqual(insertRes.StatusCode, http.StatusCreated)

				listRes := api.Request(http.MethodGet, "/tables").Do()
				biff.AssertEqual(listRes.StatusCode, http.StatusOK)

				names, ok := listRes.BodyJson().([]interface{})
				biff.AssertTrue(ok)
				biff.AssertEqual(len(names), 1)

				biff.Alternative("Snapshot export streams every row", func(a *biff.A) {
					exportRes := api.Request(http.MethodPost, "/tables/orders:snapshotExport").
						WithBodyString("{}").
						Do()
					biff.AssertEqual(exportRes.StatusCode, http.StatusOK)

					lines := exportRes.BodyString()
					biff.AssertTrue(len(lines) > 0)
					biff.AssertEqual(strings.Count(lines, `"id"`), 2)
				})
			})
		})

		biff.Alternative("Operating on an unknown table returns 404", func(a *biff.A) {
			res := api.Request(http.MethodPost, "/tables/ghost:compact").
				WithBodyJson(map[string]interface{}{"blockId": 0}).
				Do()
			biff.AssertEqual(res.StatusCode, http.StatusNotFound)
		})
	})
}
