package snapshotsvc

import (
	"context"

	"github.com/fulldump/box"

	"github.com/fulldump/snaptable/registry"
)

// Build wires the operational HTTP surface onto b: list/create tables,
// insert rows, trigger compaction and run a streamed snapshot export.
// Grounded on api/apicollectionv1/0_build.go's resource tree.
func Build(b *box.B, r *registry.Registry) *box.B {

	b.Resource("/tables").
		WithActions(
			box.Get(listTables),
			box.Post(createTable),
		)

	b.Resource("/tables/{tableName}").
		WithActions(
			box.ActionPost(insert),
			box.ActionPost(compact),
			box.ActionPost(snapshotExport),
		)

	b.WithInterceptors(injectRegistry(r))

	return b
}

func injectRegistry(r *registry.Registry) box.I {
	return func(next box.H) box.H {
		return func(ctx context.Context) {
			next(SetRegistry(ctx, r))
		}
	}
}
