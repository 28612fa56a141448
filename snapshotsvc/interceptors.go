package snapshotsvc

import (
	"context"

	"github.com/fulldump/snaptable/registry"
)

const contextRegistryKey = "a48f6b1e-1f3a-4b3e-9e9a-5c8f3b7a9d21"

func SetRegistry(ctx context.Context, r *registry.Registry) context.Context {
	return context.WithValue(ctx, contextRegistryKey, r)
}

func GetRegistry(ctx context.Context) *registry.Registry {
	return ctx.Value(contextRegistryKey).(*registry.Registry)
}
