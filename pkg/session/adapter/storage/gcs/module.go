package gcs

import (
	"go.uber.org/fx"

	"github.com/hjyangBig2/lighter/pkg/session/adapter/storage"
)

// Module exports the GCS StorageProvider into the storage_providers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewGCSProvider,
		fx.As(new(storage.StorageProvider)),
		fx.ResultTags(`group:"`+storage.StorageProviderGroup+`"`),
	)),
)
