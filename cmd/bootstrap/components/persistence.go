package components

import (
	"keymint/internal/infra/db"
	"keymint/internal/infra/gateway"
	"keymint/internal/infra/readstore"
	"keymint/internal/infra/uow"
	"keymint/internal/usecase/queries"
	"keymint/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	fx.Provide(
		NewDBTX,
		uow.NewPostgresUoW,
		fx.Annotate(
			readstore.NewCatalogReadStore,
			fx.As(new(shared.CatalogReads)),
		),
		fx.Annotate(
			readstore.NewOrderReadStore,
			fx.As(new(queries.OrderReadStore)),
		),
		fx.Annotate(
			gateway.NewInvoiceClient,
			fx.As(new(shared.InvoiceGateway)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}
