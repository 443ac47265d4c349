package components

import (
	"keymint/internal/pkg/clock"
	"keymint/internal/usecase/commands"
	"keymint/internal/usecase/queries"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	fx.Provide(
		clock.NewRealClock,
		commands.NewCheckoutCommands,
		commands.NewWebhookCommands,
		queries.NewOrderQueries,
	),
)
