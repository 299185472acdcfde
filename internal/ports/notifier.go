package ports

import (
	"context"

	"github.com/alejandrodnm/backsim/internal/domain"
)

// Notifier presents the finished run to the user.
type Notifier interface {
	// Report renders the daily series and metrics.
	// La implementación de consola imprime una tabla formateada.
	Report(ctx context.Context, result *domain.RunResult) error
}
