package decider

import (
	"context"
	"time"

	"github.com/AnuragDani/gateway-decider/internal/models"
)

// Storage is the read-only configuration storage the decider consults.
// Any error is treated as "value absent" by the caller.
type Storage interface {
	MerchantGatewayAccounts(ctx context.Context, merchantID string) ([]models.MerchantGatewayAccount, error)
	GatewayCardInfo(ctx context.Context, q models.CardInfoQuery) ([]models.GatewayCardInfo, error)
	GatewayBankEmiSupport(ctx context.Context, q models.EmiSupportQuery) ([]models.GatewayBankEmiSupport, error)
	GatewayBankEmiSupportV2(ctx context.Context, q models.EmiSupportQuery) ([]models.GatewayBankEmiSupportV2, error)
	ScheduledOutages(ctx context.Context, from, to time.Time) ([]models.ScheduledOutage, error)
}
