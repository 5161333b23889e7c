package decider

import (
	"context"
	"encoding/json"

	"github.com/AnuragDani/gateway-decider/internal/telemetry"
)

// emit ships a checkpoint record; encoding failures drop the payload only
func (d *Decider) emit(ctx context.Context, dc *DecisionContext, stage string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		d.log.Warn("Failed to encode telemetry payload", "stage", stage, "error", err)
		raw = nil
	}
	a := dc.Attributes
	d.emitter.Emit(ctx, telemetry.MessageFormat{
		Model:             string(dc.Txn.TxnObjectType),
		PaymentMethod:     a.PaymentMethod,
		PaymentMethodType: string(a.PaymentMethodType),
		PaymentSource:     a.PaymentSource,
		MerchantID:        dc.Merchant.MerchantID,
		TxnUUID:           dc.Txn.TxnUUID,
		OrderID:           dc.Order.OrderID,
		CardType:          a.CardType,
		AuthType:          string(a.AuthType),
		BankCode:          a.BankCode,
		Stage:             stage,
		LogData:           raw,
		Timestamp:         d.now(),
	})
}
