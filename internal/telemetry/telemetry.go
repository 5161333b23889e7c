package telemetry

import (
	"context"
	"encoding/json"
	"time"
)

// Checkpoint names at which the decider emits a MessageFormat record
const (
	StageOutageEvaluation        = "OUTAGE_EVALUATION"
	StageGlobalElimination       = "GLOBAL_ELIMINATION"
	StageSrV2Evaluation          = "SR_V2_EVALUATION"
	StageSrV3Evaluation          = "SR_V3_EVALUATION"
	StageGatewayLevelElimination = "GATEWAY_LEVEL_ELIMINATION"
	StageScoreReset              = "SCORE_RESET"
	StageFinalScoring            = "FINAL_SCORING"
)

// MessageFormat is the metric record shipped for external ingestion
type MessageFormat struct {
	Model             string          `json:"model"`
	PaymentMethod     string          `json:"payment_method"`
	PaymentMethodType string          `json:"payment_method_type"`
	PaymentSource     string          `json:"payment_source"`
	MerchantID        string          `json:"merchant_id"`
	TxnUUID           string          `json:"txn_uuid"`
	OrderID           string          `json:"order_id"`
	CardType          string          `json:"card_type"`
	AuthType          string          `json:"auth_type"`
	BankCode          string          `json:"bank_code"`
	Stage             string          `json:"stage"`
	LogData           json.RawMessage `json:"log_data"`
	Timestamp         time.Time       `json:"timestamp"`
}

// Emitter receives checkpoint records. Implementations must not block the
// decision for long; delivery is best effort.
type Emitter interface {
	Emit(ctx context.Context, msg MessageFormat)
}

// Nop drops every record
type Nop struct{}

func (Nop) Emit(context.Context, MessageFormat) {}

// Multi fans a record out to several emitters
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, msg MessageFormat) {
	for _, e := range m {
		if e != nil {
			e.Emit(ctx, msg)
		}
	}
}

// EmitterFunc adapts a function to Emitter
type EmitterFunc func(ctx context.Context, msg MessageFormat)

func (f EmitterFunc) Emit(ctx context.Context, msg MessageFormat) { f(ctx, msg) }
