package decider

import (
	"github.com/AnuragDani/gateway-decider/internal/models"
)

// PriorityLogicOutput is the result of the merchant's priority logic script,
// evaluated upstream of the decider
type PriorityLogicOutput struct {
	Gateways            []models.Gateway          `json:"gateways,omitempty"`
	GatewayReferenceIDs map[models.Gateway]string `json:"gateway_reference_ids,omitempty"`
}

// DebugFilterEntry records the gateway set after one filter stage
type DebugFilterEntry struct {
	Stage    string           `json:"stage"`
	Gateways []models.Gateway `json:"gateways"`
}

// DebugScoringEntry records the score map after one scoring stage
type DebugScoringEntry struct {
	Stage  string                 `json:"stage"`
	Scores models.GatewayScoreMap `json:"scores"`
}

// DebugTrail is the append-only audit of one decision
type DebugTrail struct {
	Filters []DebugFilterEntry  `json:"filters"`
	Scoring []DebugScoringEntry `json:"scoring"`
}

func (t *DebugTrail) addFilter(stage string, gws []models.Gateway) {
	t.Filters = append(t.Filters, DebugFilterEntry{Stage: stage, Gateways: gws})
}

func (t *DebugTrail) addScoring(stage string, scores models.GatewayScoreMap) {
	t.Scoring = append(t.Scoring, DebugScoringEntry{Stage: stage, Scores: scores.Clone()})
}

// DecisionContext is the per-transaction state. The caller builds it, the
// decider mutates it in place and the caller reads it back.
type DecisionContext struct {
	ID            string
	Merchant      models.MerchantAccount
	Order         models.Order
	Txn           models.TxnDetail
	Card          models.TxnCardInfo
	PriorityLogic PriorityLogicOutput

	Attributes Attributes
	Functional FunctionalGateways
	Trail      DebugTrail
}

// DownTime classifies the outage and global elimination hits of a decision
type DownTime string

const (
	NoDownTime     DownTime = "NO_DOWNTIME"
	Downtime       DownTime = "DOWNTIME"
	GlobalDowntime DownTime = "GLOBAL_DOWNTIME"
	AllDowntime    DownTime = "ALL_DOWNTIME"
)

// ResetApproach reports which reset paths fired during scoring
type ResetApproach string

const (
	NoReset              ResetApproach = "NONE"
	SrV2Reset            ResetApproach = "SRV2_RESET"
	SrV3Reset            ResetApproach = "SRV3_RESET"
	EliminationReset     ResetApproach = "ELIMINATION_RESET"
	SrV2EliminationReset ResetApproach = "SRV2_ELIMINATION_RESET"
	SrV3EliminationReset ResetApproach = "SRV3_ELIMINATION_RESET"
)

// Decision is what the decider returns to the caller
type Decision struct {
	DecisionID         string                          `json:"decision_id"`
	Scores             models.GatewayScoreMap          `json:"scores"`
	Approach           models.GatewayDeciderApproach   `json:"approach"`
	ResetApproach      ResetApproach                   `json:"reset_approach"`
	DownTime           DownTime                        `json:"downtime"`
	TopGateway         models.Gateway                  `json:"top_gateway,omitempty"`
	FunctionalGateways []models.Gateway                `json:"functional_gateways"`
	Accounts           []models.MerchantGatewayAccount `json:"accounts"`
	Trail              DebugTrail                      `json:"trail"`
}
