package decider

import (
	"context"
	"strings"

	"github.com/AnuragDani/gateway-decider/internal/eligibility"
	"github.com/AnuragDani/gateway-decider/internal/models"
)

// ScoreKeyType selects which family of cache keys to build
type ScoreKeyType string

const (
	EliminationGlobalKey   ScoreKeyType = "ELIMINATION_GLOBAL_KEY"
	EliminationMerchantKey ScoreKeyType = "ELIMINATION_MERCHANT_KEY"
	GatewayLevelKey        ScoreKeyType = "GATEWAY_LEVEL_KEY"
	SrV2Key                ScoreKeyType = "SR_V2_KEY"
	SrV3Key                ScoreKeyType = "SR_V3_KEY"
)

const defaultOrderType = "ORDER_PAYMENT"

// SrRoutingDimensions are the optional transaction facts a merchant can add
// to its success-rate keys
type SrRoutingDimensions struct {
	CardNetwork string
	CardISIN    string
	Currency    string
	Country     string
	AuthType    string
}

// Dimension field names accepted in SR_DIMENSION_CONFIG_<merchant>
const (
	DimensionCardNetwork = "card_network"
	DimensionCardISIN    = "card_isin"
	DimensionCurrency    = "currency"
	DimensionCountry     = "country"
	DimensionAuthType    = "auth_type"
)

func (s SrRoutingDimensions) value(field string) string {
	switch field {
	case DimensionCardNetwork:
		return s.CardNetwork
	case DimensionCardISIN:
		return s.CardISIN
	case DimensionCurrency:
		return s.Currency
	case DimensionCountry:
		return s.Country
	case DimensionAuthType:
		return s.AuthType
	}
	return ""
}

type dimensionConfig struct {
	Fields []string `json:"fields"`
}

// KeyBuilder derives the score cache keys of one transaction
type KeyBuilder struct {
	MerchantID        string
	PaymentMethodType string
	PaymentMethod     string
	AuthType          string
	OrderType         string
	Dimensions        []string
}

// newKeyBuilder reads the merchant's dimension config; a missing or
// malformed config adds no dimensions
func (d *Decider) newKeyBuilder(ctx context.Context, merchantID string, order models.Order, txn models.TxnDetail, card models.TxnCardInfo, a Attributes) KeyBuilder {
	kb := KeyBuilder{
		MerchantID:        merchantID,
		PaymentMethodType: string(a.PaymentMethodType),
		PaymentMethod:     firstNonEmpty(a.PaymentMethod, a.CardBrand),
		AuthType:          string(a.AuthType),
		OrderType:         firstNonEmpty(order.OrderType, defaultOrderType),
	}
	var cfg dimensionConfig
	if d.lookup.Decode(ctx, "SR_DIMENSION_CONFIG_"+merchantID, &cfg) != eligibility.Found {
		return kb
	}
	dims := SrRoutingDimensions{
		CardNetwork: a.CardBrand,
		CardISIN:    isinPrefix(card.CardISIN),
		Currency:    firstNonEmpty(order.Currency, txn.Currency),
		Country:     txn.Country,
		AuthType:    string(a.AuthType),
	}
	for _, field := range cfg.Fields {
		if v := dims.value(strings.ToLower(strings.TrimSpace(field))); v != "" {
			kb.Dimensions = append(kb.Dimensions, v)
		}
	}
	return kb
}

func isinPrefix(isin string) string {
	if len(isin) > 6 {
		return isin[:6]
	}
	return isin
}

func (b KeyBuilder) levelParts(level models.EliminationLevel) []string {
	switch level {
	case models.EliminationLevelPaymentMethodType:
		return []string{b.PaymentMethodType}
	case models.EliminationLevelPaymentMethod:
		return []string{b.PaymentMethodType, b.PaymentMethod}
	case models.EliminationLevelForcedPaymentMethod:
		return []string{b.PaymentMethodType, b.PaymentMethod, b.AuthType}
	}
	return nil
}

// eliminationKey is gw_score_global_<level parts>_<gw> or
// gw_score_<mid>_<level parts>_<gw>
func (b KeyBuilder) eliminationKey(global bool, level models.EliminationLevel, gw models.Gateway) string {
	parts := []string{"gw_score"}
	if global {
		parts = append(parts, "global")
	} else {
		parts = append(parts, b.MerchantID)
	}
	parts = append(parts, b.levelParts(level)...)
	parts = append(parts, string(gw))
	return strings.Join(parts, "_")
}

func (b KeyBuilder) gatewayLevelKey(gw models.Gateway) string {
	return strings.Join([]string{"gw_score", "gwlevel", b.MerchantID, string(gw)}, "_")
}

func (b KeyBuilder) srBase(prefix string) []string {
	parts := []string{prefix, b.MerchantID, b.PaymentMethodType, b.PaymentMethod, b.OrderType}
	return append(parts, b.Dimensions...)
}

// srV2Key is shared by every gateway; the gateway is the hash field
func (b KeyBuilder) srV2Key() string {
	return strings.Join(b.srBase("gw_sr_v2"), "_")
}

func (b KeyBuilder) srV3Key(gw models.Gateway) string {
	return strings.Join(append(b.srBase("gw_sr_v3"), string(gw)), "_")
}

// Key returns the key of the given type for gw. level only applies to the
// elimination key types and the shared SR-V2 key ignores gw.
func (b KeyBuilder) Key(keyType ScoreKeyType, gw models.Gateway, level models.EliminationLevel) string {
	switch keyType {
	case EliminationGlobalKey:
		return b.eliminationKey(true, level, gw)
	case EliminationMerchantKey:
		return b.eliminationKey(false, level, gw)
	case GatewayLevelKey:
		return b.gatewayLevelKey(gw)
	case SrV2Key:
		return b.srV2Key()
	case SrV3Key:
		return b.srV3Key(gw)
	}
	return ""
}

// BuildKeys maps every gateway to its key of the given type. levelOf picks
// each gateway's elimination level and may be nil for the other types.
func (b KeyBuilder) BuildKeys(keyType ScoreKeyType, gws []models.Gateway, levelOf func(models.Gateway) models.EliminationLevel) map[models.Gateway]string {
	keys := make(map[models.Gateway]string, len(gws))
	for _, gw := range gws {
		var level models.EliminationLevel
		if levelOf != nil {
			level = levelOf(gw)
		}
		keys[gw] = b.Key(keyType, gw, level)
	}
	return keys
}
