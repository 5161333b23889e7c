// internal/models/models.go
package models

import (
	"time"
)

// Gateway names a payment processor integration
type Gateway string

// MerchantGatewayAccount is a merchant's configured account with one gateway
type MerchantGatewayAccount struct {
	ID                       string       `json:"id" db:"id"`
	MerchantID               string       `json:"merchant_id" db:"merchant_id"`
	Gateway                  Gateway      `json:"gateway" db:"gateway"`
	Disabled                 bool         `json:"disabled" db:"disabled"`
	ReferenceID              string       `json:"reference_id,omitempty" db:"reference_id"`
	SupportedCurrencies      []string     `json:"supported_currencies,omitempty" db:"supported_currencies"`
	PaymentMethods           []string     `json:"payment_methods,omitempty" db:"payment_methods"`
	SupportsSeamless         bool         `json:"supports_seamless" db:"supports_seamless"`
	SupportsSubscription     bool         `json:"supports_subscription" db:"supports_subscription"`
	SupportsEmandate         bool         `json:"supports_emandate" db:"supports_emandate"`
	SupportsReversePennyDrop bool         `json:"supports_reverse_penny_drop" db:"supports_reverse_penny_drop"`
	SupportsOTP              bool         `json:"supports_otp" db:"supports_otp"`
	SupportsMOTO             bool         `json:"supports_moto" db:"supports_moto"`
	SupportsNoThreeDS        bool         `json:"supports_no_three_ds" db:"supports_no_three_ds"`
	SupportsVIES             bool         `json:"supports_vies" db:"supports_vies"`
	SupportsUpiIntent        bool         `json:"supports_upi_intent" db:"supports_upi_intent"`
	EmiTenures               []int        `json:"emi_tenures,omitempty" db:"emi_tenures"`
	SubAccounts              []SubAccount `json:"sub_accounts,omitempty" db:"sub_accounts"`
}

// SubAccount is a vendor sub-merchant registered under an MGA
type SubAccount struct {
	SubMerchantID string `json:"sub_merchant_id"`
	VendorID      string `json:"vendor_id"`
}

// MerchantAccount carries the merchant-level routing configuration
type MerchantAccount struct {
	MerchantID                       string    `json:"merchant_id" db:"merchant_id"`
	GatewayReferenceIDRoutingEnabled bool      `json:"gateway_reference_id_routing_enabled" db:"gateway_reference_id_routing_enabled"`
	GatewaySuccessRateInput          string    `json:"gateway_success_rate_input,omitempty" db:"gateway_success_rate_input"`
	SrV3InputConfig                  string    `json:"sr_v3_input_config,omitempty" db:"sr_v3_input_config"`
	PriorityList                     []Gateway `json:"priority_list,omitempty" db:"priority_list"`
	HasAmbiguousMGAConfig            bool      `json:"has_ambiguous_mga_config" db:"has_ambiguous_mga_config"`
}

// Order is the order a transaction pays for
type Order struct {
	OrderID         string  `json:"order_id" db:"order_id"`
	MerchantID      string  `json:"merchant_id" db:"merchant_id"`
	Amount          float64 `json:"amount" db:"amount"`
	Currency        string  `json:"currency" db:"currency"`
	OrderType       string  `json:"order_type" db:"order_type"`
	Metadata        string  `json:"metadata,omitempty" db:"metadata"`
	SplitSettlement string  `json:"split_settlement,omitempty" db:"split_settlement"`
}

// TxnDetail is the transaction being routed
type TxnDetail struct {
	TxnID            string        `json:"txn_id" db:"txn_id"`
	TxnUUID          string        `json:"txn_uuid" db:"txn_uuid"`
	MerchantID       string        `json:"merchant_id" db:"merchant_id"`
	TxnType          string        `json:"txn_type,omitempty" db:"txn_type"`
	TxnObjectType    TxnObjectType `json:"txn_object_type,omitempty" db:"txn_object_type"`
	SourceObject     string        `json:"source_object,omitempty" db:"source_object"`
	IsEmi            bool          `json:"is_emi" db:"is_emi"`
	EmiBank          string        `json:"emi_bank,omitempty" db:"emi_bank"`
	EmiTenure        int           `json:"emi_tenure,omitempty" db:"emi_tenure"`
	EmiType          EmiType       `json:"emi_type,omitempty" db:"emi_type"`
	ExpressCheckout  bool          `json:"express_checkout" db:"express_checkout"`
	Seamless         bool          `json:"seamless" db:"seamless"`
	Currency         string        `json:"currency,omitempty" db:"currency"`
	Country          string        `json:"country,omitempty" db:"country"`
	InternalMetadata string        `json:"internal_metadata,omitempty" db:"internal_metadata"`
}

// TxnCardInfo holds the payment instrument details of a transaction
type TxnCardInfo struct {
	CardISIN           string            `json:"card_isin,omitempty" db:"card_isin"`
	CardIssuerBankName string            `json:"card_issuer_bank_name,omitempty" db:"card_issuer_bank_name"`
	CardType           string            `json:"card_type,omitempty" db:"card_type"`
	CardBrand          string            `json:"card_brand,omitempty" db:"card_switch_provider"`
	CardReference      string            `json:"card_reference,omitempty" db:"card_reference"`
	PaymentMethodType  PaymentMethodType `json:"payment_method_type" db:"payment_method_type"`
	PaymentMethod      string            `json:"payment_method,omitempty" db:"payment_method"`
	PaymentSource      string            `json:"payment_source,omitempty" db:"payment_source"`
	AuthType           AuthType          `json:"auth_type,omitempty" db:"auth_type"`
}

// GatewayCardInfo records whether a gateway supports a bin (or bank code)
// for a validation type and auth type
type GatewayCardInfo struct {
	ID             string         `json:"id" db:"id"`
	Gateway        Gateway        `json:"gateway" db:"gateway"`
	ISIN           string         `json:"isin" db:"isin"`
	ValidationType ValidationType `json:"validation_type,omitempty" db:"validation_type"`
	AuthType       AuthType       `json:"auth_type,omitempty" db:"auth_type"`
	Disabled       bool           `json:"disabled" db:"disabled"`
}

// GatewayBankEmiSupport is a V1 EMI support row
type GatewayBankEmiSupport struct {
	ID      string  `json:"id" db:"id"`
	Gateway Gateway `json:"gateway" db:"gateway"`
	EmiBank string  `json:"emi_bank" db:"emi_bank"`
	Tenure  int     `json:"tenure" db:"tenure"`
	Scope   string  `json:"scope" db:"scope"`
}

// GatewayBankEmiSupportV2 is a V2 EMI support row, additionally keyed by card type
type GatewayBankEmiSupportV2 struct {
	ID       string  `json:"id" db:"id"`
	Gateway  Gateway `json:"gateway" db:"gateway"`
	EmiBank  string  `json:"emi_bank" db:"emi_bank"`
	CardType string  `json:"card_type" db:"card_type"`
	Tenure   int     `json:"tenure" db:"tenure"`
	Scope    string  `json:"scope" db:"scope"`
	Disabled bool    `json:"disabled" db:"disabled"`
}

// ScheduledOutage is a planned or declared gateway/bank downtime window
type ScheduledOutage struct {
	ID                string            `json:"id" db:"id"`
	MerchantID        string            `json:"merchant_id,omitempty" db:"merchant_id"`
	Gateway           Gateway           `json:"gateway,omitempty" db:"gateway"`
	PaymentMethodType PaymentMethodType `json:"payment_method_type,omitempty" db:"payment_method_type"`
	PaymentMethod     string            `json:"payment_method,omitempty" db:"payment_method"`
	BankCode          string            `json:"bank_code,omitempty" db:"bank_code"`
	BankName          string            `json:"bank_name,omitempty" db:"bank_name"`
	StartTime         time.Time         `json:"start_time" db:"start_time"`
	EndTime           time.Time         `json:"end_time" db:"end_time"`
	Metadata          OutageMetadata    `json:"metadata" db:"metadata"`
}

// OutageMetadata narrows an outage to a subset of transactions
type OutageMetadata struct {
	TxnObjectType TxnObjectType `json:"txn_object_type,omitempty"`
	SourceObject  string        `json:"source_object,omitempty"`
	CardType      string        `json:"card_type,omitempty"`
	UpiApp        string        `json:"app,omitempty"`
	UpiHandle     string        `json:"handle,omitempty"`
}

// GatewayScore is the cached elimination counter for one dimension key
type GatewayScore struct {
	Score              float64 `json:"score"`
	TransactionCount   int64   `json:"transaction_count"`
	LastResetTimestamp int64   `json:"last_reset_timestamp"`
	Timestamp          int64   `json:"timestamp"`
}
