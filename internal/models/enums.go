package models

// PaymentMethodType is the instrument family of a transaction
type PaymentMethodType string

const (
	PaymentMethodTypeCard              PaymentMethodType = "CARD"
	PaymentMethodTypeNB                PaymentMethodType = "NB"
	PaymentMethodTypeWallet            PaymentMethodType = "WALLET"
	PaymentMethodTypeUPI               PaymentMethodType = "UPI"
	PaymentMethodTypeConsumerFinance   PaymentMethodType = "CONSUMER_FINANCE"
	PaymentMethodTypeReward            PaymentMethodType = "REWARD"
	PaymentMethodTypeCash              PaymentMethodType = "CASH"
	PaymentMethodTypeMerchantContainer PaymentMethodType = "MERCHANT_CONTAINER"
)

// AuthType is the authentication flow of a card transaction
type AuthType string

const (
	AuthTypeThreeDS   AuthType = "THREE_DS"
	AuthTypeOTP       AuthType = "OTP"
	AuthTypeMOTO      AuthType = "MOTO"
	AuthTypeNoThreeDS AuthType = "NO_THREE_DS"
	AuthTypeVIES      AuthType = "VIES"
)

// TxnObjectType classifies mandate, e-mandate and TPV transactions
type TxnObjectType string

const (
	TxnObjectOrderPayment        TxnObjectType = "ORDER_PAYMENT"
	TxnObjectMandateRegister     TxnObjectType = "MANDATE_REGISTER"
	TxnObjectMandatePayment      TxnObjectType = "MANDATE_PAYMENT"
	TxnObjectEmandateRegister    TxnObjectType = "EMANDATE_REGISTER"
	TxnObjectEmandatePayment     TxnObjectType = "EMANDATE_PAYMENT"
	TxnObjectTpvPayment          TxnObjectType = "TPV_PAYMENT"
	TxnObjectTpvMandateRegister  TxnObjectType = "TPV_MANDATE_REGISTER"
	TxnObjectTpvMandatePayment   TxnObjectType = "TPV_MANDATE_PAYMENT"
	TxnObjectTpvEmandateRegister TxnObjectType = "TPV_EMANDATE_REGISTER"
	TxnObjectTpvEmandatePayment  TxnObjectType = "TPV_EMANDATE_PAYMENT"
	TxnObjectReversePennyDrop    TxnObjectType = "REVERSE_PENNY_DROP"
)

// ValidationType selects which GatewayCardInfo records apply
type ValidationType string

const (
	ValidationTypeNone        ValidationType = ""
	ValidationTypeCardMandate ValidationType = "CARD_MANDATE"
	ValidationTypeTpv         ValidationType = "TPV"
	ValidationTypeTpvMandate  ValidationType = "TPV_MANDATE"
	ValidationTypeEmandate    ValidationType = "EMANDATE"
	ValidationTypeTpvEmandate ValidationType = "TPV_EMANDATE"
	ValidationTypeEmi         ValidationType = "EMI"
)

// EmiType distinguishes standard, no-cost and low-cost EMI
type EmiType string

const (
	EmiTypeStandard EmiType = "STANDARD_EMI"
	EmiTypeNoCost   EmiType = "NO_COST_EMI"
	EmiTypeLowCost  EmiType = "LOW_COST_EMI"
)

// TokenRepeatKind is the kind of stored token a repeat transaction uses
type TokenRepeatKind string

const (
	TokenRepeatNone         TokenRepeatKind = "NONE"
	TokenRepeatNetworkToken TokenRepeatKind = "NETWORK_TOKEN"
	TokenRepeatIssuerToken  TokenRepeatKind = "ISSUER_TOKEN"
	TokenRepeatAltID        TokenRepeatKind = "ALT_ID"
)

// EliminationLevel is the dimension granularity of SR elimination
type EliminationLevel string

const (
	EliminationLevelNone                EliminationLevel = "NONE"
	EliminationLevelGateway             EliminationLevel = "GATEWAY"
	EliminationLevelPaymentMethod       EliminationLevel = "PAYMENT_METHOD"
	EliminationLevelPaymentMethodType   EliminationLevel = "PAYMENT_METHOD_TYPE"
	EliminationLevelForcedPaymentMethod EliminationLevel = "FORCED_PAYMENT_METHOD"
)

// GatewayDeciderApproach is reported to the caller alongside the score map
type GatewayDeciderApproach string

const (
	ApproachDefault                   GatewayDeciderApproach = "DEFAULT"
	ApproachNone                      GatewayDeciderApproach = "NONE"
	ApproachPriorityLogic             GatewayDeciderApproach = "PRIORITY_LOGIC"
	ApproachPLDowntimeRouting         GatewayDeciderApproach = "PL_DOWNTIME_ROUTING"
	ApproachPLGlobalDowntimeRouting   GatewayDeciderApproach = "PL_GLOBAL_DOWNTIME_ROUTING"
	ApproachPLAllDowntimeRouting      GatewayDeciderApproach = "PL_ALL_DOWNTIME_ROUTING"
	ApproachSrV3Routing               GatewayDeciderApproach = "SR_SELECTION_V3_ROUTING"
	ApproachSrV3DowntimeRouting       GatewayDeciderApproach = "SR_V3_DOWNTIME_ROUTING"
	ApproachSrV3GlobalDowntimeRouting GatewayDeciderApproach = "SR_V3_GLOBAL_DOWNTIME_ROUTING"
	ApproachSrV3AllDowntimeRouting    GatewayDeciderApproach = "SR_V3_ALL_DOWNTIME_ROUTING"
	ApproachSrV3Hedging               GatewayDeciderApproach = "SR_V3_HEDGING"
	ApproachSrV3DowntimeHedging       GatewayDeciderApproach = "SR_V3_DOWNTIME_HEDGING"
	ApproachSrV3GlobalDowntimeHedging GatewayDeciderApproach = "SR_V3_GLOBAL_DOWNTIME_HEDGING"
	ApproachSrV3AllDowntimeHedging    GatewayDeciderApproach = "SR_V3_ALL_DOWNTIME_HEDGING"
	ApproachSrV3Explore               GatewayDeciderApproach = "SR_V3_EXPLORE"
)

// Constants for well-known attribute values
const (
	CurrencyINR = "INR"

	CardBrandAmex   = "AMEX"
	CardBrandSodexo = "SODEXO"

	PaymentSourceUpiIntent = "UPI_PAY"

	EmiScopeCard  = "CARD"
	EmiScopeToken = "TOKEN"
)
