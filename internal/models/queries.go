package models

// CardInfoQuery selects GatewayCardInfo rows for a bin (or bank code)
type CardInfoQuery struct {
	ISIN           string
	Gateways       []Gateway
	ValidationType ValidationType
	AuthType       AuthType
}

// EmiSupportQuery selects Gateway-Bank-EMI-Support rows
type EmiSupportQuery struct {
	Bank     string
	Gateways []Gateway
	Scope    string
	Tenure   int
	CardType string
}
