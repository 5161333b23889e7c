package decider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/AnuragDani/gateway-decider/internal/models"
)

// Attributes are the transaction-level facts the filters and scorers read.
// They are derived once per decision from the raw records.
type Attributes struct {
	IsCard             bool
	IsEmi              bool
	IsMandate          bool
	IsEmandate         bool
	IsTpv              bool
	IsSeamless         bool
	IsReversePennyDrop bool
	IsCvvLess          bool
	IsAmexBta          bool
	IsGuestCheckout    bool
	ExpressCheckout    bool

	CardBrand         string
	CardType          string
	PaymentMethodType models.PaymentMethodType
	PaymentMethod     string
	PaymentSource     string
	AuthType          models.AuthType
	TokenRepeat       models.TokenRepeatKind
	TokenProvider     string
	ValidationType    models.ValidationType
	EmiScope          string
	BankCode          string
	BankName          string
	UpiApp            string
	UpiHandle         string

	MutualFund          bool
	CrossBorder         bool
	Sbmd                bool
	FlowSubMerchantIDs  []string
	SplitSubMerchantIDs []string

	InternalMetadata map[string]interface{}
	OrderMetadata    map[string]interface{}
}

// ResolveAttributes derives the transaction attributes from raw records.
// Malformed metadata reads as empty; the returned error joins the decode
// failures and the attributes are usable either way.
func ResolveAttributes(order models.Order, txn models.TxnDetail, card models.TxnCardInfo) (Attributes, error) {
	var errs []error
	internal, err := parseMetadata(txn.InternalMetadata)
	if err != nil {
		errs = append(errs, fmt.Errorf("internal metadata: %w", err))
	}
	orderMeta, err := parseMetadata(order.Metadata)
	if err != nil {
		errs = append(errs, fmt.Errorf("order metadata: %w", err))
	}

	a := Attributes{
		IsCard:             IsCardTransaction(card),
		IsEmi:              txn.IsEmi,
		IsMandate:          IsMandate(txn),
		IsEmandate:         IsEmandate(txn),
		IsTpv:              IsTpv(txn),
		IsSeamless:         txn.Seamless,
		IsReversePennyDrop: txn.TxnObjectType == models.TxnObjectReversePennyDrop || metaBool(internal, "isReversePennyDrop"),
		IsCvvLess:          metaBool(internal, "isCvvLessTxn"),
		IsAmexBta:          metaBool(internal, "isAmexBtaTxn"),
		ExpressCheckout:    txn.ExpressCheckout,
		CardBrand:          CardBrand(card),
		CardType:           strings.ToUpper(card.CardType),
		PaymentMethodType:  card.PaymentMethodType,
		PaymentMethod:      card.PaymentMethod,
		PaymentSource:      card.PaymentSource,
		AuthType:           card.AuthType,
		TokenRepeat:        TokenRepeatKind(card, internal),
		TokenProvider:      metaString(internal, "tokenProvider"),
		ValidationType:     ValidationType(txn, card),
		BankName:           card.CardIssuerBankName,
		UpiApp:             metaString(internal, "upiApp"),
		UpiHandle:          metaString(internal, "upiHandle"),
		MutualFund:         metaBool(orderMeta, "isMutualFund"),
		CrossBorder:        metaBool(orderMeta, "isCrossBorder"),
		Sbmd:               metaBool(orderMeta, "isSbmd"),
		FlowSubMerchantIDs: metaStrings(orderMeta, "vendorSubMerchantIds"),
		InternalMetadata:   internal,
		OrderMetadata:      orderMeta,
	}
	a.IsGuestCheckout = a.IsCard && card.CardReference == "" && a.TokenRepeat == models.TokenRepeatNone
	a.EmiScope = models.EmiScopeCard
	if a.TokenRepeat != models.TokenRepeatNone {
		a.EmiScope = models.EmiScopeToken
	}
	a.BankCode = bankCode(txn, card, internal)
	if a.SplitSubMerchantIDs, err = splitSubMerchantIDs(order.SplitSettlement); err != nil {
		errs = append(errs, fmt.Errorf("split settlement: %w", err))
	}
	return a, errors.Join(errs...)
}

func IsCardTransaction(card models.TxnCardInfo) bool {
	return card.PaymentMethodType == models.PaymentMethodTypeCard
}

func IsMandate(txn models.TxnDetail) bool {
	switch txn.TxnObjectType {
	case models.TxnObjectMandateRegister, models.TxnObjectMandatePayment,
		models.TxnObjectTpvMandateRegister, models.TxnObjectTpvMandatePayment:
		return true
	}
	return false
}

func IsEmandate(txn models.TxnDetail) bool {
	switch txn.TxnObjectType {
	case models.TxnObjectEmandateRegister, models.TxnObjectEmandatePayment,
		models.TxnObjectTpvEmandateRegister, models.TxnObjectTpvEmandatePayment:
		return true
	}
	return false
}

func IsTpv(txn models.TxnDetail) bool {
	switch txn.TxnObjectType {
	case models.TxnObjectTpvPayment, models.TxnObjectTpvMandateRegister, models.TxnObjectTpvMandatePayment,
		models.TxnObjectTpvEmandateRegister, models.TxnObjectTpvEmandatePayment:
		return true
	}
	return false
}

// CardBrand is the upper-cased card switch provider, empty for non-card txns
func CardBrand(card models.TxnCardInfo) string {
	if !IsCardTransaction(card) {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(card.CardBrand))
}

// TokenRepeatKind reads the token kind from internal metadata, then from
// the payment source
func TokenRepeatKind(card models.TxnCardInfo, internal map[string]interface{}) models.TokenRepeatKind {
	candidates := []string{metaString(internal, "tokenRepeatKind"), card.PaymentSource}
	for _, c := range candidates {
		switch kind := models.TokenRepeatKind(strings.ToUpper(c)); kind {
		case models.TokenRepeatNetworkToken, models.TokenRepeatIssuerToken, models.TokenRepeatAltID:
			return kind
		}
	}
	return models.TokenRepeatNone
}

// ValidationType maps the txn object type onto the card-info validation type
func ValidationType(txn models.TxnDetail, card models.TxnCardInfo) models.ValidationType {
	switch txn.TxnObjectType {
	case models.TxnObjectTpvPayment:
		return models.ValidationTypeTpv
	case models.TxnObjectTpvMandateRegister:
		return models.ValidationTypeTpvMandate
	case models.TxnObjectMandateRegister:
		if IsCardTransaction(card) {
			return models.ValidationTypeCardMandate
		}
	case models.TxnObjectEmandateRegister:
		return models.ValidationTypeEmandate
	case models.TxnObjectTpvEmandateRegister:
		return models.ValidationTypeTpvEmandate
	}
	return models.ValidationTypeNone
}

func bankCode(txn models.TxnDetail, card models.TxnCardInfo, internal map[string]interface{}) string {
	if code := metaString(internal, "bankCode"); code != "" {
		return code
	}
	if txn.IsEmi && txn.EmiBank != "" {
		return txn.EmiBank
	}
	if card.PaymentMethodType == models.PaymentMethodTypeNB {
		return card.PaymentMethod
	}
	return ""
}

type splitSettlement struct {
	Vendors []struct {
		SubMerchantID string  `json:"sub_mid"`
		Amount        float64 `json:"amount"`
	} `json:"vendors"`
}

func splitSubMerchantIDs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var split splitSettlement
	if err := json.Unmarshal([]byte(raw), &split); err != nil {
		return nil, err
	}
	var ids []string
	for _, v := range split.Vendors {
		if v.SubMerchantID != "" {
			ids = append(ids, v.SubMerchantID)
		}
	}
	return ids, nil
}

// parseMetadata decodes a JSON object; malformed input comes back empty
// alongside the decode error
func parseMetadata(raw string) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]interface{}{}, err
	}
	return out, nil
}

func metaString(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func metaBool(m map[string]interface{}, key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

func metaStrings(m map[string]interface{}, key string) []string {
	items, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
