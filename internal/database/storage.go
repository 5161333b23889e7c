package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/AnuragDani/gateway-decider/internal/models"
)

// MerchantGatewayAccounts returns every gateway account configured for the merchant
func (db *DB) MerchantGatewayAccounts(ctx context.Context, merchantID string) ([]models.MerchantGatewayAccount, error) {
	query := `
		SELECT id, merchant_id, gateway, disabled, reference_id,
			   supported_currencies, payment_methods,
			   supports_seamless, supports_subscription, supports_emandate,
			   supports_reverse_penny_drop, supports_otp, supports_moto,
			   supports_no_three_ds, supports_vies, supports_upi_intent,
			   emi_tenures, sub_accounts
		FROM merchant_gateway_accounts
		WHERE merchant_id = $1
		ORDER BY id`

	rows, err := db.Conn.QueryContext(ctx, query, merchantID)
	if err != nil {
		return nil, fmt.Errorf("query merchant gateway accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.MerchantGatewayAccount
	for rows.Next() {
		var (
			mga         models.MerchantGatewayAccount
			referenceID sql.NullString
			tenures     pq.Int64Array
			subAccounts []byte
		)
		err := rows.Scan(
			&mga.ID, &mga.MerchantID, &mga.Gateway, &mga.Disabled, &referenceID,
			pq.Array(&mga.SupportedCurrencies), pq.Array(&mga.PaymentMethods),
			&mga.SupportsSeamless, &mga.SupportsSubscription, &mga.SupportsEmandate,
			&mga.SupportsReversePennyDrop, &mga.SupportsOTP, &mga.SupportsMOTO,
			&mga.SupportsNoThreeDS, &mga.SupportsVIES, &mga.SupportsUpiIntent,
			&tenures, &subAccounts,
		)
		if err != nil {
			return nil, fmt.Errorf("scan merchant gateway account: %w", err)
		}
		if referenceID.Valid {
			mga.ReferenceID = referenceID.String
		}
		for _, t := range tenures {
			mga.EmiTenures = append(mga.EmiTenures, int(t))
		}
		if len(subAccounts) > 0 {
			if err := json.Unmarshal(subAccounts, &mga.SubAccounts); err != nil {
				return nil, fmt.Errorf("decode sub accounts of %s: %w", mga.ID, err)
			}
		}
		accounts = append(accounts, mga)
	}
	return accounts, rows.Err()
}

// GatewayCardInfo returns the card info rows for a bin among the given
// gateways. An empty query auth type matches any row; a row without an
// auth type matches any query.
func (db *DB) GatewayCardInfo(ctx context.Context, q models.CardInfoQuery) ([]models.GatewayCardInfo, error) {
	if len(q.Gateways) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, gateway, isin, validation_type, auth_type, disabled
		FROM gateway_card_info
		WHERE isin = $1
		  AND gateway = ANY($2)
		  AND validation_type = $3
		  AND ($4 = '' OR auth_type IS NULL OR auth_type = '' OR auth_type = $4)`

	rows, err := db.Conn.QueryContext(ctx, query,
		q.ISIN, pq.Array(gatewayNames(q.Gateways)), string(q.ValidationType), string(q.AuthType))
	if err != nil {
		return nil, fmt.Errorf("query gateway card info: %w", err)
	}
	defer rows.Close()

	var records []models.GatewayCardInfo
	for rows.Next() {
		var (
			r        models.GatewayCardInfo
			authType sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Gateway, &r.ISIN, &r.ValidationType, &authType, &r.Disabled); err != nil {
			return nil, fmt.Errorf("scan gateway card info: %w", err)
		}
		r.AuthType = models.AuthType(authType.String)
		records = append(records, r)
	}
	return records, rows.Err()
}

// GatewayBankEmiSupport returns the V1 EMI support rows matching bank, scope and tenure
func (db *DB) GatewayBankEmiSupport(ctx context.Context, q models.EmiSupportQuery) ([]models.GatewayBankEmiSupport, error) {
	if len(q.Gateways) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, gateway, emi_bank, tenure, scope
		FROM gateway_bank_emi_support
		WHERE emi_bank = $1 AND gateway = ANY($2) AND scope = $3 AND tenure = $4`

	rows, err := db.Conn.QueryContext(ctx, query, q.Bank, pq.Array(gatewayNames(q.Gateways)), q.Scope, q.Tenure)
	if err != nil {
		return nil, fmt.Errorf("query gateway bank emi support: %w", err)
	}
	defer rows.Close()

	var records []models.GatewayBankEmiSupport
	for rows.Next() {
		var r models.GatewayBankEmiSupport
		if err := rows.Scan(&r.ID, &r.Gateway, &r.EmiBank, &r.Tenure, &r.Scope); err != nil {
			return nil, fmt.Errorf("scan gateway bank emi support: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GatewayBankEmiSupportV2 is GatewayBankEmiSupport additionally keyed by card type
func (db *DB) GatewayBankEmiSupportV2(ctx context.Context, q models.EmiSupportQuery) ([]models.GatewayBankEmiSupportV2, error) {
	if len(q.Gateways) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, gateway, emi_bank, card_type, tenure, scope, disabled
		FROM gateway_bank_emi_support_v2
		WHERE emi_bank = $1 AND gateway = ANY($2) AND scope = $3 AND tenure = $4 AND card_type = $5`

	rows, err := db.Conn.QueryContext(ctx, query,
		q.Bank, pq.Array(gatewayNames(q.Gateways)), q.Scope, q.Tenure, q.CardType)
	if err != nil {
		return nil, fmt.Errorf("query gateway bank emi support v2: %w", err)
	}
	defer rows.Close()

	var records []models.GatewayBankEmiSupportV2
	for rows.Next() {
		var r models.GatewayBankEmiSupportV2
		if err := rows.Scan(&r.ID, &r.Gateway, &r.EmiBank, &r.CardType, &r.Tenure, &r.Scope, &r.Disabled); err != nil {
			return nil, fmt.Errorf("scan gateway bank emi support v2: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ScheduledOutages returns the outages whose window intersects [from, to]
func (db *DB) ScheduledOutages(ctx context.Context, from, to time.Time) ([]models.ScheduledOutage, error) {
	query := `
		SELECT id, merchant_id, gateway, payment_method_type, payment_method,
			   bank_code, bank_name, start_time, end_time, metadata
		FROM scheduled_outages
		WHERE start_time <= $2 AND end_time >= $1
		ORDER BY start_time`

	rows, err := db.Conn.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query scheduled outages: %w", err)
	}
	defer rows.Close()

	var outages []models.ScheduledOutage
	for rows.Next() {
		var (
			o                                       models.ScheduledOutage
			merchantID, gateway, pmt, pm, code, bnk sql.NullString
			metadata                                []byte
		)
		err := rows.Scan(&o.ID, &merchantID, &gateway, &pmt, &pm, &code, &bnk,
			&o.StartTime, &o.EndTime, &metadata)
		if err != nil {
			return nil, fmt.Errorf("scan scheduled outage: %w", err)
		}
		o.MerchantID = merchantID.String
		o.Gateway = models.Gateway(gateway.String)
		o.PaymentMethodType = models.PaymentMethodType(pmt.String)
		o.PaymentMethod = pm.String
		o.BankCode = code.String
		o.BankName = bnk.String
		if len(metadata) > 0 {
			// unreadable metadata narrows nothing
			if err := json.Unmarshal(metadata, &o.Metadata); err != nil {
				o.Metadata = models.OutageMetadata{}
			}
		}
		outages = append(outages, o)
	}
	return outages, rows.Err()
}

func gatewayNames(gws []models.Gateway) []string {
	names := make([]string, len(gws))
	for i, gw := range gws {
		names[i] = string(gw)
	}
	return names
}
