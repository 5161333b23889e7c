package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnuragDani/gateway-decider/internal/models"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return New(conn), mock
}

var mgaColumns = []string{
	"id", "merchant_id", "gateway", "disabled", "reference_id",
	"supported_currencies", "payment_methods",
	"supports_seamless", "supports_subscription", "supports_emandate",
	"supports_reverse_penny_drop", "supports_otp", "supports_moto",
	"supports_no_three_ds", "supports_vies", "supports_upi_intent",
	"emi_tenures", "sub_accounts",
}

func TestMerchantGatewayAccounts(t *testing.T) {
	db, mock := newMockDB(t)
	rows := sqlmock.NewRows(mgaColumns).
		AddRow("mga1", "m1", "GW1", false, "ref-1", []byte("{INR,USD}"), []byte("{VISA}"),
			true, false, false, false, true, false, false, false, true,
			[]byte("{3,6}"), []byte(`[{"sub_merchant_id":"s1","vendor_id":"v1"}]`)).
		AddRow("mga2", "m1", "GW2", true, nil, nil, nil,
			false, false, false, false, false, false, false, false, false,
			nil, nil)
	mock.ExpectQuery("SELECT (.+) FROM merchant_gateway_accounts").WithArgs("m1").WillReturnRows(rows)

	accounts, err := db.MerchantGatewayAccounts(context.Background(), "m1")

	require.NoError(t, err)
	require.Len(t, accounts, 2)
	first := accounts[0]
	assert.Equal(t, models.Gateway("GW1"), first.Gateway)
	assert.Equal(t, "ref-1", first.ReferenceID)
	assert.Equal(t, []string{"INR", "USD"}, first.SupportedCurrencies)
	assert.Equal(t, []string{"VISA"}, first.PaymentMethods)
	assert.True(t, first.SupportsSeamless)
	assert.True(t, first.SupportsOTP)
	assert.True(t, first.SupportsUpiIntent)
	assert.Equal(t, []int{3, 6}, first.EmiTenures)
	assert.Equal(t, []models.SubAccount{{SubMerchantID: "s1", VendorID: "v1"}}, first.SubAccounts)

	second := accounts[1]
	assert.True(t, second.Disabled)
	assert.Empty(t, second.ReferenceID)
	assert.Nil(t, second.SupportedCurrencies)
	assert.Nil(t, second.EmiTenures)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantGatewayAccounts_Errors(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("FROM merchant_gateway_accounts").WillReturnError(errors.New("connection reset"))

		_, err := db.MerchantGatewayAccounts(context.Background(), "m1")
		assert.ErrorContains(t, err, "connection reset")
	})

	t.Run("bad sub accounts", func(t *testing.T) {
		db, mock := newMockDB(t)
		rows := sqlmock.NewRows(mgaColumns).
			AddRow("mga1", "m1", "GW1", false, nil, nil, nil,
				false, false, false, false, false, false, false, false, false,
				nil, []byte("{not json"))
		mock.ExpectQuery("FROM merchant_gateway_accounts").WillReturnRows(rows)

		_, err := db.MerchantGatewayAccounts(context.Background(), "m1")
		assert.ErrorContains(t, err, "decode sub accounts of mga1")
	})
}

func TestGatewayCardInfo(t *testing.T) {
	db, mock := newMockDB(t)
	rows := sqlmock.NewRows([]string{"id", "gateway", "isin", "validation_type", "auth_type", "disabled"}).
		AddRow("c1", "GW1", "411111", "CARD_MANDATE", "THREE_DS", false).
		AddRow("c2", "GW2", "411111", "CARD_MANDATE", nil, true)
	mock.ExpectQuery("SELECT (.+) FROM gateway_card_info").
		WithArgs("411111", pq.Array([]string{"GW1", "GW2"}), "CARD_MANDATE", "THREE_DS").
		WillReturnRows(rows)

	records, err := db.GatewayCardInfo(context.Background(), models.CardInfoQuery{
		ISIN:           "411111",
		Gateways:       []models.Gateway{"GW1", "GW2"},
		ValidationType: models.ValidationTypeCardMandate,
		AuthType:       models.AuthTypeThreeDS,
	})

	require.NoError(t, err)
	assert.Equal(t, []models.GatewayCardInfo{
		{ID: "c1", Gateway: "GW1", ISIN: "411111", ValidationType: models.ValidationTypeCardMandate, AuthType: models.AuthTypeThreeDS},
		{ID: "c2", Gateway: "GW2", ISIN: "411111", ValidationType: models.ValidationTypeCardMandate, Disabled: true},
	}, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGatewayQueries_NoGatewaysSkipsDatabase(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()

	cards, err := db.GatewayCardInfo(ctx, models.CardInfoQuery{ISIN: "411111"})
	assert.NoError(t, err)
	assert.Nil(t, cards)
	emi, err := db.GatewayBankEmiSupport(ctx, models.EmiSupportQuery{Bank: "HDFC"})
	assert.NoError(t, err)
	assert.Nil(t, emi)
	emiV2, err := db.GatewayBankEmiSupportV2(ctx, models.EmiSupportQuery{Bank: "HDFC"})
	assert.NoError(t, err)
	assert.Nil(t, emiV2)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGatewayBankEmiSupport(t *testing.T) {
	db, mock := newMockDB(t)
	rows := sqlmock.NewRows([]string{"id", "gateway", "emi_bank", "tenure", "scope"}).
		AddRow("e1", "GW1", "HDFC", 6, "NORMAL")
	mock.ExpectQuery("SELECT (.+) FROM gateway_bank_emi_support WHERE").
		WithArgs("HDFC", pq.Array([]string{"GW1", "GW3"}), "NORMAL", 6).
		WillReturnRows(rows)

	records, err := db.GatewayBankEmiSupport(context.Background(), models.EmiSupportQuery{
		Bank: "HDFC", Gateways: []models.Gateway{"GW1", "GW3"}, Scope: "NORMAL", Tenure: 6,
	})

	require.NoError(t, err)
	assert.Equal(t, []models.GatewayBankEmiSupport{{ID: "e1", Gateway: "GW1", EmiBank: "HDFC", Tenure: 6, Scope: "NORMAL"}}, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGatewayBankEmiSupportV2(t *testing.T) {
	db, mock := newMockDB(t)
	rows := sqlmock.NewRows([]string{"id", "gateway", "emi_bank", "card_type", "tenure", "scope", "disabled"}).
		AddRow("e1", "GW1", "HDFC", "CREDIT", 3, "NORMAL", false).
		AddRow("e2", "GW2", "HDFC", "CREDIT", 3, "NORMAL", true)
	mock.ExpectQuery("FROM gateway_bank_emi_support_v2").
		WithArgs("HDFC", pq.Array([]string{"GW1", "GW2"}), "NORMAL", 3, "CREDIT").
		WillReturnRows(rows)

	records, err := db.GatewayBankEmiSupportV2(context.Background(), models.EmiSupportQuery{
		Bank: "HDFC", Gateways: []models.Gateway{"GW1", "GW2"}, Scope: "NORMAL", Tenure: 3, CardType: "CREDIT",
	})

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.False(t, records[0].Disabled)
	assert.True(t, records[1].Disabled)
	assert.Equal(t, "CREDIT", records[1].CardType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledOutages(t *testing.T) {
	db, mock := newMockDB(t)
	to := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	from := to.Add(-30 * time.Minute)
	rows := sqlmock.NewRows([]string{
		"id", "merchant_id", "gateway", "payment_method_type", "payment_method",
		"bank_code", "bank_name", "start_time", "end_time", "metadata",
	}).
		AddRow("o1", nil, "GW1", "CARD", nil, nil, nil, from, to, []byte(`{"card_type":"CREDIT","txn_object_type":"MANDATE_PAYMENT"}`)).
		AddRow("o2", "m1", nil, "UPI", "UPI_COLLECT", "HDFC", "HDFC Bank", from, to, []byte("{broken"))
	mock.ExpectQuery("SELECT (.+) FROM scheduled_outages").WithArgs(from, to).WillReturnRows(rows)

	outages, err := db.ScheduledOutages(context.Background(), from, to)

	require.NoError(t, err)
	require.Len(t, outages, 2)
	assert.Equal(t, models.ScheduledOutage{
		ID:                "o1",
		Gateway:           "GW1",
		PaymentMethodType: models.PaymentMethodTypeCard,
		StartTime:         from,
		EndTime:           to,
		Metadata:          models.OutageMetadata{CardType: "CREDIT", TxnObjectType: models.TxnObjectMandatePayment},
	}, outages[0])
	assert.Equal(t, "m1", outages[1].MerchantID)
	assert.Equal(t, "HDFC", outages[1].BankCode)
	assert.Equal(t, models.OutageMetadata{}, outages[1].Metadata, "unreadable metadata narrows nothing")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealth(t *testing.T) {
	db, _ := newMockDB(t)
	ctx := context.Background()

	assert.Equal(t, "healthy", db.Health(ctx)["status"])

	require.NoError(t, db.Close())
	health := db.Health(ctx)
	assert.Equal(t, "unhealthy", health["status"])
	assert.NotEmpty(t, health["error"])

	assert.Equal(t, "unhealthy", (&DB{}).Health(ctx)["status"])
}
