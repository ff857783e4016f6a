package services

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bnpl-checkout/shared"
)

func testLauncher() *VerificationLauncher {
	return NewVerificationLauncher(LauncherConfig{
		StartURL:       "https://app.getvouch.io/start",
		BackendBaseURL: "https://backend.example.com/",
		CustomerID:     "cust-1",
		Datasources: map[shared.Source]string{
			shared.SourceRevolut: "ds-revolut",
			shared.SourceBinance: "ds-binance",
		},
	})
}

func TestLauncher_Prepare(t *testing.T) {
	l := testLauncher()

	req := l.Prepare(context.Background(), "req-1", shared.SourceBinance)
	assert.Equal(t, "ds-binance", req.DatasourceID)
	assert.Equal(t, "cust-1", req.CustomerID)
	assert.Equal(t, map[string]any{"currency": "USDT"}, req.Inputs)

	req = l.Prepare(context.Background(), "req-2", shared.SourceEtherfi)
	assert.Equal(t, "unknown", req.DatasourceID)
	assert.Nil(t, req.Inputs)
}

func TestLauncher_StartURL(t *testing.T) {
	l := testLauncher()
	req := l.Prepare(context.Background(), "req-1", shared.SourceBinance)

	raw, err := l.StartURL(req, "did:privy:1", "http://localhost:8080/auth/return?vouch_return=true")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "req-1", q.Get("requestId"))
	assert.Equal(t, "ds-binance", q.Get("datasourceId"))
	assert.Equal(t, "http://localhost:8080/auth/return?vouch_return=true", q.Get("redirectBackUrl"))
	assert.Equal(t, "https://backend.example.com/underwriting/vouch-binance?privyId=did%3Aprivy%3A1", q.Get("webhookUrl"))
	assert.JSONEq(t, `{"currency":"USDT"}`, q.Get("inputs"))
}

func TestExtractDetails_BySource(t *testing.T) {
	raw := json.RawMessage(`{
		"success": true,
		"data": {
			"revolutVouch": {
				"firstName": "Ada",
				"lastName": "<b>Lovelace</b>",
				"street": "1 Analytical Way",
				"city": "London",
				"zipCode": "N1",
				"country": "UK",
				"totalBalance": 1234.5
			},
			"etherfiVouch": {"firstName": "Other", "totalBalance": "99.10"}
		}
	}`)

	d := ExtractDetails(raw, shared.SourceRevolut)
	assert.Equal(t, "Ada", d.FirstName)
	assert.Equal(t, "Lovelace", d.LastName)
	assert.Equal(t, "1 Analytical Way, London, N1, UK", d.Address)
	assert.Equal(t, "1234.5", d.TotalBalance)

	d = ExtractDetails(raw, shared.SourceEtherfi)
	assert.Equal(t, "Other", d.FirstName)
	assert.Equal(t, "99.10", d.TotalBalance)
	assert.Empty(t, d.Address)
}

func TestExtractDetails_FallbackAndGarbage(t *testing.T) {
	d := ExtractDetails(json.RawMessage(`{"data":{"binanceVouch":{"firstName":"Bo"}}}`), "")
	assert.Equal(t, "Bo", d.FirstName)

	assert.Equal(t, shared.IdentityDetails{}, ExtractDetails(json.RawMessage(`[1,2]`), shared.SourceRevolut))
	assert.Equal(t, shared.IdentityDetails{}, ExtractDetails(json.RawMessage(`{"data":{}}`), shared.SourceBinance))
}
