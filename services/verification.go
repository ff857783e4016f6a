package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"bnpl-checkout/logger"
	"bnpl-checkout/shared"
)

const unknownDatasource = "unknown"

// LauncherConfig holds the partner identifiers used to start a verification.
type LauncherConfig struct {
	StartURL       string
	BackendBaseURL string
	CustomerID     string
	Datasources    map[shared.Source]string
}

// VerificationLauncher builds partner start URLs for redirect-based
// verification.
type VerificationLauncher struct {
	cfg LauncherConfig
}

func NewVerificationLauncher(cfg LauncherConfig) *VerificationLauncher {
	return &VerificationLauncher{cfg: cfg}
}

// Prepare completes a verification request with the configured partner ids.
// A missing datasource id is logged and replaced with a placeholder.
func (l *VerificationLauncher) Prepare(ctx context.Context, requestID string, source shared.Source) shared.VerificationRequest {
	ds := l.cfg.Datasources[source]
	if ds == "" {
		logger.FromContext(ctx).Error("Missing verification datasource id", "source", source)
		ds = unknownDatasource
	}
	req := shared.VerificationRequest{
		RequestID:    requestID,
		Source:       source,
		CustomerID:   l.cfg.CustomerID,
		DatasourceID: ds,
	}
	if source == shared.SourceBinance {
		req.Inputs = map[string]any{"currency": "USDT"}
	}
	return req
}

// WebhookURL is where the partner posts the verification result for a user.
func (l *VerificationLauncher) WebhookURL(source shared.Source, userID string) string {
	return fmt.Sprintf("%s/underwriting/vouch-%s?privyId=%s",
		strings.TrimRight(l.cfg.BackendBaseURL, "/"), source, url.QueryEscape(userID))
}

// StartURL builds the URL the shopper is sent to.
func (l *VerificationLauncher) StartURL(req shared.VerificationRequest, userID, redirectBackURL string) (string, error) {
	base, err := url.Parse(l.cfg.StartURL)
	if err != nil || base.Scheme == "" {
		return "", fmt.Errorf("invalid verification start url %q", l.cfg.StartURL)
	}
	q := base.Query()
	q.Set("requestId", req.RequestID)
	q.Set("datasourceId", req.DatasourceID)
	q.Set("customerId", req.CustomerID)
	q.Set("redirectBackUrl", redirectBackURL)
	q.Set("webhookUrl", l.WebhookURL(req.Source, userID))
	if len(req.Inputs) > 0 {
		inputs, err := json.Marshal(req.Inputs)
		if err != nil {
			return "", fmt.Errorf("encode inputs: %w", err)
		}
		q.Set("inputs", string(inputs))
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}

type vouchFields struct {
	FirstName    string          `json:"firstName"`
	LastName     string          `json:"lastName"`
	Street       string          `json:"street"`
	ZipCode      string          `json:"zipCode"`
	City         string          `json:"city"`
	Country      string          `json:"country"`
	TotalBalance json.RawMessage `json:"totalBalance"`
}

type vouchResult struct {
	Data *struct {
		Binance *vouchFields `json:"binanceVouch"`
		Revolut *vouchFields `json:"revolutVouch"`
		Etherfi *vouchFields `json:"etherfiVouch"`
	} `json:"data"`
}

var strict = bluemonday.StrictPolicy()

// ExtractDetails reads the identity fields for source out of a status
// payload. With no source, the first partner section present is used.
// Partner-provided text is stripped of markup.
func ExtractDetails(raw json.RawMessage, source shared.Source) shared.IdentityDetails {
	var res vouchResult
	if err := json.Unmarshal(raw, &res); err != nil || res.Data == nil {
		return shared.IdentityDetails{}
	}

	var f *vouchFields
	switch source {
	case shared.SourceBinance:
		f = res.Data.Binance
	case shared.SourceRevolut:
		f = res.Data.Revolut
	case shared.SourceEtherfi:
		f = res.Data.Etherfi
	default:
		for _, c := range []*vouchFields{res.Data.Binance, res.Data.Revolut, res.Data.Etherfi} {
			if c != nil {
				f = c
				break
			}
		}
	}
	if f == nil {
		return shared.IdentityDetails{}
	}

	var parts []string
	for _, p := range []string{f.Street, f.City, f.ZipCode, f.Country} {
		if p = clean(p); p != "" {
			parts = append(parts, p)
		}
	}
	return shared.IdentityDetails{
		FirstName:    clean(f.FirstName),
		LastName:     clean(f.LastName),
		Address:      strings.Join(parts, ", "),
		TotalBalance: balanceText(f.TotalBalance),
	}
}

func clean(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}

// balanceText accepts the balance as either a JSON string or number.
func balanceText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return clean(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
