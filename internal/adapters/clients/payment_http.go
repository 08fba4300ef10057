// Package clients holds outbound adapters for peer services.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/venturelink/deal-service/internal/domain"
	"github.com/venturelink/deal-service/internal/ports"
)

// HTTPPaymentClient asks the payment rail to place escrow holds. Settlement
// stays with the rail; confirmations come back over the webhook.
type HTTPPaymentClient struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

func NewHTTPPaymentClient(baseURL, authToken string, httpClient *http.Client) *HTTPPaymentClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPPaymentClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authToken:  authToken,
		httpClient: httpClient,
	}
}

type holdFundsRequest struct {
	ContractID  string  `json:"contract_id"`
	MilestoneID string  `json:"milestone_id"`
	PayerID     string  `json:"payer_id"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
}

type holdFundsResponse struct {
	ReferenceID string `json:"reference_id"`
	Status      string `json:"status"`
}

func (c *HTTPPaymentClient) HoldFunds(ctx context.Context, req ports.HoldFundsRequest) (ports.HoldFundsResult, error) {
	body, err := json.Marshal(holdFundsRequest{
		ContractID:  req.ContractID,
		MilestoneID: req.MilestoneID,
		PayerID:     req.PayerID,
		Amount:      req.Amount,
		Currency:    req.Currency,
	})
	if err != nil {
		return ports.HoldFundsResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/v1/holds", bytes.NewReader(body))
	if err != nil {
		return ports.HoldFundsResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ports.HoldFundsResult{}, fmt.Errorf("%w: payment rail unreachable: %v", domain.ErrExternalDependency, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ports.HoldFundsResult{}, fmt.Errorf("%w: hold rejected: status=%d body=%s",
			domain.ErrExternalDependency, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded holdFundsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.HoldFundsResult{}, fmt.Errorf("%w: decode hold response: %v", domain.ErrExternalDependency, err)
	}
	if decoded.ReferenceID == "" {
		return ports.HoldFundsResult{}, fmt.Errorf("%w: hold response missing reference_id", domain.ErrExternalDependency)
	}
	return ports.HoldFundsResult{
		ReferenceID: decoded.ReferenceID,
		Confirmed:   strings.EqualFold(decoded.Status, "held") || strings.EqualFold(decoded.Status, "confirmed"),
	}, nil
}
