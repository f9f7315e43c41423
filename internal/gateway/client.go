// Package gateway talks to the external payment-gateway verification
// endpoint. The gateway itself is outside this system; the reconciler
// only needs a yes/no plus the upstream transaction id and receipt.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/roomledger/roomledger/internal/ledger"
	"github.com/roomledger/roomledger/internal/models"
)

// Ensure Client implements ledger.GatewayVerifier
var _ ledger.GatewayVerifier = (*Client)(nil)

// Client verifies offline captures against an HTTP gateway endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a verification client for the given gateway base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type verifyRequest struct {
	OfflinePaymentID string `json:"offlinePaymentId"`
	BillID           string `json:"billId"`
	UserID           string `json:"userId"`
	AmountCents      int64  `json:"amountCents"`
	PaymentMethod    string `json:"paymentMethod"`
	DeviceID         string `json:"deviceId"`
	CapturedAt       int64  `json:"capturedAt"`
}

type verifyResponse struct {
	TransactionID string `json:"transactionId"`
	Receipt       string `json:"receipt"`
	Error         string `json:"error"`
}

// Verify asks the gateway to confirm a captured payment. A non-2xx
// response or an error body means the capture could not be verified.
func (c *Client) Verify(ctx context.Context, op *models.OfflinePayment) (string, string, error) {
	body, err := json.Marshal(verifyRequest{
		OfflinePaymentID: op.ID,
		BillID:           op.BillID,
		UserID:           op.UserID,
		AmountCents:      op.AmountCents,
		PaymentMethod:    op.PaymentMethod,
		DeviceID:         op.DeviceID,
		CapturedAt:       op.CapturedAt,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to encode verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	var vr verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return "", "", fmt.Errorf("gateway returned unreadable response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if vr.Error != "" {
			return "", "", fmt.Errorf("gateway rejected capture: %s", vr.Error)
		}
		return "", "", fmt.Errorf("gateway rejected capture: status %d", resp.StatusCode)
	}
	if vr.TransactionID == "" {
		return "", "", fmt.Errorf("gateway response missing transaction id")
	}

	return vr.TransactionID, vr.Receipt, nil
}
