package source

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GatewayClient talks to a payment gateway service that holds the source
// ledger wallet and does the actual signing and submission. It implements
// both Submitter and AddressResolver.
type GatewayClient struct {
	url    string
	client *http.Client
}

func NewGatewayClient(url string, client *http.Client) *GatewayClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GatewayClient{url: url, client: client}
}

type submitPaymentRequest struct {
	Amount      string `json:"amount"`
	Destination string `json:"destination"`
	Memo        string `json:"memo"`
}

type submitPaymentResponse struct {
	TxID string `json:"tx_id"`
}

type transactionResponse struct {
	TxID       string `json:"tx_id"`
	LedgerTime int64  `json:"ledger_time"`
}

type operatorResponse struct {
	Address string `json:"address"`
}

// SubmitPayment implements Submitter.
func (c *GatewayClient) SubmitPayment(ctx context.Context, p Payment) (string, error) {
	body := submitPaymentRequest{
		Amount:      p.Amount.String(),
		Destination: p.Destination,
		Memo:        base64.StdEncoding.EncodeToString(p.Memo),
	}
	var resp submitPaymentResponse
	if err := c.do(ctx, http.MethodPost, "/payments", body, &resp); err != nil {
		return "", err
	}
	return resp.TxID, nil
}

// GetTransaction implements Submitter.
func (c *GatewayClient) GetTransaction(ctx context.Context, txID string) (Tx, error) {
	var resp transactionResponse
	if err := c.do(ctx, http.MethodGet, "/transactions/"+txID, nil, &resp); err != nil {
		return Tx{}, err
	}
	return Tx{
		ID:         resp.TxID,
		LedgerTime: time.Unix(resp.LedgerTime, 0).UTC(),
	}, nil
}

// OperatorAddress implements AddressResolver.
func (c *GatewayClient) OperatorAddress(ctx context.Context) (string, error) {
	var resp operatorResponse
	if err := c.do(ctx, http.MethodGet, "/operator", nil, &resp); err != nil {
		return "", err
	}
	return resp.Address, nil
}

func (c *GatewayClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		marshaled, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(marshaled)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(res.Body)
		return fmt.Errorf("gateway returned %d on %s %s: %s", res.StatusCode, method, path, payload)
	}
	return json.NewDecoder(res.Body).Decode(out)
}
