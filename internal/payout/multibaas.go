// Package payout implements the external transfer collaborator that pays
// the winner's reward at game end. The consumed surface is a single signed
// token transfer returning a transaction hash.
package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// tokenDecimals scales the configured whole-token amount to the token's
// base units (USDC-style 6 decimals).
const tokenDecimals = 6

// Config holds MultiBaas HSM endpoint settings.
type Config struct {
	BaseURL       string
	APIKey        string
	Chain         string
	TokenAddress  string
	SenderAddress string
}

// MultiBaasClient submits signed ERC-20 transfers through the MultiBaas
// HSM API.
type MultiBaasClient struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewMultiBaasClient builds a transfer client.
func NewMultiBaasClient(cfg Config, logger *zap.Logger) *MultiBaasClient {
	return &MultiBaasClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// transferMethodID is the 4-byte selector of transfer(address,uint256).
const transferMethodID = "a9059cbb"

// encodeTransferData ABI-encodes an ERC-20 transfer call: the selector
// followed by the recipient address and amount, each left-padded to 32
// bytes.
func encodeTransferData(recipient string, amount *big.Int) string {
	addr := strings.TrimPrefix(strings.ToLower(recipient), "0x")
	return "0x" + transferMethodID + leftPad(addr, 64) + leftPad(amount.Text(16), 64)
}

func leftPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

type submitRequest struct {
	Tx txPayload `json:"tx"`
}

type txPayload struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
	Gas   int64  `json:"gas"`
	Type  int    `json:"type"`
}

type submitResponse struct {
	Result struct {
		Tx struct {
			Hash string `json:"hash"`
		} `json:"tx"`
	} `json:"result"`
	Message string `json:"message"`
}

// Transfer sends amount tokens to the recipient and returns the submitted
// transaction's hash.
func (c *MultiBaasClient) Transfer(ctx context.Context, amount int64, recipient string) (string, error) {
	scaled := new(big.Int).Mul(
		big.NewInt(amount),
		new(big.Int).Exp(big.NewInt(10), big.NewInt(tokenDecimals), nil),
	)

	body, err := json.Marshal(submitRequest{
		Tx: txPayload{
			From:  c.cfg.SenderAddress,
			To:    c.cfg.TokenAddress,
			Data:  encodeTransferData(recipient, scaled),
			Value: "0",
			Gas:   1000000,
			Type:  0,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding transfer request: %w", err)
	}

	url := fmt.Sprintf("%s/chains/%s/hsm/submit",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Chain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submitting transfer: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading transfer response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transfer submission returned status %d: %s", resp.StatusCode, data)
	}

	var parsed submitResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decoding transfer response: %w", err)
	}
	if parsed.Result.Tx.Hash == "" {
		return "", fmt.Errorf("transfer response missing tx hash: %s", parsed.Message)
	}

	c.logger.Info("reward transfer submitted",
		zap.String("recipient", recipient),
		zap.Int64("amount", amount),
		zap.String("tx_hash", parsed.Result.Tx.Hash),
	)
	return parsed.Result.Tx.Hash, nil
}
