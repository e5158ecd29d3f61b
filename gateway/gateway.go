package gateway

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"lms/config"
	"lms/models"

	"github.com/go-resty/resty/v2"
)

// Client talks to the external payment gateway. The core treats it as
// opaque: initiate returns a redirect token, verify confirms or rejects a
// payment. Nothing here runs inside a database transaction.
type Client struct {
	http *resty.Client
}

func New() *Client {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: client}
}

// InitiateResult is the gateway's answer to a payment request.
type InitiateResult struct {
	Authority   string `json:"authority"`
	RedirectURL string `json:"redirect_url"`
}

// Initiate asks the gateway for a redirect token for the given amount.
func (c *Client) Initiate(amount models.Money, description, email, mobile string) (*InitiateResult, error) {
	payload := map[string]interface{}{
		"merchant_id":  config.AppConfig.GatewayMerchantID,
		"amount":       int64(amount),
		"callback_url": config.AppConfig.GatewayCallback,
		"description":  description,
		"metadata":     map[string]string{},
	}
	metadata := payload["metadata"].(map[string]string)
	if email != "" {
		metadata["email"] = email
	}
	if mobile != "" {
		metadata["mobile"] = mobile
	}

	resp, err := c.http.R().
		SetBody(payload).
		Post(config.AppConfig.GatewayRequestURL)
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	if resp.StatusCode() != 200 {
		log.Printf("[GATEWAY] payment request rejected: %s", resp.String())
		return nil, fmt.Errorf("gateway request failed with status %d", resp.StatusCode())
	}

	var result struct {
		Data struct {
			Code      int    `json:"code"`
			Authority string `json:"authority"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("parse gateway response: %w", err)
	}
	if result.Data.Code != 100 || result.Data.Authority == "" {
		return nil, fmt.Errorf("gateway rejected payment request, code %d", result.Data.Code)
	}

	return &InitiateResult{
		Authority:   result.Data.Authority,
		RedirectURL: config.AppConfig.GatewayStartPay + result.Data.Authority,
	}, nil
}

// Verify checks a redirect token against the gateway after the customer
// returns. A verified payment yields the gateway's reference id; a rejection
// is reported as ok=false with a nil error, since a declined payment is an
// expected outcome rather than a transport fault.
func (c *Client) Verify(amount models.Money, authority string) (ok bool, refID string, err error) {
	payload := map[string]interface{}{
		"merchant_id": config.AppConfig.GatewayMerchantID,
		"amount":      int64(amount),
		"authority":   authority,
	}

	resp, err := c.http.R().
		SetBody(payload).
		Post(config.AppConfig.GatewayVerifyURL)
	if err != nil {
		return false, "", fmt.Errorf("gateway verify: %w", err)
	}

	var result struct {
		Data struct {
			Code  int   `json:"code"`
			RefID int64 `json:"ref_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return false, "", fmt.Errorf("parse verify response: %w", err)
	}

	// Code 100 is a fresh verification, 101 an already-verified payment.
	if result.Data.Code == 100 || result.Data.Code == 101 {
		return true, fmt.Sprintf("%d", result.Data.RefID), nil
	}
	return false, "", nil
}
