// Package paymentprovider — клиент платёжного шлюза: создание заказов
// и проверка подписи оплаты.
package paymentprovider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/magabrotheeeer/duelchat/internal/models"
)

// CreateOrderRequest тело запроса на создание заказа.
type CreateOrderRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	PaymentCapture int               `json:"payment_capture"`
	Notes          map[string]string `json:"notes,omitempty"`
}

// Client обращается к REST API шлюза с Basic-авторизацией.
type Client struct {
	keyID      string
	keySecret  string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт клиент шлюза.
func NewClient(apiURL, keyID, keySecret string) *Client {
	return &Client{
		keyID:      keyID,
		keySecret:  keySecret,
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.keyID + ":" + c.keySecret))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// CreateOrder создаёт заказ на стороне шлюза.
func (c *Client) CreateOrder(ctx context.Context, reqParams CreateOrderRequest) (*models.Order, error) {
	const op = "paymentprovider.CreateOrder"
	req, err := c.newRequest(ctx, http.MethodPost, "/orders", reqParams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var order models.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%s: empty order id", op)
	}
	return &order, nil
}
