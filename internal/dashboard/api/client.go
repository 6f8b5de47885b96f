package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client는 민트 러너 API 클라이언트
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient는 새 API 클라이언트 생성
func NewClient(host string, port int) *Client {
	return NewClientURL(fmt.Sprintf("http://%s:%d", host, port))
}

func NewClientURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// RestResp는 API 응답 래퍼
type RestResp struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// RunnerSnapshot is the drop state of a running nftmint --mint.
type RunnerSnapshot struct {
	Drop           string `json:"drop"`
	Policy         string `json:"policy"`
	PolicyID       string `json:"policyId"`
	MintAddress    string `json:"mintAddress"`
	PresaleAddress string `json:"presaleAddress"`
	Total          int    `json:"total"`
	Remaining      int    `json:"remaining"`
	Minted         int    `json:"minted"`
	Refunded       int    `json:"refunded"`
	Rejected       int    `json:"rejected"`
	LastPoll       int64  `json:"lastPoll"`
}

// RunnerStatus는 /api/v1/status 응답
type RunnerStatus struct {
	Network   string          `json:"network"`
	Runner    *RunnerSnapshot `json:"runner,omitempty"`
	Payments  map[string]int  `json:"payments"`
	WSClients int             `json:"wsClients"`
}

// Payment는 /api/v1/payments 항목
type Payment struct {
	ID        string   `json:"id"`
	Drop      string   `json:"drop"`
	Payer     string   `json:"payer"`
	Lovelace  uint64   `json:"lovelace"`
	Ada       string   `json:"ada"`
	Count     int      `json:"count"`
	Presale   bool     `json:"presale"`
	Status    string   `json:"status"`
	Tokens    []string `json:"tokens"`
	TxHash    string   `json:"txHash"`
	Reason    string   `json:"reason"`
	UpdatedAt int64    `json:"updatedAt"`
}

type PaymentList struct {
	Payments []Payment `json:"payments"`
	Total    int       `json:"total"`
}

// GetStatus는 러너 상태 조회
func (c *Client) GetStatus() (*RunnerStatus, error) {
	resp, err := c.get("/api/v1/status")
	if err != nil {
		return nil, err
	}

	var status RunnerStatus
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("parse status: %w", err)
	}
	return &status, nil
}

// GetPayments lists ledger payments, filtered by status when not empty.
func (c *Client) GetPayments(status string) (*PaymentList, error) {
	path := "/api/v1/payments"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	resp, err := c.get(path)
	if err != nil {
		return nil, err
	}

	var list PaymentList
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return nil, fmt.Errorf("parse payments: %w", err)
	}
	return &list, nil
}

// IsAlive는 러너 생존 여부 확인
func (c *Client) IsAlive() bool {
	_, err := c.GetStatus()
	return err == nil
}

func (c *Client) get(path string) (*RestResp, error) {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var result RestResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("api error: %s", result.Error)
	}

	return &result, nil
}
