package rest

import (
	"github.com/thecardroom/tcr/mint"
	"github.com/thecardroom/tcr/storage"
)

// General response structure
type RestResp struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Runner status response
type StatusResp struct {
	Network   string                        `json:"network"`
	Runner    *mint.Snapshot                `json:"runner,omitempty"`
	Payments  map[storage.PaymentStatus]int `json:"payments"`
	WSClients int                           `json:"wsClients"`
}

// Payment response
type PaymentResp struct {
	ID        string   `json:"id"` // txhash#index
	Drop      string   `json:"drop"`
	Payer     string   `json:"payer"`
	Lovelace  uint64   `json:"lovelace"`
	Ada       string   `json:"ada"`
	Count     int      `json:"count"`
	Presale   bool     `json:"presale"`
	Status    string   `json:"status"`
	Tokens    []string `json:"tokens,omitempty"`
	TxHash    string   `json:"txHash,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	UpdatedAt int64    `json:"updatedAt"`
}

type PaymentListResp struct {
	Payments []PaymentResp `json:"payments"`
	Total    int           `json:"total"`
}
