package indexer

import (
	"strconv"

	prt "github.com/thecardroom/tcr/protocol"
)

const LovelaceUnit = "lovelace"

// Amount is one entry of a Blockfrost value list.
type Amount struct {
	Unit     string `json:"unit"`
	Quantity string `json:"quantity"`
}

func (a Amount) Uint64() uint64 {
	q, _ := strconv.ParseUint(a.Quantity, 10, 64)
	return q
}

type Health struct {
	IsHealthy bool `json:"is_healthy"`
}

type Clock struct {
	ServerTime int64 `json:"server_time"` // ms
}

type Block struct {
	Hash   string `json:"hash"`
	Height uint64 `json:"height"`
	Slot   uint64 `json:"slot"`
	Epoch  uint64 `json:"epoch"`
	Time   int64  `json:"time"`
}

// UTxO /addresses/{address}/utxos 항목
type UTxO struct {
	Address     string   `json:"address"`
	TxHash      string   `json:"tx_hash"`
	OutputIndex uint32   `json:"output_index"`
	Amount      []Amount `json:"amount"`
	Block       string   `json:"block"`
	DataHash    string   `json:"data_hash,omitempty"`
}

func (u UTxO) Ref() prt.UTxORef {
	return prt.UTxORef{TxHash: u.TxHash, Index: u.OutputIndex}
}

func (u UTxO) Lovelace() uint64 {
	for _, a := range u.Amount {
		if a.Unit == LovelaceUnit {
			return a.Uint64()
		}
	}
	return 0
}

// Assets returns the native tokens keyed by unit (policy id + name hex).
func (u UTxO) Assets() map[string]uint64 {
	out := make(map[string]uint64)
	for _, a := range u.Amount {
		if a.Unit != LovelaceUnit {
			out[a.Unit] += a.Uint64()
		}
	}
	return out
}

type ExtendedAmount struct {
	Unit                  string `json:"unit"`
	Quantity              string `json:"quantity"`
	Decimals              *int   `json:"decimals"`
	HasNFTOnchainMetadata bool   `json:"has_nft_onchain_metadata"`
}

type AddressExtended struct {
	Address      string           `json:"address"`
	Amount       []ExtendedAmount `json:"amount"`
	StakeAddress string           `json:"stake_address"`
	Type         string           `json:"type"`
	Script       bool             `json:"script"`
}

// PolicyAsset /assets/policy/{policy_id} 항목
type PolicyAsset struct {
	Asset    string `json:"asset"`
	Quantity string `json:"quantity"`
}

type AssetHistory struct {
	TxHash string `json:"tx_hash"`
	Amount string `json:"amount"`
	Action string `json:"action"` // minted, burned
}

type AssetTransaction struct {
	TxHash      string `json:"tx_hash"`
	TxIndex     uint32 `json:"tx_index"`
	BlockHeight uint64 `json:"block_height"`
	BlockTime   int64  `json:"block_time"`
}

type AssetAddress struct {
	Address  string `json:"address"`
	Quantity string `json:"quantity"`
}

// TxMetadata is one label of /txs/{hash}/metadata.
type TxMetadata struct {
	Label        string      `json:"label"`
	JSONMetadata interface{} `json:"json_metadata"`
}

type Transaction struct {
	Hash        string   `json:"hash"`
	Block       string   `json:"block"`
	BlockHeight uint64   `json:"block_height"`
	BlockTime   int64    `json:"block_time"`
	Slot        uint64   `json:"slot"`
	Index       uint32   `json:"index"`
	OutputAmt   []Amount `json:"output_amount"`
	Fees        string   `json:"fees"`
	Size        int      `json:"size"`
}

type TxIO struct {
	Address     string   `json:"address"`
	Amount      []Amount `json:"amount"`
	TxHash      string   `json:"tx_hash"`
	OutputIndex uint32   `json:"output_index"`
}

type TransactionUTXOs struct {
	Hash    string `json:"hash"`
	Inputs  []TxIO `json:"inputs"`
	Outputs []TxIO `json:"outputs"`
}

type AccountAddress struct {
	Address string `json:"address"`
}

// ProtocolParameters carries the fields the transaction builder needs.
type ProtocolParameters struct {
	Epoch            uint64 `json:"epoch"`
	MinFeeA          uint64 `json:"min_fee_a"`
	MinFeeB          uint64 `json:"min_fee_b"`
	MaxTxSize        uint64 `json:"max_tx_size"`
	KeyDeposit       string `json:"key_deposit"`
	PoolDeposit      string `json:"pool_deposit"`
	CoinsPerUTxOSize string `json:"coins_per_utxo_size"`
	CoinsPerUTxOWord string `json:"coins_per_utxo_word"`
}

// CoinsPerUTxOWordValue returns the per-word cost, converting the newer
// per-byte parameter (8 bytes per word) when only that one is present.
func (p ProtocolParameters) CoinsPerUTxOWordValue() uint64 {
	if v, err := strconv.ParseUint(p.CoinsPerUTxOWord, 10, 64); err == nil && v > 0 {
		return v
	}
	if v, err := strconv.ParseUint(p.CoinsPerUTxOSize, 10, 64); err == nil {
		return v * 8
	}
	return 0
}

// Status is the chain service summary shown in the status bar.
type Status struct {
	Healthy    bool   `json:"healthy"`
	ServerTime int64  `json:"serverTime"`
	Height     uint64 `json:"height"`
	Slot       uint64 `json:"slot"`
}
