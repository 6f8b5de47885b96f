package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// AddressIndex selects the payment key of a wallet.
type AddressIndex uint32

const (
	AddressRoot AddressIndex = iota
	AddressMint
	AddressPresale
	AddressMutateRequest
)

// AddressIndexes 지갑 뷰에서 조회하는 주소 인덱스
var AddressIndexes = []AddressIndex{AddressRoot, AddressMint, AddressPresale, AddressMutateRequest}

func (i AddressIndex) String() string {
	switch i {
	case AddressRoot:
		return "root"
	case AddressMint:
		return "mint"
	case AddressPresale:
		return "presale"
	case AddressMutateRequest:
		return "mutate"
	default:
		return fmt.Sprintf("index(%d)", uint32(i))
	}
}

const (
	// AdaHandlePolicyID is the policy every $handle token is minted under.
	AdaHandlePolicyID = "f0ff48bbb7bbe9d59a40f1ce90e9e9d0ff5002ec48f232b49ca0fb9a"

	SecondsPerMonth = 30 * 24 * 60 * 60

	// MaxBurnPerTx caps the tokens burned in one transaction.
	MaxBurnPerTx = 200

	NFTLabel     = 721
	RoyaltyLabel = 777

	LovelacePerAda = 1_000_000
)

// UTxORef 트랜잭션 출력 식별자 (txhash#index)
type UTxORef struct {
	TxHash string
	Index  uint32
}

func (r UTxORef) String() string {
	return fmt.Sprintf("%s#%d", r.TxHash, r.Index)
}

// ParseUTxORef parses "txhash#index".
func ParseUTxORef(s string) (UTxORef, error) {
	i := strings.LastIndex(s, "#")
	if i < 0 {
		return UTxORef{}, fmt.Errorf("invalid utxo reference %q", s)
	}
	if len(s[:i]) != 64 {
		return UTxORef{}, fmt.Errorf("invalid utxo hash %q", s)
	}
	idx, err := strconv.ParseUint(s[i+1:], 10, 32)
	if err != nil {
		return UTxORef{}, fmt.Errorf("invalid utxo index %q: %w", s, err)
	}
	return UTxORef{TxHash: strings.ToLower(s[:i]), Index: uint32(idx)}, nil
}
