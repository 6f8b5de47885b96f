package policy

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	prt "github.com/thecardroom/tcr/protocol"
)

// addrChunk is the longest string a metadata value may hold.
const addrChunk = 64

var ErrRoyaltyNotSet = errors.New("royalty not set")

// Royalty is the CIP-27 royalty of a policy.
type Royalty struct {
	TxHash  string
	Address string
	Rate    float64 // 0.05 == 5%
}

func (r Royalty) Percent() float64 {
	return r.Rate * 100
}

// RateFromPercent formats a percentage as the metadata rate string.
func RateFromPercent(percent float64) (string, error) {
	if percent <= 0 || percent > 100 {
		return "", fmt.Errorf("royalty must be > 0 and <= 100: %v", percent)
	}
	return strconv.FormatFloat(percent/100.0, 'f', -1, 64), nil
}

// SplitAddress 메타데이터 문자열 길이 제한에 맞춰 주소 분할
func SplitAddress(addr string) interface{} {
	if len(addr) <= addrChunk {
		return addr
	}
	var parts []string
	for i := 0; i < len(addr); i += addrChunk {
		end := i + addrChunk
		if end > len(addr) {
			end = len(addr)
		}
		parts = append(parts, addr[i:end])
	}
	return parts
}

// RoyaltyMetadata builds the transaction metadata of a royalty token mint.
func RoyaltyMetadata(policyID, address, rate string) map[uint]interface{} {
	return map[uint]interface{}{
		prt.NFTLabel: map[string]interface{}{
			policyID: map[string]interface{}{
				"": map[string]interface{}{},
			},
		},
		prt.RoyaltyLabel: map[string]interface{}{
			"rate": rate,
			"addr": SplitAddress(address),
		},
	}
}

type royaltyFields struct {
	Rate *float64 `mapstructure:"rate"`
	Pct  *float64 `mapstructure:"pct"`
	Addr []string `mapstructure:"addr"`
}

// ParseRoyalty decodes label 777 metadata. Older tokens carry "pct"
// instead of "rate"; "addr" may be a string or a list of chunks.
func ParseRoyalty(raw interface{}) (Royalty, error) {
	var f royaltyFields
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &f,
	})
	if err != nil {
		return Royalty{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Royalty{}, fmt.Errorf("decode royalty metadata: %w", err)
	}

	r := Royalty{Address: strings.Join(f.Addr, "")}
	switch {
	case f.Rate != nil:
		r.Rate = *f.Rate
	case f.Pct != nil:
		r.Rate = *f.Pct
	default:
		return Royalty{}, fmt.Errorf("royalty metadata has no rate")
	}
	if r.Address == "" {
		return Royalty{}, fmt.Errorf("royalty metadata has no address")
	}
	return r, nil
}
