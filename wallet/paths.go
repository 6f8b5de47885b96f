package wallet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/echovl/cardano-go/crypto"
	prt "github.com/thecardroom/tcr/protocol"
)

// CIP-1852 path constants
const (
	CIP1852Purpose  = 1852
	CIP1852CoinType = 1815 // ada
	CIP1852Account  = 0
	ChainExternal   = 0
	ChainStake      = 2

	hardenedOffset = 0x80000000
)

func harden(n uint32) uint32 {
	return n + hardenedOffset
}

func accountKey(root crypto.XPrvKey) crypto.XPrvKey {
	return root.Derive(harden(CIP1852Purpose)).Derive(harden(CIP1852CoinType)).Derive(harden(CIP1852Account))
}

// PaymentPath 주소 인덱스별 결제 키 경로
func PaymentPath(idx prt.AddressIndex) string {
	return fmt.Sprintf("m/%d'/%d'/%d'/%d/%d", CIP1852Purpose, CIP1852CoinType, CIP1852Account, ChainExternal, uint32(idx))
}

func StakePath() string {
	return fmt.Sprintf("m/%d'/%d'/%d'/%d/0", CIP1852Purpose, CIP1852CoinType, CIP1852Account, ChainStake)
}

// ParsePath turns "m/1852'/1815'/0'/0/1" into child indexes.
func ParsePath(path string) ([]uint32, error) {
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] != "m" {
		return nil, fmt.Errorf("derivation path must start with m: %q", path)
	}
	out := make([]uint32, 0, len(parts)-1)
	for _, p := range parts[1:] {
		hardened := strings.HasSuffix(p, "'") || strings.HasSuffix(p, "H")
		p = strings.TrimRight(p, "'H")
		n, err := strconv.ParseUint(p, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("invalid path element %q in %q", p, path)
		}
		idx := uint32(n)
		if hardened {
			idx = harden(idx)
		}
		out = append(out, idx)
	}
	return out, nil
}

// DerivePath derives the key at path from root.
func DerivePath(root crypto.XPrvKey, path string) (crypto.XPrvKey, error) {
	indexes, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	key := root
	for _, i := range indexes {
		key = key.Derive(i)
	}
	return key, nil
}
