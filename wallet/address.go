package wallet

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	prt "github.com/thecardroom/tcr/protocol"
)

const (
	headerReward = 0xe0

	hrpAddr         = "addr"
	hrpAddrTest     = "addr_test"
	hrpStake        = "stake"
	hrpStakeTest    = "stake_test"
	networkIDTest   = 0
	networkIDMain   = 1
	keyHashLength   = 28
	maxAddressBytes = 57
)

// EncodeStakeAddress builds the reward address of a stake key hash.
func EncodeStakeAddress(network prt.Network, stakeKeyHash []byte) (string, error) {
	if len(stakeKeyHash) != keyHashLength {
		return "", fmt.Errorf("stake key hash must be %d bytes, got %d", keyHashLength, len(stakeKeyHash))
	}
	hrp, header := hrpStakeTest, byte(headerReward|networkIDTest)
	if network.IsMainnet() {
		hrp, header = hrpStake, byte(headerReward|networkIDMain)
	}
	raw := append([]byte{header}, stakeKeyHash...)
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(hrp, conv)
}

// ValidateAddress checks that addr is a bech32 payment or stake address
// of the given network.
func ValidateAddress(network prt.Network, addr string) error {
	hrp, data, err := bech32.DecodeNoLimit(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if len(raw) < 1+keyHashLength || len(raw) > maxAddressBytes {
		return fmt.Errorf("invalid address length %d", len(raw))
	}

	mainnet := network.IsMainnet()
	switch {
	case hrp == hrpAddr || hrp == hrpStake:
		if !mainnet {
			return fmt.Errorf("mainnet address %s on %s", short(addr), network)
		}
	case hrp == hrpAddrTest || hrp == hrpStakeTest:
		if mainnet {
			return fmt.Errorf("testnet address %s on mainnet", short(addr))
		}
	default:
		return fmt.Errorf("unexpected address prefix %q", hrp)
	}

	netID := raw[0] & 0x0f
	if mainnet && netID != networkIDMain || !mainnet && netID != networkIDTest {
		return fmt.Errorf("address network id %d does not match %s", netID, network)
	}
	return nil
}

// IsStakeAddress reports whether addr uses a stake prefix.
func IsStakeAddress(addr string) bool {
	return strings.HasPrefix(addr, hrpStake)
}

func short(addr string) string {
	if len(addr) <= 20 {
		return addr
	}
	return addr[:12] + "..." + addr[len(addr)-6:]
}
