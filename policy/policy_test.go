package policy

import (
	"errors"
	"strings"
	"testing"
	"time"

	prt "github.com/thecardroom/tcr/protocol"
	"github.com/thecardroom/tcr/wallet"
)

const (
	walletMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon " +
		"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"
	policyMnemonic = "legal winner thank year wave sausage worth useful legal winner thank year wave sausage worth useful legal winner thank year wave sausage worth title"
)

func testOwner(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.New(prt.NetworkPreprod, wallet.Settings{Name: "owner", SeedPhrase: walletMnemonic})
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	return w
}

func TestPolicyFromSettings(t *testing.T) {
	owner := testOwner(t)
	s := Settings{Name: "series1", Wallet: "owner", SeedPhrase: policyMnemonic, BeforeSlot: 50_000_000}

	p, err := New(s, owner)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if len(p.ID()) != 56 {
		t.Fatalf("policy id %q", p.ID())
	}
	if len(p.SignatureKeyHash()) != 56 {
		t.Fatalf("signature key hash %q", p.SignatureKeyHash())
	}
	if p.TTL() != 50_000_000 || p.BeforeSlot() != 50_000_000 {
		t.Fatalf("ttl %d", p.TTL())
	}
	keys, err := p.SigningKeys()
	if err != nil || len(keys) != 2 {
		t.Fatalf("signing keys %d, %v", len(keys), err)
	}

	// same inputs, same id
	again, _ := New(s, owner)
	if again.ID() != p.ID() {
		t.Fatalf("policy id not deterministic")
	}

	// the expiry slot is part of the script
	s.BeforeSlot++
	later, _ := New(s, owner)
	if later.ID() == p.ID() {
		t.Fatalf("different before slot gave the same policy id")
	}
}

func TestPolicyOwnerMismatch(t *testing.T) {
	owner := testOwner(t)
	_, err := New(Settings{Name: "p", Wallet: "someone-else", SeedPhrase: policyMnemonic, BeforeSlot: 1}, owner)
	if err == nil {
		t.Fatalf("expected owner mismatch error")
	}
}

func TestCreatePolicy(t *testing.T) {
	p, err := Create("fresh", testOwner(t), 1000)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if p.WalletName() != "owner" || p.Settings().SeedPhrase == policyMnemonic {
		t.Fatalf("unexpected settings %+v", p.Settings())
	}
	if !p.IsLocked(1000) || p.IsLocked(999) {
		t.Fatalf("lock boundary wrong")
	}
}

func TestBeforeSlotFor(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	slot, err := BeforeSlotFor(1_000, now.Add(48*time.Hour), now)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if slot != 1_000+2*24*3600 {
		t.Fatalf("slot = %d", slot)
	}

	if _, err := BeforeSlotFor(0, now.Add(time.Hour), now); !errors.Is(err, ErrSlotNotSynced) {
		t.Fatalf("expected ErrSlotNotSynced, got %v", err)
	}
	if _, err := BeforeSlotFor(1_000, now, now); !errors.Is(err, ErrLockInPast) {
		t.Fatalf("expected ErrLockInPast, got %v", err)
	}
	if _, err := BeforeSlotFor(1_000, now.Add(-time.Hour), now); !errors.Is(err, ErrLockInPast) {
		t.Fatalf("expected ErrLockInPast, got %v", err)
	}
}

func TestBeforeSlotInMonths(t *testing.T) {
	slot, err := BeforeSlotInMonths(100, 12)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if slot != 100+12*prt.SecondsPerMonth {
		t.Fatalf("slot = %d", slot)
	}
	if _, err := BeforeSlotInMonths(100, 0); err == nil {
		t.Fatalf("zero months accepted")
	}
	if _, err := BeforeSlotInMonths(100, -3); err == nil {
		t.Fatalf("negative months accepted")
	}
}

func TestRoyaltyMetadata(t *testing.T) {
	addr := "addr_test1qz" + strings.Repeat("x", 90)
	md := RoyaltyMetadata("abcd", addr, "0.05")

	nft := md[prt.NFTLabel].(map[string]interface{})
	if _, ok := nft["abcd"].(map[string]interface{})[""]; !ok {
		t.Fatalf("721 entry must hold the empty asset name")
	}

	roy := md[prt.RoyaltyLabel].(map[string]interface{})
	if roy["rate"] != "0.05" {
		t.Fatalf("rate = %v", roy["rate"])
	}
	parts, ok := roy["addr"].([]string)
	if !ok || len(parts) != 2 || len(parts[0]) != 64 || strings.Join(parts, "") != addr {
		t.Fatalf("addr parts = %#v", roy["addr"])
	}

	short := RoyaltyMetadata("abcd", "addr_test1short", "0.1")
	if short[prt.RoyaltyLabel].(map[string]interface{})["addr"] != "addr_test1short" {
		t.Fatalf("short address must stay a string")
	}
}

func TestParseRoyalty(t *testing.T) {
	cases := []struct {
		name    string
		raw     map[string]interface{}
		rate    float64
		address string
	}{
		{"rate string list", map[string]interface{}{"rate": "0.05", "addr": []interface{}{"addr_test1aaa", "bbb"}}, 0.05, "addr_test1aaabbb"},
		{"legacy pct", map[string]interface{}{"pct": "0.1", "addr": "addr1xyz"}, 0.1, "addr1xyz"},
		{"numeric rate", map[string]interface{}{"rate": 0.025, "addr": "addr1q"}, 0.025, "addr1q"},
	}
	for _, tc := range cases {
		r, err := ParseRoyalty(tc.raw)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if r.Rate != tc.rate || r.Address != tc.address {
			t.Fatalf("%s: got %+v", tc.name, r)
		}
	}

	if _, err := ParseRoyalty(map[string]interface{}{"addr": "addr1q"}); err == nil {
		t.Fatalf("missing rate accepted")
	}
	if _, err := ParseRoyalty(map[string]interface{}{"rate": "0.1"}); err == nil {
		t.Fatalf("missing address accepted")
	}
}

func TestRateFromPercent(t *testing.T) {
	rate, err := RateFromPercent(5)
	if err != nil || rate != "0.05" {
		t.Fatalf("rate = %q, %v", rate, err)
	}
	if _, err := RateFromPercent(0); err == nil {
		t.Fatalf("zero percent accepted")
	}
	if _, err := RateFromPercent(-1); err == nil {
		t.Fatalf("negative percent accepted")
	}
}
