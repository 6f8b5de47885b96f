package policy

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ccoveille/go-safecast"
	"github.com/echovl/cardano-go"
	"github.com/echovl/cardano-go/crypto"
	prt "github.com/thecardroom/tcr/protocol"
	"github.com/thecardroom/tcr/wallet"
)

// PolicyKeyPath is where the policy key sits in the policy's own mnemonic.
const PolicyKeyPath = "m/1852'/1815'/0'/0/0"

var (
	ErrSlotNotSynced = errors.New("wait for slot to sync")
	ErrLockInPast    = errors.New("lock date must be in the future")
)

// Settings is the persisted form of a policy.
type Settings struct {
	Name       string `json:"name"`
	Wallet     string `json:"wallet"`
	SeedPhrase string `json:"seed_phrase"`
	BeforeSlot uint64 `json:"before_slot"`
}

// Policy is a time locked native script signed by the policy key and the
// owning wallet's root key.
type Policy struct {
	settings Settings
	owner    *wallet.Wallet

	key              crypto.XPrvKey
	script           cardano.NativeScript
	id               cardano.PolicyID
	signatureKeyHash string
}

func New(s Settings, owner *wallet.Wallet) (*Policy, error) {
	if owner == nil {
		return nil, fmt.Errorf("policy %s: owner wallet missing", s.Name)
	}
	if owner.Name() != s.Wallet {
		return nil, fmt.Errorf("policy %s: owner is %s, got wallet %s", s.Name, s.Wallet, owner.Name())
	}

	root, err := wallet.RootKey(s.SeedPhrase)
	if err != nil {
		return nil, fmt.Errorf("policy %s: %w", s.Name, err)
	}
	key, err := wallet.DerivePath(root, PolicyKeyPath)
	if err != nil {
		return nil, err
	}

	policyHash, err := key.PubKey().Hash()
	if err != nil {
		return nil, fmt.Errorf("hash policy key: %w", err)
	}
	ownerHash, err := owner.PaymentKeyHash(prt.AddressRoot)
	if err != nil {
		return nil, fmt.Errorf("hash wallet key: %w", err)
	}

	script := cardano.NativeScript{
		Type: cardano.ScriptAll,
		Scripts: []cardano.NativeScript{
			{Type: cardano.ScriptPubKey, KeyHash: cardano.AddrKeyHash(policyHash)},
			{Type: cardano.ScriptPubKey, KeyHash: cardano.AddrKeyHash(ownerHash)},
			{Type: cardano.ScriptInvalidAfter, IntervalValue: s.BeforeSlot},
		},
	}
	id, err := cardano.NewPolicyID(script)
	if err != nil {
		return nil, fmt.Errorf("policy id: %w", err)
	}

	return &Policy{
		settings:         s,
		owner:            owner,
		key:              key,
		script:           script,
		id:               id,
		signatureKeyHash: hex.EncodeToString(policyHash),
	}, nil
}

// Create makes a policy with a fresh mnemonic.
func Create(name string, owner *wallet.Wallet, beforeSlot uint64) (*Policy, error) {
	mnemonic, err := wallet.NewMnemonic()
	if err != nil {
		return nil, err
	}
	return New(Settings{
		Name:       name,
		Wallet:     owner.Name(),
		SeedPhrase: mnemonic,
		BeforeSlot: beforeSlot,
	}, owner)
}

func (p *Policy) Name() string {
	return p.settings.Name
}

func (p *Policy) WalletName() string {
	return p.settings.Wallet
}

func (p *Policy) Owner() *wallet.Wallet {
	return p.owner
}

func (p *Policy) Settings() Settings {
	return p.settings
}

// ID returns the policy id (script hash) as hex.
func (p *Policy) ID() string {
	return p.id.String()
}

func (p *Policy) PolicyID() cardano.PolicyID {
	return p.id
}

func (p *Policy) SignatureKeyHash() string {
	return p.signatureKeyHash
}

func (p *Policy) BeforeSlot() uint64 {
	return p.settings.BeforeSlot
}

// TTL is the latest slot a minting transaction may be valid for.
func (p *Policy) TTL() uint64 {
	return p.settings.BeforeSlot
}

func (p *Policy) Script() cardano.NativeScript {
	return p.script
}

// SigningKeys returns the keys the script requires: policy key, then the
// owner's root key.
func (p *Policy) SigningKeys() ([]crypto.PrvKey, error) {
	root, err := p.owner.SigningKey(prt.AddressRoot)
	if err != nil {
		return nil, err
	}
	return []crypto.PrvKey{p.key.PrvKey(), root}, nil
}

// IsLocked reports whether the policy can no longer mint at slot.
func (p *Policy) IsLocked(slot uint64) bool {
	return slot >= p.settings.BeforeSlot
}

// BeforeSlotFor converts a lock date into an expiry slot relative to the
// current chain slot.
func BeforeSlotFor(currentSlot uint64, lockDate, now time.Time) (uint64, error) {
	if currentSlot == 0 {
		return 0, ErrSlotNotSynced
	}
	seconds := int64(lockDate.Sub(now) / time.Second)
	if seconds <= 0 {
		return 0, ErrLockInPast
	}
	delta, err := safecast.ToUint64(seconds)
	if err != nil {
		return 0, err
	}
	return currentSlot + delta, nil
}

// BeforeSlotInMonths 현재 슬롯에서 months 개월 뒤 슬롯
func BeforeSlotInMonths(tipSlot uint64, months int) (uint64, error) {
	if tipSlot == 0 {
		return 0, ErrSlotNotSynced
	}
	m, err := safecast.ToUint64(months)
	if err != nil || m == 0 {
		return 0, fmt.Errorf("months must be positive: %d", months)
	}
	return tipSlot + m*prt.SecondsPerMonth, nil
}
