package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/echovl/cardano-go"
	"github.com/echovl/cardano-go/crypto"
	prt "github.com/thecardroom/tcr/protocol"
	"github.com/tyler-smith/go-bip39"
)

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// Settings is the persisted form of a wallet.
type Settings struct {
	Name       string `json:"name"`
	SeedPhrase string `json:"seed_phrase"`
}

// Wallet holds the keys derived from a seed phrase for one network.
type Wallet struct {
	name       string
	seedPhrase string
	network    prt.Network
	sdkNetwork cardano.Network

	payment [4]crypto.XPrvKey
	stake   crypto.XPrvKey
}

// Create generates a fresh 24-word wallet.
func Create(network prt.Network, name string) (*Wallet, error) {
	mnemonic, err := NewMnemonic()
	if err != nil {
		return nil, err
	}
	return New(network, Settings{Name: name, SeedPhrase: mnemonic})
}

func New(network prt.Network, s Settings) (*Wallet, error) {
	info, err := prt.LookupNetwork(network)
	if err != nil {
		return nil, err
	}
	if s.Name == "" {
		return nil, fmt.Errorf("wallet name is empty")
	}

	root, err := RootKey(s.SeedPhrase)
	if err != nil {
		return nil, fmt.Errorf("wallet %s: %w", s.Name, err)
	}

	w := &Wallet{
		name:       s.Name,
		seedPhrase: s.SeedPhrase,
		network:    network,
		sdkNetwork: info.SDKNetwork,
	}
	account := accountKey(root)
	for _, idx := range prt.AddressIndexes {
		w.payment[idx] = account.Derive(0).Derive(uint32(idx))
	}
	w.stake = account.Derive(2).Derive(0)
	return w, nil
}

func (w *Wallet) Name() string {
	return w.name
}

func (w *Wallet) Network() prt.Network {
	return w.network
}

func (w *Wallet) Settings() Settings {
	return Settings{Name: w.name, SeedPhrase: w.seedPhrase}
}

func (w *Wallet) key(idx prt.AddressIndex) (crypto.XPrvKey, error) {
	if int(idx) >= len(w.payment) {
		return nil, fmt.Errorf("address index out of range: %d", idx)
	}
	return w.payment[idx], nil
}

// SigningKey returns the payment signing key at idx.
func (w *Wallet) SigningKey(idx prt.AddressIndex) (crypto.PrvKey, error) {
	k, err := w.key(idx)
	if err != nil {
		return nil, err
	}
	return k.PrvKey(), nil
}

func (w *Wallet) VerificationKey(idx prt.AddressIndex) (crypto.PubKey, error) {
	k, err := w.key(idx)
	if err != nil {
		return nil, err
	}
	return k.PubKey(), nil
}

func (w *Wallet) StakeSigningKey() crypto.PrvKey {
	return w.stake.PrvKey()
}

// PaymentKeyHash 결제 키 해시 (blake2b-224)
func (w *Wallet) PaymentKeyHash(idx prt.AddressIndex) ([]byte, error) {
	pub, err := w.VerificationKey(idx)
	if err != nil {
		return nil, err
	}
	return pub.Hash()
}

func (w *Wallet) PaymentKeyHashHex(idx prt.AddressIndex) (string, error) {
	h, err := w.PaymentKeyHash(idx)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h), nil
}

// PaymentAddress returns the enterprise address (no stake part) at idx.
func (w *Wallet) PaymentAddress(idx prt.AddressIndex) (cardano.Address, error) {
	pub, err := w.VerificationKey(idx)
	if err != nil {
		return cardano.Address{}, err
	}
	cred, err := cardano.NewKeyCredential(pub)
	if err != nil {
		return cardano.Address{}, err
	}
	return cardano.NewEnterpriseAddress(w.sdkNetwork, cred)
}

// DelegatedPaymentAddress returns the base address at idx, delegated to the
// wallet stake key.
func (w *Wallet) DelegatedPaymentAddress(idx prt.AddressIndex) (cardano.Address, error) {
	pub, err := w.VerificationKey(idx)
	if err != nil {
		return cardano.Address{}, err
	}
	payment, err := cardano.NewKeyCredential(pub)
	if err != nil {
		return cardano.Address{}, err
	}
	stake, err := cardano.NewKeyCredential(w.stake.PubKey())
	if err != nil {
		return cardano.Address{}, err
	}
	return cardano.NewBaseAddress(w.sdkNetwork, payment, stake)
}

func (w *Wallet) StakeAddress() (string, error) {
	hash, err := w.stake.PubKey().Hash()
	if err != nil {
		return "", err
	}
	return EncodeStakeAddress(w.network, hash)
}

// AddressEntry is one row of the wallet address listing.
type AddressEntry struct {
	Index     prt.AddressIndex
	Delegated bool
	Address   string
}

// Addresses lists the delegated and enterprise addresses of every index.
func (w *Wallet) Addresses() ([]AddressEntry, error) {
	var out []AddressEntry
	for _, idx := range prt.AddressIndexes {
		d, err := w.DelegatedPaymentAddress(idx)
		if err != nil {
			return nil, err
		}
		out = append(out, AddressEntry{Index: idx, Delegated: true, Address: d.Bech32()})
	}
	for _, idx := range prt.AddressIndexes {
		e, err := w.PaymentAddress(idx)
		if err != nil {
			return nil, err
		}
		out = append(out, AddressEntry{Index: idx, Address: e.Bech32()})
	}
	return out, nil
}

// OwnsAddress reports the index of addr when it belongs to the wallet.
func (w *Wallet) OwnsAddress(addr string) (prt.AddressIndex, bool) {
	entries, err := w.Addresses()
	if err != nil {
		return 0, false
	}
	for _, e := range entries {
		if e.Address == addr {
			return e.Index, true
		}
	}
	return 0, false
}

// NewMnemonic 24단어 니모닉 생성
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// RootKey derives the BIP32-Ed25519 root key of a mnemonic.
func RootKey(mnemonic string) (crypto.XPrvKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	entropy, err := bip39.EntropyFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	return crypto.NewXPrvKeyFromEntropy(entropy, ""), nil
}
