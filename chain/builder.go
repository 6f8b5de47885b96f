package chain

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/echovl/cardano-go"
	"github.com/echovl/cardano-go/crypto"
	log "github.com/thecardroom/tcr/common/logger"
	"github.com/thecardroom/tcr/common/utils"
	"github.com/thecardroom/tcr/indexer"
	"github.com/thecardroom/tcr/policy"
	prt "github.com/thecardroom/tcr/protocol"
	"github.com/thecardroom/tcr/wallet"
)

var ErrNoInputs = errors.New("no spendable utxos")

// Backend is the chain service the builder reads UTxOs and protocol
// parameters from and submits to.
type Backend interface {
	AddressUTXOs(ctx context.Context, address string) ([]indexer.UTxO, error)
	ProtocolParameters(ctx context.Context) (*indexer.ProtocolParameters, error)
	SubmitTx(ctx context.Context, cbor []byte) (string, error)
}

// Builder assembles, signs and submits transactions.
type Builder struct {
	backend      Backend
	minUtxo      uint64
	submitTries  uint64
	submitPeriod time.Duration
}

func NewBuilder(backend Backend, minUtxoLovelace uint64) *Builder {
	return &Builder{
		backend:      backend,
		minUtxo:      minUtxoLovelace,
		submitTries:  3,
		submitPeriod: 2 * time.Second,
	}
}

// MintRequest describes an NFT mint. Without Inputs the owner's root
// address pays.
type MintRequest struct {
	Policy        *policy.Policy
	Metadata      map[uint]interface{}
	Output        string
	Inputs        []indexer.UTxO
	InputKeys     []crypto.PrvKey
	ChangeAddress string
}

func (b *Builder) newTxBuilder(ctx context.Context) (*cardano.TxBuilder, error) {
	pp, err := b.backend.ProtocolParameters(ctx)
	if err != nil {
		return nil, fmt.Errorf("protocol parameters: %w", err)
	}
	return cardano.NewTxBuilder(&cardano.ProtocolParams{
		MinFeeA:          cardano.Coin(pp.MinFeeA),
		MinFeeB:          cardano.Coin(pp.MinFeeB),
		CoinsPerUTXOWord: cardano.Coin(pp.CoinsPerUTxOWordValue()),
	}), nil
}

// TransferAda sends lovelace from the source wallet's root address.
func (b *Builder) TransferAda(ctx context.Context, source *wallet.Wallet, destination string, lovelace uint64) (string, error) {
	from, err := source.DelegatedPaymentAddress(prt.AddressRoot)
	if err != nil {
		return "", err
	}
	to, err := cardano.NewAddress(destination)
	if err != nil {
		return "", fmt.Errorf("destination %s: %w", destination, err)
	}
	key, err := source.SigningKey(prt.AddressRoot)
	if err != nil {
		return "", err
	}
	utxos, err := b.backend.AddressUTXOs(ctx, from.Bech32())
	if err != nil {
		return "", err
	}
	if len(utxos) == 0 {
		return "", ErrNoInputs
	}

	tb, err := b.newTxBuilder(ctx)
	if err != nil {
		return "", err
	}
	if err := addInputs(tb, utxos); err != nil {
		return "", err
	}
	tb.AddOutputs(cardano.NewTxOutput(to, cardano.NewValue(cardano.Coin(lovelace))))
	tb.AddChangeIfNeeded(from)
	tb.Sign(key)
	return b.buildAndSubmit(ctx, tb)
}

// MintNFT mints one of each token named under label 721 of the metadata
// and sends them to the output address.
func (b *Builder) MintNFT(ctx context.Context, req MintRequest) (string, error) {
	p := req.Policy
	names, err := TokenNames(req.Metadata, p.ID())
	if err != nil {
		return "", err
	}

	inputs, keys := req.Inputs, req.InputKeys
	change := req.ChangeAddress
	if len(inputs) == 0 {
		root, err := p.Owner().DelegatedPaymentAddress(prt.AddressRoot)
		if err != nil {
			return "", err
		}
		key, err := p.Owner().SigningKey(prt.AddressRoot)
		if err != nil {
			return "", err
		}
		inputs, err = b.backend.AddressUTXOs(ctx, root.Bech32())
		if err != nil {
			return "", err
		}
		keys = []crypto.PrvKey{key}
		if change == "" {
			change = root.Bech32()
		}
	}
	if len(inputs) == 0 {
		return "", ErrNoInputs
	}
	if change == "" {
		return "", fmt.Errorf("mint: change address missing")
	}

	out, err := cardano.NewAddress(req.Output)
	if err != nil {
		return "", fmt.Errorf("output %s: %w", req.Output, err)
	}
	changeAddr, err := cardano.NewAddress(change)
	if err != nil {
		return "", fmt.Errorf("change %s: %w", change, err)
	}

	assets := cardano.NewAssets()
	mintAssets := cardano.NewMintAssets()
	for _, n := range names {
		assets.Set(cardano.NewAssetName(n), 1)
		mintAssets.Set(cardano.NewAssetName(n), big.NewInt(1))
	}
	policyID := p.PolicyID()

	tb, err := b.newTxBuilder(ctx)
	if err != nil {
		return "", err
	}
	if err := addInputs(tb, inputs); err != nil {
		return "", err
	}
	tb.AddOutputs(cardano.NewTxOutput(out, cardano.NewValueWithAssets(
		cardano.Coin(b.minUtxo),
		cardano.NewMultiAsset().Set(policyID, assets),
	)))
	tb.Mint(cardano.NewMint().Set(policyID, mintAssets))
	tb.AddNativeScript(p.Script())
	tb.AddAuxiliaryData(&cardano.AuxiliaryData{Metadata: cardano.Metadata(req.Metadata)})
	tb.SetTTL(p.TTL())
	tb.AddChangeIfNeeded(changeAddr)

	signers, err := mintSigners(p, keys)
	if err != nil {
		return "", err
	}
	tb.Sign(signers...)

	log.Info("minting ", len(names), " token(s) of ", p.ID(), " to ", req.Output)
	return b.buildAndSubmit(ctx, tb)
}

// MintRoyaltyToken mints the empty-name CIP-27 token to the owner's root
// enterprise address.
func (b *Builder) MintRoyaltyToken(ctx context.Context, p *policy.Policy, royaltyAddress, rate string) (string, error) {
	out, err := p.Owner().PaymentAddress(prt.AddressRoot)
	if err != nil {
		return "", err
	}
	return b.MintNFT(ctx, MintRequest{
		Policy:   p,
		Metadata: policy.RoyaltyMetadata(p.ID(), royaltyAddress, rate),
		Output:   out.Bech32(),
	})
}

// BurnTokens burns the named tokens held by inputs, one unit per entry in
// names. What remains of the inputs goes to change.
func (b *Builder) BurnTokens(ctx context.Context, p *policy.Policy, inputs []indexer.UTxO, inputKey crypto.PrvKey, names []string, change string) (string, error) {
	if len(inputs) == 0 {
		return "", ErrNoInputs
	}
	if len(names) == 0 {
		return "", fmt.Errorf("burn: no token names")
	}
	changeAddr, err := cardano.NewAddress(change)
	if err != nil {
		return "", fmt.Errorf("change %s: %w", change, err)
	}

	counts := make(map[string]int64)
	var order []string
	for _, n := range names {
		if counts[n] == 0 {
			order = append(order, n)
		}
		counts[n]++
	}
	burn := cardano.NewMintAssets()
	for _, n := range order {
		burn.Set(cardano.NewAssetName(n), big.NewInt(-counts[n]))
	}

	tb, err := b.newTxBuilder(ctx)
	if err != nil {
		return "", err
	}
	if err := addInputs(tb, inputs); err != nil {
		return "", err
	}
	tb.Mint(cardano.NewMint().Set(p.PolicyID(), burn))
	tb.AddNativeScript(p.Script())
	tb.SetTTL(p.TTL())
	tb.AddChangeIfNeeded(changeAddr)

	signers, err := mintSigners(p, []crypto.PrvKey{inputKey})
	if err != nil {
		return "", err
	}
	tb.Sign(signers...)

	log.Info("burning ", len(names), " token(s) of ", p.ID())
	return b.buildAndSubmit(ctx, tb)
}

// Refund returns a payment UTxO held at owner[idx], less the fee, to dest.
func (b *Builder) Refund(ctx context.Context, owner *wallet.Wallet, idx prt.AddressIndex, utxo indexer.UTxO, dest string) (string, error) {
	to, err := cardano.NewAddress(dest)
	if err != nil {
		return "", fmt.Errorf("refund address %s: %w", dest, err)
	}
	key, err := owner.SigningKey(idx)
	if err != nil {
		return "", err
	}

	tb, err := b.newTxBuilder(ctx)
	if err != nil {
		return "", err
	}
	if err := addInputs(tb, []indexer.UTxO{utxo}); err != nil {
		return "", err
	}
	tb.AddChangeIfNeeded(to)
	tb.Sign(key)

	log.Info("refunding ", utxo.Ref(), " to ", dest)
	return b.buildAndSubmit(ctx, tb)
}

func (b *Builder) buildAndSubmit(ctx context.Context, tb *cardano.TxBuilder) (string, error) {
	tx, err := tb.Build()
	if err != nil {
		return "", fmt.Errorf("build tx: %w", err)
	}
	hash, err := tx.Hash()
	if err != nil {
		return "", err
	}

	return b.submit(ctx, hash.String(), tx.Bytes())
}

// submit retries transient failures; a 4xx other than 429 is final.
func (b *Builder) submit(ctx context.Context, hash string, cbor []byte) (string, error) {
	var submitted string
	op := func() error {
		id, err := b.backend.SubmitTx(ctx, cbor)
		if err != nil {
			var ae *indexer.APIError
			if errors.As(err, &ae) && ae.StatusCode < 500 && ae.StatusCode != 429 {
				return backoff.Permanent(err)
			}
			log.Warn("submit ", hash, ": ", err)
			return err
		}
		submitted = id
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(b.submitPeriod), b.submitTries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return "", fmt.Errorf("submit tx %s: %w", hash, err)
	}
	if submitted == "" {
		submitted = hash
	}
	return submitted, nil
}

func addInputs(tb *cardano.TxBuilder, utxos []indexer.UTxO) error {
	for _, u := range utxos {
		in, err := toInput(u)
		if err != nil {
			return err
		}
		tb.AddInputs(in)
	}
	return nil
}

func toInput(u indexer.UTxO) (*cardano.TxInput, error) {
	hash, err := cardano.NewHash32(u.TxHash)
	if err != nil {
		return nil, fmt.Errorf("utxo %s: %w", u.Ref(), err)
	}
	value, err := toValue(u)
	if err != nil {
		return nil, err
	}
	return cardano.NewTxInput(hash, uint(u.OutputIndex), value), nil
}

func toValue(u indexer.UTxO) (*cardano.Value, error) {
	byPolicy := make(map[string]*cardano.Assets)
	var order []string
	for unit, qty := range u.Assets() {
		policyHex, nameHex, ok := utils.SplitAssetUnit(unit)
		if !ok {
			return nil, fmt.Errorf("utxo %s: bad asset unit %s", u.Ref(), unit)
		}
		name, err := hex.DecodeString(nameHex)
		if err != nil {
			return nil, fmt.Errorf("utxo %s: asset name %s: %w", u.Ref(), nameHex, err)
		}
		assets, ok := byPolicy[policyHex]
		if !ok {
			assets = cardano.NewAssets()
			byPolicy[policyHex] = assets
			order = append(order, policyHex)
		}
		assets.Set(cardano.NewAssetName(string(name)), cardano.BigNum(qty))
	}

	coin := cardano.Coin(u.Lovelace())
	if len(order) == 0 {
		return cardano.NewValue(coin), nil
	}
	ma := cardano.NewMultiAsset()
	for _, policyHex := range order {
		h, err := cardano.NewHash28(policyHex)
		if err != nil {
			return nil, fmt.Errorf("policy id %s: %w", policyHex, err)
		}
		ma.Set(cardano.NewPolicyIDFromHash(h), byPolicy[policyHex])
	}
	return cardano.NewValueWithAssets(coin, ma), nil
}

// mintSigners is the input keys plus the policy key and owner root key,
// each key once.
func mintSigners(p *policy.Policy, inputKeys []crypto.PrvKey) ([]crypto.PrvKey, error) {
	policyKeys, err := p.SigningKeys()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []crypto.PrvKey
	for _, k := range append(append([]crypto.PrvKey(nil), inputKeys...), policyKeys...) {
		if k == nil {
			continue
		}
		id := hex.EncodeToString(k)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, k)
	}
	return out, nil
}

// TokenNames lists the asset names under metadata[721][policyID].
func TokenNames(metadata map[uint]interface{}, policyID string) ([]string, error) {
	nft, ok := metadata[prt.NFTLabel].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("metadata has no %d label", prt.NFTLabel)
	}
	tokens, ok := nft[policyID].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("metadata has no entry for policy %s", policyID)
	}
	names := make([]string, 0, len(tokens))
	for name := range tokens {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
