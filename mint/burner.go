package mint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/echovl/cardano-go/crypto"
	log "github.com/thecardroom/tcr/common/logger"
	"github.com/thecardroom/tcr/common/utils"
	"github.com/thecardroom/tcr/indexer"
	"github.com/thecardroom/tcr/policy"
	prt "github.com/thecardroom/tcr/protocol"
)

var ErrNoTokens = errors.New("no tokens found for policy")

type BurnChain interface {
	AddressUTXOs(ctx context.Context, address string) ([]indexer.UTxO, error)
	ContainsUTxO(ctx context.Context, address, txHash string, index uint32) (bool, error)
}

type TokenBurner interface {
	BurnTokens(ctx context.Context, p *policy.Policy, inputs []indexer.UTxO, inputKey crypto.PrvKey, names []string, change string) (string, error)
}

// Burner burns the tokens of a policy held by the owner's root address.
type Burner struct {
	chain  BurnChain
	burner TokenBurner
	slots  SlotResolver
	sink   EventSink
	wait   time.Duration
}

func NewBurner(c BurnChain, b TokenBurner, slots SlotResolver, sink EventSink) *Burner {
	if sink == nil {
		sink = nopSink{}
	}
	return &Burner{chain: c, burner: b, slots: slots, sink: sink, wait: 10 * time.Second}
}

// SetWait changes the confirmation polling interval.
func (b *Burner) SetWait(d time.Duration) {
	b.wait = d
}

type heldUTxO struct {
	indexer.UTxO
	slot uint64
}

func (b *Burner) rootUTxOs(ctx context.Context, p *policy.Policy) ([]heldUTxO, string, error) {
	owner := p.Owner()
	e, err := owner.PaymentAddress(prt.AddressRoot)
	if err != nil {
		return nil, "", err
	}
	d, err := owner.DelegatedPaymentAddress(prt.AddressRoot)
	if err != nil {
		return nil, "", err
	}
	var held []heldUTxO
	for _, addr := range []string{d.Bech32(), e.Bech32()} {
		utxos, err := b.chain.AddressUTXOs(ctx, addr)
		if err != nil {
			return nil, "", err
		}
		for _, u := range utxos {
			var slot uint64
			if b.slots != nil {
				if slot, err = b.slots.TxSlot(ctx, u.TxHash); err != nil {
					return nil, "", fmt.Errorf("slot of %s: %w", u.TxHash, err)
				}
			}
			held = append(held, heldUTxO{UTxO: u, slot: slot})
		}
	}
	sort.SliceStable(held, func(i, j int) bool { return held[i].slot < held[j].slot })
	return held, d.Bech32(), nil
}

// selectBurn picks up to limit tokens of policyID, oldest UTxO first. The
// royalty token has the empty name. last is the UTxO of the final pick.
func selectBurn(held []heldUTxO, policyID string, match func(name string) bool, limit int) (inputs []indexer.UTxO, names []string, last indexer.UTxO) {
	for _, h := range held {
		units := make([]string, 0)
		assets := h.Assets()
		for unit := range assets {
			units = append(units, unit)
		}
		sort.Strings(units)

		used := false
		for _, unit := range units {
			pid, nameHex, ok := utils.SplitAssetUnit(unit)
			if !ok || pid != policyID {
				continue
			}
			raw, err := hex.DecodeString(nameHex)
			if err != nil {
				continue
			}
			name := string(raw)
			if !match(name) {
				continue
			}
			for q := uint64(0); q < assets[unit] && len(names) < limit; q++ {
				names = append(names, name)
				used = true
				last = h.UTxO
			}
		}
		if used {
			inputs = append(inputs, h.UTxO)
		}
		if len(names) >= limit {
			break
		}
	}
	return inputs, names, last
}

// BurnAll burns every token of the policy in batches of MaxBurnPerTx,
// waiting for each batch to confirm. It returns the number burned.
func (b *Burner) BurnAll(ctx context.Context, p *policy.Policy) (int, error) {
	total := 0
	for {
		held, change, err := b.rootUTxOs(ctx, p)
		if err != nil {
			return total, err
		}
		inputs, names, last := selectBurn(held, p.ID(), func(string) bool { return true }, prt.MaxBurnPerTx)
		if len(names) == 0 {
			if total == 0 {
				log.Error("No tokens found for policy")
				return 0, ErrNoTokens
			}
			return total, nil
		}

		txHash, err := b.burn(ctx, p, inputs, names, change)
		if err != nil {
			return total, err
		}
		total += len(names)
		if err := b.waitSpent(ctx, last); err != nil {
			return total, fmt.Errorf("wait for %s: %w", txHash, err)
		}
	}
}

// BurnToken burns the named token (the empty name is the royalty token).
func (b *Burner) BurnToken(ctx context.Context, p *policy.Policy, name string) (string, error) {
	log.Info("token name = ", name)
	held, change, err := b.rootUTxOs(ctx, p)
	if err != nil {
		return "", err
	}
	inputs, names, _ := selectBurn(held, p.ID(), func(n string) bool { return n == name }, prt.MaxBurnPerTx)
	if len(names) == 0 {
		return "", fmt.Errorf("token %q: %w", name, ErrNoTokens)
	}
	return b.burn(ctx, p, inputs, names, change)
}

func (b *Burner) burn(ctx context.Context, p *policy.Policy, inputs []indexer.UTxO, names []string, change string) (string, error) {
	key, err := p.Owner().SigningKey(prt.AddressRoot)
	if err != nil {
		return "", err
	}
	txHash, err := b.burner.BurnTokens(ctx, p, inputs, key, names, change)
	if err != nil {
		return "", err
	}
	log.Info("burned ", len(names), " token(s) of ", p.ID(), " tx ", txHash)
	tokensBurned.Add(float64(len(names)))
	b.sink.Publish(stamp(Event{Type: EventBurned, Tokens: names, TxHash: txHash}))
	return txHash, nil
}

// waitSpent polls until u is no longer unspent at its address. Other
// outputs of the same tx may stay.
func (b *Burner) waitSpent(ctx context.Context, u indexer.UTxO) error {
	for {
		found, err := b.chain.ContainsUTxO(ctx, u.Address, u.TxHash, u.OutputIndex)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		log.Info("wait")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.wait):
		}
	}
}
