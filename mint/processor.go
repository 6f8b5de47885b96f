package mint

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/echovl/cardano-go/crypto"
	"github.com/thecardroom/tcr/chain"
	log "github.com/thecardroom/tcr/common/logger"
	"github.com/thecardroom/tcr/indexer"
	"github.com/thecardroom/tcr/policy"
	prt "github.com/thecardroom/tcr/protocol"
	"github.com/thecardroom/tcr/storage"
	"github.com/thecardroom/tcr/wallet"
)

var ErrSoldOut = errors.New("sold out")

// Chain is what the processor reads from the chain service.
type Chain interface {
	AddressUTXOs(ctx context.Context, address string) ([]indexer.UTxO, error)
	PayerAddress(ctx context.Context, txHash string) (string, error)
}

// SlotResolver finds the slot of a transaction (db-sync or the indexer).
type SlotResolver interface {
	TxSlot(ctx context.Context, txHash string) (uint64, error)
}

type Minter interface {
	MintNFT(ctx context.Context, req chain.MintRequest) (string, error)
	Refund(ctx context.Context, owner *wallet.Wallet, idx prt.AddressIndex, utxo indexer.UTxO, dest string) (string, error)
}

type PaymentStore interface {
	HasPayment(ref prt.UTxORef) (bool, error)
	PutPayment(p *storage.Payment) error
	PutToken(policyID, name, txHash string) error
}

type ProcessorConfig struct {
	Policy       *policy.Policy
	Metametadata *Metametadata
	List         *MetadataList
	Whitelist    []prt.UTxORef
	PollInterval time.Duration
}

// Snapshot is the runner state served by the REST api.
type Snapshot struct {
	Drop           string `json:"drop"`
	Policy         string `json:"policy"`
	PolicyID       string `json:"policyId"`
	MintAddress    string `json:"mintAddress"`
	PresaleAddress string `json:"presaleAddress"`
	Total          int    `json:"total"`
	Remaining      int    `json:"remaining"`
	Minted         int    `json:"minted"`
	Refunded       int    `json:"refunded"`
	Rejected       int    `json:"rejected"`
	LastPoll       int64  `json:"lastPoll"`
}

// Processor turns payments at the owner's mint and presale addresses
// into NFT mints, refunding what it cannot serve.
type Processor struct {
	cfg    ProcessorConfig
	owner  *wallet.Wallet
	chain  Chain
	slots  SlotResolver
	minter Minter
	store  PaymentStore
	sink   EventSink

	prices        map[uint64]int
	presalePrices map[uint64]int

	mintAddrs    []string
	presaleAddrs []string
	changeAddr   string

	mu    sync.Mutex
	stats Snapshot
}

func NewProcessor(cfg ProcessorConfig, c Chain, slots SlotResolver, m Minter, store PaymentStore, sink EventSink) (*Processor, error) {
	if cfg.Policy == nil || cfg.Metametadata == nil || cfg.List == nil {
		return nil, fmt.Errorf("processor: policy, metametadata and metadata list are required")
	}
	if sink == nil {
		sink = nopSink{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 20 * time.Second
	}
	prices, err := cfg.Metametadata.PriceTable(false)
	if err != nil {
		return nil, err
	}
	presale, err := cfg.Metametadata.PriceTable(true)
	if err != nil {
		return nil, err
	}

	owner := cfg.Policy.Owner()
	mintAddrs, err := indexAddresses(owner, prt.AddressMint)
	if err != nil {
		return nil, err
	}
	presaleAddrs, err := indexAddresses(owner, prt.AddressPresale)
	if err != nil {
		return nil, err
	}
	change, err := owner.DelegatedPaymentAddress(prt.AddressRoot)
	if err != nil {
		return nil, err
	}

	p := &Processor{
		cfg:           cfg,
		owner:         owner,
		chain:         c,
		slots:         slots,
		minter:        m,
		store:         store,
		sink:          sink,
		prices:        prices,
		presalePrices: presale,
		mintAddrs:     mintAddrs,
		presaleAddrs:  presaleAddrs,
		changeAddr:    change.Bech32(),
	}
	p.stats = Snapshot{
		Drop:           cfg.List.Drop(),
		Policy:         cfg.Policy.Name(),
		PolicyID:       cfg.Policy.ID(),
		MintAddress:    mintAddrs[0],
		PresaleAddress: presaleAddrs[0],
		Total:          cfg.List.Total(),
		Remaining:      cfg.List.Remaining(),
	}
	dropRemaining.WithLabelValues(p.stats.Drop).Set(float64(p.stats.Remaining))
	return p, nil
}

// indexAddresses lists the enterprise then the delegated address of idx;
// buyers may pay to either.
func indexAddresses(w *wallet.Wallet, idx prt.AddressIndex) ([]string, error) {
	e, err := w.PaymentAddress(idx)
	if err != nil {
		return nil, err
	}
	d, err := w.DelegatedPaymentAddress(idx)
	if err != nil {
		return nil, err
	}
	return []string{e.Bech32(), d.Bech32()}, nil
}

func (p *Processor) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Run processes the whitelist once, then polls for general sale payments
// until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	if len(p.cfg.Whitelist) > 0 {
		log.Info("Process Presale Whitelist Payments: ", len(p.cfg.Whitelist), " UTXOs")
		if err := p.ProcessWhitelist(ctx); err != nil {
			return fmt.Errorf("whitelist: %w", err)
		}
		log.Info("Process Whitelist Complete")
	} else {
		log.Info("Whitelist Not Given")
	}

	log.Info("Process General Sale Payments: ", p.mintAddrs[0])
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			log.Error("payment poll: ", err)
		}
		select {
		case <-ctx.Done():
			log.Info("payment processor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessWhitelist serves the whitelisted UTxOs waiting at the presale
// address at presale prices.
func (p *Processor) ProcessWhitelist(ctx context.Context) error {
	allowed := make(map[prt.UTxORef]bool, len(p.cfg.Whitelist))
	for _, r := range p.cfg.Whitelist {
		allowed[r] = true
	}
	utxos, err := p.sortedUTxOs(ctx, p.presaleAddrs)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, u := range utxos {
		if !allowed[u.Ref()] {
			continue
		}
		delete(allowed, u.Ref())
		if err := p.handle(ctx, u, prt.AddressPresale, p.presalePrices, true); err != nil {
			return err
		}
	}
	for r := range allowed {
		log.Warn("whitelisted utxo not found at presale address: ", r)
	}
	return nil
}

// Poll handles every new UTxO at the mint address, oldest first.
func (p *Processor) Poll(ctx context.Context) error {
	utxos, err := p.sortedUTxOs(ctx, p.mintAddrs)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.LastPoll = time.Now().Unix()
	for _, u := range utxos {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.handle(ctx, u, prt.AddressMint, p.prices, false); err != nil {
			return err
		}
	}
	return nil
}

type slotted struct {
	utxo indexer.UTxO
	slot uint64
}

func (p *Processor) sortedUTxOs(ctx context.Context, addrs []string) ([]indexer.UTxO, error) {
	var all []slotted
	for _, a := range addrs {
		utxos, err := p.chain.AddressUTXOs(ctx, a)
		if err != nil {
			return nil, err
		}
		for _, u := range utxos {
			all = append(all, slotted{utxo: u, slot: p.slotOf(ctx, u.TxHash)})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].slot != all[j].slot {
			return all[i].slot < all[j].slot
		}
		if all[i].utxo.TxHash != all[j].utxo.TxHash {
			return all[i].utxo.TxHash < all[j].utxo.TxHash
		}
		return all[i].utxo.OutputIndex < all[j].utxo.OutputIndex
	})
	out := make([]indexer.UTxO, len(all))
	for i, s := range all {
		out[i] = s.utxo
	}
	return out, nil
}

func (p *Processor) slotOf(ctx context.Context, txHash string) uint64 {
	if p.slots == nil {
		return 0
	}
	slot, err := p.slots.TxSlot(ctx, txHash)
	if err != nil {
		log.Debug("slot of ", txHash, ": ", err)
		return math.MaxUint64
	}
	return slot
}

// handle must be called with p.mu held.
func (p *Processor) handle(ctx context.Context, u indexer.UTxO, idx prt.AddressIndex, prices map[uint64]int, presale bool) error {
	ref := u.Ref()
	seen, err := p.store.HasPayment(ref)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	payer, err := p.chain.PayerAddress(ctx, u.TxHash)
	if err != nil {
		return fmt.Errorf("payer of %s: %w", ref, err)
	}
	pay := &storage.Payment{
		Ref:      ref,
		Drop:     p.cfg.List.Drop(),
		Payer:    payer,
		Lovelace: u.Lovelace(),
		Presale:  presale,
	}
	log.Info("payment ", ref, " from ", payer, ": ", u.Lovelace(), " lovelace")
	p.sink.Publish(stamp(Event{Type: EventPayment, Drop: pay.Drop, Payment: ref.String(), Payer: payer, Lovelace: pay.Lovelace}))

	count, ok := prices[u.Lovelace()]
	var reason string
	switch {
	case len(u.Assets()) > 0:
		reason = "payment carries native tokens"
	case !ok:
		reason = "no price matches the amount"
	case p.cfg.Metametadata.MaxPerTx > 0 && count > p.cfg.Metametadata.MaxPerTx:
		reason = fmt.Sprintf("%d NFTs is over max_per_tx %d", count, p.cfg.Metametadata.MaxPerTx)
	case count > p.cfg.List.Remaining():
		reason = ErrSoldOut.Error()
	}
	pay.Count = count
	if reason != "" {
		return p.refund(ctx, pay, u, idx, reason)
	}
	return p.mint(ctx, pay, u, idx)
}

func (p *Processor) mint(ctx context.Context, pay *storage.Payment, u indexer.UTxO, idx prt.AddressIndex) error {
	var files []*NFTMetadata
	for i := 0; i < pay.Count; i++ {
		f, ok := p.cfg.List.Next()
		if !ok {
			p.cfg.List.Revert()
			return p.refund(ctx, pay, u, idx, ErrSoldOut.Error())
		}
		md, err := ParseNFTFile(f)
		if err != nil {
			p.cfg.List.Revert()
			return p.reject(pay, err.Error())
		}
		files = append(files, md)
	}
	metadata, names, err := MergeMetadata(files)
	if err != nil {
		p.cfg.List.Revert()
		return p.reject(pay, err.Error())
	}

	key, err := p.owner.SigningKey(idx)
	if err != nil {
		p.cfg.List.Revert()
		return err
	}
	txHash, err := p.minter.MintNFT(ctx, chain.MintRequest{
		Policy:        p.cfg.Policy,
		Metadata:      metadata,
		Output:        pay.Payer,
		Inputs:        []indexer.UTxO{u},
		InputKeys:     []crypto.PrvKey{key},
		ChangeAddress: p.changeAddr,
	})
	if err != nil {
		p.cfg.List.Revert()
		return p.reject(pay, "mint failed: "+err.Error())
	}
	if err := p.cfg.List.Commit(); err != nil {
		log.Error("commit drop cursor after ", txHash, ": ", err)
	}

	pay.Status = storage.PaymentMinted
	pay.Tokens = names
	pay.TxHash = txHash
	if err := p.store.PutPayment(pay); err != nil {
		return err
	}
	for _, n := range names {
		if err := p.store.PutToken(p.cfg.Policy.ID(), n, txHash); err != nil {
			log.Error("record token ", n, ": ", err)
		}
	}

	log.Info("minted ", names, " for ", pay.Ref, " tx ", txHash)
	p.stats.Minted++
	p.stats.Remaining = p.cfg.List.Remaining()
	paymentsTotal.WithLabelValues(string(storage.PaymentMinted)).Inc()
	tokensMinted.Add(float64(len(names)))
	dropRemaining.WithLabelValues(pay.Drop).Set(float64(p.stats.Remaining))
	p.sink.Publish(stamp(Event{Type: EventMinted, Drop: pay.Drop, Payment: pay.Ref.String(), Payer: pay.Payer, Tokens: names, TxHash: txHash}))
	return nil
}

func (p *Processor) refund(ctx context.Context, pay *storage.Payment, u indexer.UTxO, idx prt.AddressIndex, reason string) error {
	log.Warn("refund ", pay.Ref, ": ", reason)
	txHash, err := p.minter.Refund(ctx, p.owner, idx, u, pay.Payer)
	if err != nil {
		return p.reject(pay, reason+"; refund failed: "+err.Error())
	}
	pay.Status = storage.PaymentRefunded
	pay.Reason = reason
	pay.TxHash = txHash
	if err := p.store.PutPayment(pay); err != nil {
		return err
	}
	p.stats.Refunded++
	paymentsTotal.WithLabelValues(string(storage.PaymentRefunded)).Inc()
	p.sink.Publish(stamp(Event{Type: EventRefunded, Drop: pay.Drop, Payment: pay.Ref.String(), Payer: pay.Payer, Lovelace: pay.Lovelace, TxHash: txHash, Reason: reason}))
	return nil
}

// reject records a payment that needs the operator; it is not retried.
func (p *Processor) reject(pay *storage.Payment, reason string) error {
	log.Error("payment ", pay.Ref, " rejected: ", reason)
	pay.Status = storage.PaymentRejected
	pay.Reason = reason
	if err := p.store.PutPayment(pay); err != nil {
		return err
	}
	p.stats.Rejected++
	paymentsTotal.WithLabelValues(string(storage.PaymentRejected)).Inc()
	p.sink.Publish(stamp(Event{Type: EventRejected, Drop: pay.Drop, Payment: pay.Ref.String(), Payer: pay.Payer, Reason: reason}))
	return nil
}
