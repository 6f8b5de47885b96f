package main

import (
	"context"
	"sort"

	"github.com/thecardroom/tcr/indexer"
)

type utxoSource interface {
	AddressUTXOs(ctx context.Context, address string) ([]indexer.UTxO, error)
}

type slotResolver interface {
	TxSlot(ctx context.Context, txHash string) (uint64, error)
}

type slotUTxO struct {
	indexer.UTxO
	Slot uint64
}

// collectUTxOs reads the UTxOs of every address and orders them by the
// slot of the transaction that created them, oldest first.
func collectUTxOs(ctx context.Context, src utxoSource, slots slotResolver, addresses []string) ([]slotUTxO, error) {
	seen := make(map[string]uint64)
	var out []slotUTxO
	for _, addr := range addresses {
		utxos, err := src.AddressUTXOs(ctx, addr)
		if err != nil {
			return nil, err
		}
		for _, u := range utxos {
			slot, ok := seen[u.TxHash]
			if !ok {
				if slot, err = slots.TxSlot(ctx, u.TxHash); err != nil {
					return nil, err
				}
				seen[u.TxHash] = slot
			}
			out = append(out, slotUTxO{UTxO: u, Slot: slot})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Slot != out[j].Slot {
			return out[i].Slot < out[j].Slot
		}
		return out[i].OutputIndex < out[j].OutputIndex
	})
	return out, nil
}
