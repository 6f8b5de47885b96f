package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thecardroom/tcr/indexer"
)

type mapSource map[string][]indexer.UTxO

func (m mapSource) AddressUTXOs(ctx context.Context, address string) ([]indexer.UTxO, error) {
	return m[address], nil
}

type countingSlots struct {
	slots map[string]uint64
	calls int
}

func (c *countingSlots) TxSlot(ctx context.Context, txHash string) (uint64, error) {
	c.calls++
	return c.slots[txHash], nil
}

func TestCollectUTxOsSortsBySlot(t *testing.T) {
	src := mapSource{
		"addr_a": {{TxHash: "tx3", OutputIndex: 0}, {TxHash: "tx1", OutputIndex: 1}},
		"addr_b": {{TxHash: "tx1", OutputIndex: 0}, {TxHash: "tx2", OutputIndex: 0}},
	}
	slots := &countingSlots{slots: map[string]uint64{"tx1": 100, "tx2": 200, "tx3": 300}}

	got, err := collectUTxOs(context.Background(), src, slots, []string{"addr_a", "addr_b"})
	require.NoError(t, err)

	var order []string
	for _, u := range got {
		order = append(order, u.Ref().String())
	}
	assert.Equal(t, []string{"tx1#0", "tx1#1", "tx2#0", "tx3#0"}, order)
	assert.Equal(t, 3, slots.calls)
}
