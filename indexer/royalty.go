package indexer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/thecardroom/tcr/policy"
	prt "github.com/thecardroom/tcr/protocol"
)

// RoyaltyInfo finds the CIP-27 royalty of a policy: the first mint of
// the empty-name token and the label 777 metadata of that transaction.
// A policy without one returns policy.ErrRoyaltyNotSet.
func (c *Client) RoyaltyInfo(ctx context.Context, policyID string) (policy.Royalty, error) {
	history, err := c.AssetHistory(ctx, policyID, "")
	if err != nil {
		if IsNotFound(err) {
			return policy.Royalty{}, policy.ErrRoyaltyNotSet
		}
		return policy.Royalty{}, err
	}

	for _, h := range history {
		if h.Action != "minted" || h.Amount != "1" {
			continue
		}
		md, err := c.TransactionMetadata(ctx, h.TxHash)
		if err != nil {
			return policy.Royalty{}, err
		}
		for _, m := range md {
			if m.Label != strconv.Itoa(prt.RoyaltyLabel) {
				continue
			}
			r, err := policy.ParseRoyalty(m.JSONMetadata)
			if err != nil {
				return policy.Royalty{}, fmt.Errorf("tx %s: %w", h.TxHash, err)
			}
			r.TxHash = h.TxHash
			return r, nil
		}
	}
	return policy.Royalty{}, policy.ErrRoyaltyNotSet
}

// PolicyNFTCount sums the quantities of every asset under policyID.
func (c *Client) PolicyNFTCount(ctx context.Context, policyID string) (uint64, error) {
	assets, err := c.AssetsByPolicy(ctx, policyID)
	if err != nil {
		if IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	var n uint64
	for _, a := range assets {
		q, err := strconv.ParseUint(a.Quantity, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("asset %s quantity %q: %w", a.Asset, a.Quantity, err)
		}
		n += q
	}
	return n, nil
}
