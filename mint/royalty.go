package mint

import (
	"context"
	"errors"
	"fmt"

	log "github.com/thecardroom/tcr/common/logger"
	"github.com/thecardroom/tcr/policy"
	"github.com/thecardroom/tcr/wallet"
)

var ErrRoyaltyAlreadySet = errors.New("royalty already set")

type RoyaltySource interface {
	RoyaltyInfo(ctx context.Context, policyID string) (policy.Royalty, error)
}

type RoyaltyMinter interface {
	MintRoyaltyToken(ctx context.Context, p *policy.Policy, royaltyAddress, rate string) (string, error)
}

// SetRoyalty mints the CIP-27 royalty token of a policy. A policy can
// only carry one.
func SetRoyalty(ctx context.Context, src RoyaltySource, m RoyaltyMinter, p *policy.Policy, percent float64, address string) (string, error) {
	if percent <= 0 {
		return "", fmt.Errorf("royalty must be > 0: %v", percent)
	}
	rate, err := policy.RateFromPercent(percent)
	if err != nil {
		return "", err
	}
	if err := wallet.ValidateAddress(p.Owner().Network(), address); err != nil {
		return "", fmt.Errorf("royalty address: %w", err)
	}

	existing, err := src.RoyaltyInfo(ctx, p.ID())
	switch {
	case err == nil:
		return "", fmt.Errorf("%w: %v%% to %s in tx %s", ErrRoyaltyAlreadySet, existing.Percent(), existing.Address, existing.TxHash)
	case !errors.Is(err, policy.ErrRoyaltyNotSet):
		return "", err
	}

	log.Info("Policy: ", p.Name(), " / ", p.ID(), ", royalty ", rate, " to ", address)
	txHash, err := m.MintRoyaltyToken(ctx, p, address, rate)
	if err != nil {
		return "", err
	}
	log.Info("tx id = ", txHash)
	return txHash, nil
}
