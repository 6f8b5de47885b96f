package indexer

import (
	"context"

	log "github.com/thecardroom/tcr/common/logger"
	"golang.org/x/sync/errgroup"
)

// Status checks health, clock and the latest block together. Any failure
// gives the zero Status so the status bar simply shows "offline".
func (c *Client) Status(ctx context.Context) Status {
	var (
		health *Health
		clock  *Clock
		block  *Block
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		health, err = c.Health(gctx)
		return err
	})
	g.Go(func() (err error) {
		clock, err = c.Clock(gctx)
		return err
	})
	g.Go(func() (err error) {
		block, err = c.LatestBlock(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Debug("status check failed: ", err)
		return Status{}
	}
	return Status{
		Healthy:    health.IsHealthy,
		ServerTime: clock.ServerTime,
		Height:     block.Height,
		Slot:       block.Slot,
	}
}
