package yvtesting

import (
	"context"
	"time"
)

// Anything that can mine blocks on demand
type BlockMiner interface {
	AdvanceBlocks(ctx context.Context, count uint64, interval time.Duration) error
}

// A simulated clock that moves by mining blocks at an assumed average interval.
// It never looks at wall-clock time.
type BlockClock struct {
	miner     BlockMiner
	blockTime time.Duration
}

// Create a new block clock
func NewBlockClock(miner BlockMiner, blockTime time.Duration) *BlockClock {
	return &BlockClock{
		miner:     miner,
		blockTime: blockTime,
	}
}

// The number of blocks that covers the duration, rounded up
func (c *BlockClock) BlocksFor(duration time.Duration) uint64 {
	if duration <= 0 || c.blockTime <= 0 {
		return 0
	}
	blocks := duration / c.blockTime
	if duration%c.blockTime != 0 {
		blocks++
	}
	return uint64(blocks)
}

// The average number of blocks mined per simulated hour
func (c *BlockClock) BlocksPerHour() float64 {
	return float64(time.Hour) / float64(c.blockTime)
}

// Advance simulated time by mining the matching number of blocks
func (c *BlockClock) Advance(ctx context.Context, duration time.Duration) error {
	return c.miner.AdvanceBlocks(ctx, c.BlocksFor(duration), c.blockTime)
}
