package yvtesting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingMiner struct {
	counts    []uint64
	intervals []time.Duration
}

func (m *recordingMiner) AdvanceBlocks(ctx context.Context, count uint64, interval time.Duration) error {
	m.counts = append(m.counts, count)
	m.intervals = append(m.intervals, interval)
	return nil
}

func TestBlocksFor(t *testing.T) {
	clock := NewBlockClock(&recordingMiner{}, 13200*time.Millisecond)
	require.Equal(t, uint64(3273), clock.BlocksFor(12*time.Hour))
	require.Equal(t, uint64(1), clock.BlocksFor(time.Second))
	require.Equal(t, uint64(2), clock.BlocksFor(26400*time.Millisecond))
	require.Equal(t, uint64(0), clock.BlocksFor(0))
	require.InDelta(t, 272.7272, clock.BlocksPerHour(), 1e-3)
}

func TestBlockClockAdvance(t *testing.T) {
	miner := &recordingMiner{}
	clock := NewBlockClock(miner, 12*time.Second)
	require.NoError(t, clock.Advance(context.Background(), time.Hour))
	require.Equal(t, []uint64{300}, miner.counts)
	require.Equal(t, []time.Duration{12 * time.Second}, miner.intervals)
}
