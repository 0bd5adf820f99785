package buffer

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/operion/sentinel-agent/internal/models"
)

func metric(mount string) models.DiskMetric {
	return models.DiskMetric{
		Timestamp:  1234567890,
		Device:     "/dev/sda1",
		MountPoint: mount,
		TotalBytes: 1000,
		UsedBytes:  500,
	}
}

func TestNew_RejectsZeroCapacity(t *testing.T) {
	_, err := New(0, zap.NewNop())
	assert.Error(t, err)

	_, err = New(-1, zap.NewNop())
	assert.Error(t, err)
}

func TestPush_PreservesFIFOOrder(t *testing.T) {
	buf, err := New(10, zap.NewNop())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		buf.Push(metric(fmt.Sprintf("/mnt/%d", i)))
	}

	drained := buf.DrainAll()
	require.Len(t, drained, 5)
	for i, m := range drained {
		assert.Equal(t, fmt.Sprintf("/mnt/%d", i), m.MountPoint)
	}
}

func TestPush_EvictsOldestWhenFull(t *testing.T) {
	buf, err := New(5, zap.NewNop())
	require.NoError(t, err)

	// Push r1..r7 into a buffer of capacity 5: r1 and r2 must be evicted.
	for i := 1; i <= 7; i++ {
		buf.Push(metric(fmt.Sprintf("/r%d", i)))
	}

	assert.Equal(t, 5, buf.Len())
	assert.Equal(t, uint64(2), buf.Evicted())

	drained := buf.DrainAll()
	require.Len(t, drained, 5)
	for i, m := range drained {
		assert.Equal(t, fmt.Sprintf("/r%d", i+3), m.MountPoint)
	}
}

func TestDrainAll_EmptiesBuffer(t *testing.T) {
	buf, err := New(3, zap.NewNop())
	require.NoError(t, err)

	buf.Push(metric("/"))
	assert.Len(t, buf.DrainAll(), 1)
	assert.Empty(t, buf.DrainAll())
	assert.Equal(t, 0, buf.Len())
}

func TestBuffer_NeverExceedsCapacity(t *testing.T) {
	buf, err := New(3, zap.NewNop())
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		buf.Push(metric("/"))
		assert.LessOrEqual(t, buf.Len(), 3)
	}
	assert.Equal(t, uint64(97), buf.Evicted())
}

func TestBuffer_ConcurrentPushAndDrain(t *testing.T) {
	buf, err := New(64, zap.NewNop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				buf.Push(metric("/"))
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			buf.DrainAll()
		}
	}()
	wg.Wait()

	// Whatever the interleaving, the capacity bound holds.
	assert.LessOrEqual(t, buf.Len(), 64)
}
