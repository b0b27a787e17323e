package taskqueue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestTasksRunInSubmissionOrder(t *testing.T) {
	q := New(context.Background(), zerolog.Nop(), 16)
	defer q.Close()

	var order []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		q.Submit(func(ctx context.Context) error {
			order = append(order, i)
			if i == 4 {
				close(done)
			}
			return nil
		})
	}
	<-done
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestFailingTaskDoesNotBreakChain(t *testing.T) {
	q := New(context.Background(), zerolog.Nop(), 16)
	defer q.Close()

	q.Submit(func(ctx context.Context) error { return errors.New("boom") })

	var ran int32
	q.Submit(func(ctx context.Context) error {
		atomic.StoreInt32(&ran, 1)
		return nil
	})
	q.Flush()

	require.Equal(t, int32(1), atomic.LoadInt32(&ran))
}

func TestFlushWaitsForPriorSubmissions(t *testing.T) {
	q := New(context.Background(), zerolog.Nop(), 16)
	defer q.Close()

	var completed int32
	for i := 0; i < 10; i++ {
		q.Submit(func(ctx context.Context) error {
			atomic.AddInt32(&completed, 1)
			return nil
		})
	}
	q.Flush()
	require.Equal(t, int32(10), atomic.LoadInt32(&completed))
}

func TestCloseDrainsBeforeReturning(t *testing.T) {
	q := New(context.Background(), zerolog.Nop(), 16)

	var completed int32
	for i := 0; i < 20; i++ {
		q.Submit(func(ctx context.Context) error {
			atomic.AddInt32(&completed, 1)
			return nil
		})
	}
	q.Close()
	require.Equal(t, int32(20), atomic.LoadInt32(&completed))
}
