package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitIdle(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Wait(ctx))
}

func TestQueueRunsTasksInFIFOOrder(t *testing.T) {
	q := New(0, nil)

	var mu sync.Mutex
	var order []int
	dones := make([]<-chan error, 0, 5)
	for i := 0; i < 5; i++ {
		i := i
		done, err := q.Enqueue(context.Background(), func(ctx context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
		dones = append(dones, done)
	}

	for _, d := range dones {
		assert.NoError(t, <-d)
	}
	waitIdle(t, q)

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.Equal(t, Idle, q.State())
}

func TestQueueNeverOverlapsAndHonoursDelay(t *testing.T) {
	const delay = 40 * time.Millisecond
	q := New(delay, nil)

	var mu sync.Mutex
	running := 0
	var spans [][2]time.Time

	task := func(ctx context.Context) error {
		mu.Lock()
		running++
		if running > 1 {
			t.Errorf("tasks overlap: %d running", running)
		}
		mu.Unlock()

		start := time.Now()
		time.Sleep(5 * time.Millisecond)
		end := time.Now()

		mu.Lock()
		running--
		spans = append(spans, [2]time.Time{start, end})
		mu.Unlock()
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done, err := q.Enqueue(context.Background(), task)
			if err != nil {
				t.Errorf("enqueue: %v", err)
				return
			}
			<-done
		}()
	}
	wg.Wait()
	waitIdle(t, q)

	require.Len(t, spans, 3)
	for i := 1; i < len(spans); i++ {
		gap := spans[i][0].Sub(spans[i-1][1])
		assert.GreaterOrEqual(t, gap, delay, "gap between task %d and %d", i-1, i)
	}
}

func TestQueueSwallowsErrorsAndPanics(t *testing.T) {
	q := New(0, nil)

	failed, err := q.Enqueue(context.Background(), func(ctx context.Context) error {
		return errors.New("upstream down")
	})
	require.NoError(t, err)

	panicked, err := q.Enqueue(context.Background(), func(ctx context.Context) error {
		panic("boom")
	})
	require.NoError(t, err)

	ran := false
	ok, err := q.Enqueue(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)

	assert.EqualError(t, <-failed, "upstream down")
	assert.ErrorContains(t, <-panicked, "boom")
	assert.NoError(t, <-ok)
	assert.True(t, ran)

	waitIdle(t, q)
}

func TestQueuePrunesCancelledTasks(t *testing.T) {
	q := New(0, nil)

	release := make(chan struct{})
	first, err := q.Enqueue(context.Background(), func(ctx context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ran := false
	second, err := q.Enqueue(ctx, func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)

	cancel()
	close(release)

	assert.NoError(t, <-first)
	assert.ErrorIs(t, <-second, context.Canceled)
	assert.False(t, ran)

	waitIdle(t, q)
}

func TestQueueRestartsLazily(t *testing.T) {
	q := New(0, nil)
	assert.Equal(t, Idle, q.State())

	for round := 0; round < 2; round++ {
		done, err := q.Enqueue(context.Background(), func(ctx context.Context) error { return nil })
		require.NoError(t, err)
		assert.NoError(t, <-done)
		waitIdle(t, q)
		assert.Equal(t, Idle, q.State())
		assert.Zero(t, q.Len())
	}
}

func TestQueueCloseDropsPendingAndInterruptsDelay(t *testing.T) {
	q := New(time.Hour, nil)

	first, err := q.Enqueue(context.Background(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.NoError(t, <-first)

	// The worker is now sleeping for an hour before it looks at this one.
	second, err := q.Enqueue(context.Background(), func(ctx context.Context) error {
		t.Error("dropped task ran")
		return nil
	})
	require.NoError(t, err)

	q.Close()
	assert.ErrorIs(t, <-second, ErrClosed)

	_, err = q.Enqueue(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)

	waitIdle(t, q)
}

func TestQueueRejectsNilTask(t *testing.T) {
	q := New(0, nil)
	_, err := q.Enqueue(context.Background(), nil)
	assert.Error(t, err)
}
