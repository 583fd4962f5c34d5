package evaluator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"contrast/game"

	"github.com/stretchr/testify/require"
)

// echoPredictor answers every position with its first plane value as value.
func echoPredictor(sizes chan<- int) Predictor {
	return PredictorFunc(func(ctx context.Context, batch []game.Planes) ([]Prediction, error) {
		if sizes != nil {
			sizes <- len(batch)
		}
		preds := make([]Prediction, len(batch))
		for i := range batch {
			preds[i].Value = batch[i][0]
		}
		return preds, nil
	})
}

func planesWith(v float32) *game.Planes {
	p := &game.Planes{}
	p[0] = v
	return p
}

func TestDispatcher(t *testing.T) {
	t.Run("batching queued requests into one call", func(t *testing.T) {
		started := make(chan struct{})
		gate := make(chan struct{})
		var calls atomic.Int32
		var sizes []int
		var mu sync.Mutex
		p := PredictorFunc(func(ctx context.Context, batch []game.Planes) ([]Prediction, error) {
			if calls.Add(1) == 1 {
				close(started)
				<-gate
			}
			mu.Lock()
			sizes = append(sizes, len(batch))
			mu.Unlock()
			return echoPredictor(nil).Predict(ctx, batch)
		})
		d := NewDispatcher(p, WithMaxBatch(4))
		d.Start(context.Background())
		defer d.Stop()

		first := d.Submit(context.Background(), planesWith(0.0))
		<-started
		handles := make([]*Handle, 4)
		for i := range handles {
			handles[i] = d.Submit(context.Background(), planesWith(float32(i+1) / 10))
		}
		close(gate)

		pred, err := first.Wait(context.Background())
		require.NoError(t, err)
		require.Equal(t, float32(0), pred.Value)
		for i, h := range handles {
			pred, err := h.Wait(context.Background())
			require.NoError(t, err)
			require.Equal(t, float32(i+1)/10, pred.Value, "Each handle should receive its own prediction")
		}
		mu.Lock()
		require.Equal(t, []int{1, 4}, sizes, "Queued requests should be served together")
		mu.Unlock()
		require.Equal(t, Stats{Batches: 2, Items: 5}, d.Stats())
		require.Equal(t, 2.5, d.Stats().AverageBatch())
	})

	t.Run("never exceeding the max batch", func(t *testing.T) {
		sizes := make(chan int, 64)
		d := NewDispatcher(echoPredictor(sizes), WithMaxBatch(3))
		handles := make([]*Handle, 10)
		for i := range handles {
			handles[i] = d.Submit(context.Background(), planesWith(0))
		}
		d.Start(context.Background())
		defer d.Stop()

		for _, h := range handles {
			_, err := h.Wait(context.Background())
			require.NoError(t, err)
		}
		close(sizes)
		total := 0
		for size := range sizes {
			require.LessOrEqual(t, size, 3)
			total += size
		}
		require.Equal(t, 10, total)
	})

	t.Run("clamping values", func(t *testing.T) {
		d := NewDispatcher(echoPredictor(nil))
		d.Start(context.Background())
		defer d.Stop()

		pred, err := d.Evaluate(context.Background(), planesWith(3))
		require.NoError(t, err)
		require.Equal(t, float32(1), pred.Value)
		pred, err = d.Evaluate(context.Background(), planesWith(-2))
		require.NoError(t, err)
		require.Equal(t, float32(-1), pred.Value)
	})

	t.Run("failing a batch then recovering", func(t *testing.T) {
		boom := errors.New("boom")
		var calls atomic.Int32
		p := PredictorFunc(func(ctx context.Context, batch []game.Planes) ([]Prediction, error) {
			if calls.Add(1) == 1 {
				return nil, boom
			}
			return echoPredictor(nil).Predict(ctx, batch)
		})
		d := NewDispatcher(p, WithBackoff(time.Millisecond))
		d.Start(context.Background())
		defer d.Stop()

		_, err := d.Evaluate(context.Background(), planesWith(0.5))
		require.ErrorIs(t, err, boom, "Predictor error should reach the caller")

		pred, err := d.Evaluate(context.Background(), planesWith(0.5))
		require.NoError(t, err, "Dispatcher should keep serving after a failure")
		require.Equal(t, float32(0.5), pred.Value)
		require.Equal(t, Stats{Batches: 1, Items: 1, Failures: 1}, d.Stats())
	})

	t.Run("rejecting short answers", func(t *testing.T) {
		p := PredictorFunc(func(ctx context.Context, batch []game.Planes) ([]Prediction, error) {
			return nil, nil
		})
		d := NewDispatcher(p)
		d.Start(context.Background())
		defer d.Stop()

		_, err := d.Evaluate(context.Background(), planesWith(0))
		require.ErrorIs(t, err, ErrBatchSize)
	})

	t.Run("stopping", func(t *testing.T) {
		d := NewDispatcher(echoPredictor(nil))
		d.Start(context.Background())

		_, err := d.Evaluate(context.Background(), planesWith(0))
		require.NoError(t, err)
		d.Stop()
		d.Stop() // Stop is idempotent

		_, err = d.Evaluate(context.Background(), planesWith(0))
		require.ErrorIs(t, err, ErrStopped, "Submissions after stop should fail")
	})

	t.Run("resolving queued requests on stop", func(t *testing.T) {
		started := make(chan struct{})
		gate := make(chan struct{})
		var calls atomic.Int32
		p := PredictorFunc(func(ctx context.Context, batch []game.Planes) ([]Prediction, error) {
			if calls.Add(1) == 1 {
				close(started)
				<-gate
			}
			return echoPredictor(nil).Predict(ctx, batch)
		})
		d := NewDispatcher(p)
		d.Start(context.Background())

		inFlight := d.Submit(context.Background(), planesWith(0))
		<-started
		queued := []*Handle{d.Submit(context.Background(), planesWith(0)), d.Submit(context.Background(), planesWith(0))}
		stopped := make(chan struct{})
		go func() {
			d.Stop()
			close(stopped)
		}()
		close(gate)
		<-stopped

		_, err := inFlight.Wait(context.Background())
		require.NoError(t, err, "The batch in flight completes")
		for _, h := range queued {
			_, err := h.Wait(context.Background())
			if err != nil {
				require.ErrorIs(t, err, ErrStopped)
			}
		}
	})

	t.Run("stopping before start", func(t *testing.T) {
		d := NewDispatcher(echoPredictor(nil))
		h := d.Submit(context.Background(), planesWith(0))
		d.Stop()
		d.Start(context.Background())

		_, err := h.Wait(context.Background())
		require.ErrorIs(t, err, ErrStopped)
	})

	t.Run("stopping with the context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		d := NewDispatcher(echoPredictor(nil))
		d.Start(ctx)
		cancel()
		d.Stop()

		_, err := d.Evaluate(context.Background(), planesWith(0))
		require.ErrorIs(t, err, ErrStopped)
	})

	t.Run("giving up waiting with the caller's context", func(t *testing.T) {
		d := NewDispatcher(echoPredictor(nil))
		defer d.Stop()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := d.Evaluate(ctx, planesWith(0))
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("honoring the caller's context on a full queue", func(t *testing.T) {
		d := NewDispatcher(echoPredictor(nil), WithMaxBatch(1))
		defer d.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		// The queue holds 4 requests and nothing serves it
		const callers = 6
		errs := make(chan error, callers)
		for i := 0; i < callers; i++ {
			go func() {
				_, err := d.Evaluate(ctx, planesWith(0))
				errs <- err
			}()
		}

		for i := 0; i < callers; i++ {
			select {
			case err := <-errs:
				require.ErrorIs(t, err, context.DeadlineExceeded)
			case <-time.After(time.Second):
				t.Fatal("Evaluate should return once its context expires")
			}
		}
	})

	t.Run("serving concurrent submitters", func(t *testing.T) {
		d := NewDispatcher(echoPredictor(nil), WithMaxBatch(8))
		d.Start(context.Background())
		defer d.Stop()

		const workers, requests = 16, 20
		var wg sync.WaitGroup
		errs := make(chan error, workers*requests)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < requests; i++ {
					v := float32(w*requests+i) / 1000
					pred, err := d.Evaluate(context.Background(), planesWith(v))
					if err == nil && pred.Value != v {
						err = errors.New("prediction routed to the wrong caller")
					}
					errs <- err
				}
			}(w)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
		require.Equal(t, int64(workers*requests), d.Stats().Items)
	})
}

func TestUnbatched(t *testing.T) {
	e := Unbatched(echoPredictor(nil))

	pred, err := e.Evaluate(context.Background(), planesWith(5))

	require.NoError(t, err)
	require.Equal(t, float32(1), pred.Value)
}

func TestUniformPredictor(t *testing.T) {
	preds, err := NewUniformPredictor().Predict(context.Background(), make([]game.Planes, 3))

	require.NoError(t, err)
	require.Len(t, preds, 3)
	require.Equal(t, Prediction{}, preds[0])
}

func TestActionLogit(t *testing.T) {
	var p Prediction
	a := game.EncodeAction(game.MoveIndex(22, 17), game.TileIndex(game.Black, 12))
	p.Moves[a.Move()] = 1.5
	p.Tiles[a.Tile()] = 0.25

	require.Equal(t, float32(1.75), p.ActionLogit(a))
}
