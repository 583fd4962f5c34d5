package evaluator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"contrast/game"

	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxBatch = 32
	DefaultTimeout  = 10 * time.Millisecond
	DefaultBackoff  = 10 * time.Millisecond

	// Average batch size is logged every statsInterval batches
	statsInterval = 500
)

type DispatcherOption func(d *Dispatcher)

// WithMaxBatch caps the number of requests served by one Predict call.
func WithMaxBatch(size int) DispatcherOption {
	return func(d *Dispatcher) {
		if size > 0 {
			d.maxBatch = size
		}
	}
}

// WithTimeout sets how long the loop waits for the first request of a batch.
func WithTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithBackoff sets the pause after a failed batch.
func WithBackoff(backoff time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if backoff >= 0 {
			d.backoff = backoff
		}
	}
}

type response struct {
	prediction Prediction
	err        error
}

type request struct {
	planes game.Planes
	result chan response
}

// Handle is the pending result of one submitted position.
type Handle struct {
	result chan response
	done   <-chan struct{}
}

// Wait blocks until the request is resolved, ctx is done or the dispatcher
// has stopped. Call it once per handle.
func (h *Handle) Wait(ctx context.Context) (Prediction, error) {
	select {
	case r := <-h.result:
		return r.prediction, r.err
	case <-ctx.Done():
		return Prediction{}, ctx.Err()
	case <-h.done:
		select {
		case r := <-h.result:
			return r.prediction, r.err
		default:
			return Prediction{}, ErrStopped
		}
	}
}

// Stats counts the work done by a dispatcher.
type Stats struct {
	Batches  int64
	Items    int64
	Failures int64
}

// AverageBatch is the mean number of positions per successful batch.
func (s Stats) AverageBatch() float64 {
	if s.Batches == 0 {
		return 0
	}
	return float64(s.Items) / float64(s.Batches)
}

// Dispatcher collects evaluation requests from concurrent searchers into
// batches and serves each batch with a single Predict call. The predictor is
// only ever called from the dispatcher's own goroutine.
type Dispatcher struct {
	predictor Predictor
	maxBatch  int
	timeout   time.Duration
	backoff   time.Duration

	queue chan request
	stop  chan struct{}
	done  chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	batches  atomic.Int64
	items    atomic.Int64
	failures atomic.Int64
}

func NewDispatcher(predictor Predictor, options ...DispatcherOption) *Dispatcher {
	if predictor == nil {
		panic("dispatcher needs a predictor")
	}
	d := &Dispatcher{ // Default values
		predictor: predictor,
		maxBatch:  DefaultMaxBatch,
		timeout:   DefaultTimeout,
		backoff:   DefaultBackoff,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, option := range options {
		option(d)
	}
	d.queue = make(chan request, d.maxBatch*4)
	return d
}

// Start runs the batching loop until Stop is called or ctx is done.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		go d.loop(ctx)
	})
}

// Stop ends the loop and waits for it. Queued requests and every later
// submission resolve with ErrStopped.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stop)
		// Claim the start so a later Start cannot run the loop
		d.startOnce.Do(func() { close(d.done) })
	})
	<-d.done
}

// Submit enqueues a copy of planes. While the queue is full it blocks until
// there is room, ctx is done or the dispatcher stops; the handle then
// resolves with the corresponding error.
func (d *Dispatcher) Submit(ctx context.Context, planes *game.Planes) *Handle {
	h := &Handle{result: make(chan response, 1), done: d.done}
	select {
	case <-d.done:
		h.result <- response{err: ErrStopped}
		return h
	default:
	}

	select {
	case d.queue <- request{planes: *planes, result: h.result}:
	case <-ctx.Done():
		h.result <- response{err: ctx.Err()}
	case <-d.done:
		h.result <- response{err: ErrStopped}
	}
	return h
}

// Evaluate submits planes and waits for the result.
func (d *Dispatcher) Evaluate(ctx context.Context, planes *game.Planes) (Prediction, error) {
	return d.Submit(ctx, planes).Wait(ctx)
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Batches:  d.batches.Load(),
		Items:    d.items.Load(),
		Failures: d.failures.Load(),
	}
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer close(d.done)
	defer d.drain()

	batch := make([]request, 0, d.maxBatch)
	inputs := make([]game.Planes, 0, d.maxBatch)
	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	for {
		select {
		case <-d.stop:
			return
		default:
		}

		batch = batch[:0]
		resetTimer(timer, d.timeout)
		select {
		case <-ctx.Done():
			return
		case <-d.stop:
			return
		case <-timer.C:
			continue // Nothing arrived
		case r := <-d.queue:
			batch = append(batch, r)
		}

	collect:
		for len(batch) < d.maxBatch {
			select {
			case r := <-d.queue:
				batch = append(batch, r)
			default:
				break collect
			}
		}

		inputs = inputs[:0]
		for i := range batch {
			inputs = append(inputs, batch[i].planes)
		}
		if err := d.process(ctx, batch, inputs); err != nil {
			select {
			case <-ctx.Done():
				return
			case <-d.stop:
				return
			case <-time.After(d.backoff):
			}
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, batch []request, inputs []game.Planes) error {
	preds, err := d.predictor.Predict(ctx, inputs)
	if err == nil && len(preds) != len(batch) {
		err = fmt.Errorf("%d predictions for %d positions: %w", len(preds), len(batch), ErrBatchSize)
	}
	if err != nil {
		d.failures.Add(1)
		log.Error().Err(err).Msgf("evaluation batch of %d failed", len(batch))
		for _, r := range batch {
			r.result <- response{err: err}
		}
		return err
	}

	batches := d.batches.Add(1)
	items := d.items.Add(int64(len(batch)))
	for i, r := range batch {
		preds[i].Value = clamp(preds[i].Value)
		r.result <- response{prediction: preds[i]}
	}
	if batches%statsInterval == 0 {
		log.Debug().Msgf("dispatcher served %d batches, average batch size %.1f", batches, float64(items)/float64(batches))
	}
	return nil
}

// drain resolves everything left in the queue with ErrStopped.
func (d *Dispatcher) drain() {
	for {
		select {
		case r := <-d.queue:
			r.result <- response{err: ErrStopped}
		default:
			return
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
