package mailer

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// ErrDispatcherClosed is returned by Dispatch after Close.
var ErrDispatcherClosed = errors.New("mail dispatcher closed")

// DeliveryRecorder observes the final outcome of each dispatched message.
type DeliveryRecorder interface {
	MailDelivered(ok bool)
}

// Dispatcher sends messages asynchronously, retrying transient failures with
// exponential backoff. Dispatch never blocks on delivery.
type Dispatcher struct {
	mailer      Mailer
	logger      zerolog.Logger
	recorder    DeliveryRecorder
	maxRetries  uint64
	baseBackoff time.Duration
	sendTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

type DispatcherOption func(*Dispatcher)

func WithLogger(logger zerolog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithRetries(maxRetries uint64, baseBackoff time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.maxRetries = maxRetries
		if baseBackoff > 0 {
			d.baseBackoff = baseBackoff
		}
	}
}

func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.sendTimeout = timeout
	}
}

func WithDeliveryRecorder(recorder DeliveryRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.recorder = recorder
	}
}

func NewDispatcher(mailer Mailer, options ...DispatcherOption) (*Dispatcher, error) {
	if mailer == nil {
		return nil, errors.New("[NewDispatcher] mailer is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		mailer:      mailer,
		logger:      zerolog.Nop(),
		maxRetries:  3,
		baseBackoff: 500 * time.Millisecond,
		sendTimeout: 30 * time.Second,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range options {
		opt(d)
	}
	return d, nil
}

// Dispatch queues msg for delivery and returns immediately.
func (d *Dispatcher) Dispatch(msg Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(msg)
	}()
	return nil
}

func (d *Dispatcher) deliver(msg Message) {
	backoff := retry.WithMaxRetries(d.maxRetries, retry.NewExponential(d.baseBackoff))

	attempt := 0
	err := retry.Do(d.ctx, backoff, func(ctx context.Context) error {
		attempt++
		sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()

		ok, err := d.mailer.SendMail(sendCtx, msg)
		if err != nil {
			d.logger.Warn().Err(err).Int("attempt", attempt).Msg("mail delivery failed")
			return retry.RetryableError(err)
		}
		if !ok {
			return retry.RetryableError(errors.New("mail rejected by relay"))
		}
		return nil
	})

	if d.recorder != nil {
		d.recorder.MailDelivered(err == nil)
	}
	if err != nil {
		d.logger.Error().Err(err).Int("attempts", attempt).Str("subject", msg.Subject).Msg("mail delivery abandoned")
		return
	}
	d.logger.Debug().Int("attempts", attempt).Str("subject", msg.Subject).Msg("mail delivered")
}

// Close stops accepting messages and waits for in-flight deliveries. When ctx
// ends first, pending retries are cancelled and ctx's error is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return errors.Wrap(ctx.Err(), "[Dispatcher.Close] deliveries cancelled")
	}
}
