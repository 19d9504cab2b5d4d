package printer

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/catprint/internal/escpos"
	"github.com/srg/catprint/internal/groutine"
)

// DefaultAckTimeout bounds the wait for the ready sentinel after a transfer.
const DefaultAckTimeout = 30 * time.Second

// JobOptions configures a PrintJob. Zero values select the session defaults.
type JobOptions struct {
	ChunkSize  int
	AckTimeout time.Duration
}

// PrintJob is an immutable payload plus its transfer parameters.
type PrintJob struct {
	payload    []byte
	chunkSize  int
	ackTimeout time.Duration
}

// NewPrintJob copies payload into a new job.
func NewPrintJob(payload []byte, opts JobOptions) PrintJob {
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = DefaultAckTimeout
	}
	return PrintJob{
		payload:    append([]byte(nil), payload...),
		chunkSize:  opts.ChunkSize,
		ackTimeout: opts.AckTimeout,
	}
}

// Payload returns a copy of the job bytes.
func (j PrintJob) Payload() []byte { return append([]byte(nil), j.payload...) }

func (j PrintJob) Len() int                  { return len(j.payload) }
func (j PrintJob) ChunkSize() int            { return j.chunkSize }
func (j PrintJob) AckTimeout() time.Duration { return j.ackTimeout }

// Completion is the single outcome of a submitted job.
type Completion struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// resolve records the outcome; later calls are ignored.
func (c *Completion) resolve(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}

// Done is closed once the job has an outcome.
func (c *Completion) Done() <-chan struct{} { return c.done }

// Err returns the outcome, or nil while the job is still running.
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Wait blocks until the job resolves and returns its outcome.
func (c *Completion) Wait() error {
	<-c.done
	return c.err
}

// Orchestrator runs print jobs through a session: send, then wait for ready.
type Orchestrator struct {
	session *Session
	opts    JobOptions
	logger  *logrus.Logger
}

// NewOrchestrator creates an orchestrator; opts are the defaults for jobs built by the Print helpers.
func NewOrchestrator(session *Session, opts JobOptions, logger *logrus.Logger) *Orchestrator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Orchestrator{session: session, opts: opts, logger: logger}
}

// Submit starts job and returns immediately. A session that is not
// Subscribed or Idle resolves the completion at once with ErrNotReady.
func (o *Orchestrator) Submit(ctx context.Context, job PrintJob) *Completion {
	c := newCompletion()

	if st := o.session.State(); st != StateSubscribed && st != StateIdle {
		c.resolve(newError(KindNotReady, nil, "session is %s", st))
		return c
	}

	groutine.Go(ctx, "print-job", func(ctx context.Context) {
		c.resolve(o.run(ctx, job))
	})
	return c
}

func (o *Orchestrator) run(ctx context.Context, job PrintJob) error {
	log := o.logger.WithFields(logrus.Fields{
		"address": o.session.Address(),
		"bytes":   job.Len(),
	})

	err := o.session.send(ctx, job.payload, job.chunkSize)
	if errors.Is(err, ErrInvalidState) {
		// another job won the race for the session
		return newError(KindNotReady, err, "session busy")
	}
	if err == nil {
		err = o.session.AwaitReady(ctx, job.ackTimeout)
	}

	if err != nil {
		log.WithField("error", err).Warn("Print job failed")
		return err
	}
	log.Info("Print job done")
	return nil
}

// PrintText prints text followed by a line feed, preceded by the style's commands.
func (o *Orchestrator) PrintText(ctx context.Context, text string, style escpos.TextStyle) *Completion {
	return o.Submit(ctx, NewPrintJob(escpos.StyledText(text, style), o.opts))
}

// PrintRaw prints b unchanged.
func (o *Orchestrator) PrintRaw(ctx context.Context, b []byte) *Completion {
	return o.Submit(ctx, NewPrintJob(b, o.opts))
}

// PrintImage rasterizes img and prints it.
func (o *Orchestrator) PrintImage(ctx context.Context, img image.Image, pack escpos.PackOptions) *Completion {
	payload, err := escpos.Image(img, pack)
	if err != nil {
		c := newCompletion()
		c.resolve(err)
		return c
	}
	return o.Submit(ctx, NewPrintJob(payload, o.opts))
}
