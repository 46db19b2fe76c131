package mailer

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

type PoolOptions struct {
	Workers     int
	Size        int
	SendTimeout time.Duration
	// Registerer receives the pool metrics; nil leaves them unregistered.
	Registerer prometheus.Registerer
}

// Pool is a bounded in-process queue drained by a fixed set of workers.
// Failed deliveries are logged and counted, never retried.
type Pool struct {
	sender      Sender
	logger      *logrus.Logger
	sendTimeout time.Duration

	jobs    chan EmailJob
	done    chan struct{}
	wg      sync.WaitGroup // workers
	senders sync.WaitGroup // Enqueue calls past the closed check
	mu      sync.Mutex
	closed  bool

	closeJobs sync.Once

	sent   prometheus.Counter
	failed prometheus.Counter
	depth  prometheus.Gauge
}

func NewPool(sender Sender, logger *logrus.Logger, opts PoolOptions) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.Size <= 0 {
		opts.Size = 100
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 30 * time.Second
	}
	factory := promauto.With(opts.Registerer)
	p := &Pool{
		sender:      sender,
		logger:      logger,
		sendTimeout: opts.SendTimeout,
		jobs:        make(chan EmailJob, opts.Size),
		done:        make(chan struct{}),
		sent: factory.NewCounter(prometheus.CounterOpts{
			Name: "mail_jobs_sent_total",
			Help: "Emails delivered by the mail pool.",
		}),
		failed: factory.NewCounter(prometheus.CounterOpts{
			Name: "mail_jobs_failed_total",
			Help: "Emails the mail pool failed to deliver.",
		}),
		depth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mail_queue_depth",
			Help: "Emails waiting in the mail pool.",
		}),
	}
	for i := 0; i < opts.Workers; i++ {
		p.wg.Add(1)
		go p.work(i)
	}
	return p
}

// Enqueue blocks while the queue is full until ctx is done or the pool closes.
// It fails with ErrNotConfigured before hand-off when the sender cannot deliver.
func (p *Pool) Enqueue(ctx context.Context, job EmailJob) error {
	if err := configured(p.sender); err != nil {
		return err
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrQueueClosed
	}
	p.senders.Add(1)
	p.mu.Unlock()
	defer p.senders.Done()

	p.depth.Inc()
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		p.depth.Dec()
		return ctx.Err()
	case <-p.done:
		p.depth.Dec()
		return ErrQueueClosed
	}
}

// Close stops intake and waits for queued jobs to be delivered or ctx to end.
// Enqueue calls blocked on a full queue are released with ErrQueueClosed.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.done)
	}
	p.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		p.senders.Wait()
		p.closeJobs.Do(func() { close(p.jobs) })
		p.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) work(id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.deliver(id, job)
	}
}

func (p *Pool) deliver(id int, job EmailJob) {
	p.depth.Dec()
	ctx, cancel := context.WithTimeout(context.Background(), p.sendTimeout)
	err := p.sender.Send(ctx, job.To, job.Subject, job.Text, job.HTML)
	cancel()
	if err != nil {
		p.failed.Inc()
		if p.logger != nil {
			p.logger.WithError(err).WithFields(logrus.Fields{"worker": id, "to": job.To, "subject": job.Subject}).Error("email send failed")
		}
		return
	}
	p.sent.Inc()
	if p.logger != nil {
		p.logger.WithFields(logrus.Fields{"worker": id, "to": job.To}).Debug("email sent")
	}
}
