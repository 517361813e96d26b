package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"mintbay-api/internal/forwarder"
	"mintbay-api/internal/logger"
)

// RelayProcessor executes queued forward requests on a pool of workers.
// Ordering between requests from different signers is not guaranteed; a
// single signer's own requests order themselves through the nonce counter.
type RelayProcessor struct {
	tasks       chan forwarder.ForwardRequest
	fwd         *forwarder.Forwarder
	workerCount int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewRelayProcessor creates a relay processor with the given number of
// workers and queue buffer size
func NewRelayProcessor(fwd *forwarder.Forwarder, workerCount, bufferSize int) *RelayProcessor {
	ctx, cancel := context.WithCancel(context.Background())

	return &RelayProcessor{
		tasks:       make(chan forwarder.ForwardRequest, bufferSize),
		fwd:         fwd,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the relay worker pool
func (rp *RelayProcessor) Start() {
	logger.Info("Starting relay processor with workers", zap.Int("worker_count", rp.workerCount))

	for i := 0; i < rp.workerCount; i++ {
		workerID := i
		rp.wg.Add(1)

		go func() {
			defer rp.wg.Done()
			logger.Debug("Relay worker started", zap.Int("worker_id", workerID))

			for {
				select {
				case <-rp.ctx.Done():
					logger.Debug("Relay worker stopped", zap.Int("worker_id", workerID))
					return
				case req := <-rp.tasks:
					if err := rp.processRequest(req); err != nil {
						logger.Error("Failed to execute queued forward request",
							zap.Error(err),
							zap.String("signer", req.From.Hex()),
							zap.Uint64("nonce", req.Nonce),
						)
					}
				}
			}
		}()
	}
}

// Stop drains the workers and shuts the processor down
func (rp *RelayProcessor) Stop() {
	logger.Info("Stopping relay processor")
	rp.cancel()
	rp.wg.Wait()
	logger.Info("Relay processor stopped")
}

// Enqueue adds a forward request to the queue
func (rp *RelayProcessor) Enqueue(req forwarder.ForwardRequest) error {
	select {
	case rp.tasks <- req:
		logger.Debug("Forward request queued",
			zap.String("signer", req.From.Hex()),
			zap.Uint64("nonce", req.Nonce),
		)
		return nil
	case <-time.After(5 * time.Second):
		return errors.New("relay queue is full, try again later")
	}
}

func (rp *RelayProcessor) processRequest(req forwarder.ForwardRequest) error {
	ctx, cancel := context.WithTimeout(rp.ctx, 60*time.Second)
	defer cancel()

	if _, err := rp.fwd.Execute(ctx, req); err != nil {
		return err
	}

	logger.Info("Queued forward request executed",
		zap.String("signer", req.From.Hex()),
		zap.String("target", req.To.Hex()),
		zap.Uint64("nonce", req.Nonce),
	)
	return nil
}
