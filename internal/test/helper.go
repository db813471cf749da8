// Package test provides helpers shared by tests that drive whole instances.
package test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/JaneliaSciComp/aitch/internal/cmn/config"
	"github.com/JaneliaSciComp/aitch/internal/cmn/logger"
	"github.com/JaneliaSciComp/aitch/internal/instance"
	"github.com/JaneliaSciComp/aitch/internal/persis/filestate"
	"github.com/JaneliaSciComp/aitch/internal/runtime/supervisor"
	"github.com/JaneliaSciComp/aitch/internal/scheduler"
)

// HelperOption configures Setup.
type HelperOption func(*Options)

// Options holds the Setup settings.
type Options struct {
	CaptureLoggingOutput bool // CaptureLoggingOutput enables capturing of logging output
	ConfigMutators       []func(*config.Config)
}

// WithCaptureLoggingOutput records log output in Helper.LoggingOutput.
func WithCaptureLoggingOutput() HelperOption {
	return func(opts *Options) {
		opts.CaptureLoggingOutput = true
	}
}

// WithConfigMutator adjusts the configuration before anything is built
// from it.
func WithConfigMutator(mutator func(*config.Config)) HelperOption {
	return func(opts *Options) {
		opts.ConfigMutators = append(opts.ConfigMutators, mutator)
	}
}

// Helper bundles an instance manager over a temporary root whose
// scheduling runs in-process.
type Helper struct {
	Context       context.Context
	Config        *config.Config
	LoggingOutput *SyncBuffer
	Store         *filestate.Store
	Trigger       *scheduler.RunnerTrigger
	Manager       *instance.Manager
}

// Setup creates a Helper. Instances left behind by the test are force
// stopped and every runner is awaited on cleanup.
func Setup(t *testing.T, opts ...HelperOption) Helper {
	t.Helper()

	var options Options
	for _, opt := range opts {
		opt(&options)
	}

	cfg := &config.Config{
		Root:              t.TempDir(),
		Debug:             true,
		LogFormat:         "text",
		LockRetryInterval: 5 * time.Millisecond,
	}
	for _, mutate := range options.ConfigMutators {
		mutate(cfg)
	}

	loggingOutput := &SyncBuffer{}
	loggerOpts := []logger.Option{logger.WithDebug(), logger.WithFormat(cfg.LogFormat)}
	if options.CaptureLoggingOutput {
		loggerOpts = append(loggerOpts, logger.WithWriter(loggingOutput), logger.WithQuiet())
	}
	ctx := logger.WithLogger(context.Background(), logger.NewLogger(loggerOpts...))

	store := filestate.New(cfg.Root, filestate.WithLockRetryInterval(cfg.LockRetryInterval))
	trigger := scheduler.NewRunnerTrigger(store, supervisor.New())
	manager := instance.New(store, trigger)

	t.Cleanup(func() {
		_ = manager.StopAll(ctx, true)
		_ = trigger.Wait()
	})

	return Helper{
		Context:       ctx,
		Config:        cfg,
		LoggingOutput: loggingOutput,
		Store:         store,
		Trigger:       trigger,
		Manager:       manager,
	}
}

// Wait blocks until every runner started so far has returned.
func (h Helper) Wait() error {
	return h.Trigger.Wait()
}

// SyncBuffer is a bytes.Buffer safe for concurrent use.
type SyncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *SyncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
