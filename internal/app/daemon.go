package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/rbright/murmur/internal/cloud"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/indicator"
	"github.com/rbright/murmur/internal/ipc"
	"github.com/rbright/murmur/internal/localasr"
	"github.com/rbright/murmur/internal/netcheck"
	"github.com/rbright/murmur/internal/output"
	"github.com/rbright/murmur/internal/pipeline"
	"github.com/rbright/murmur/internal/session"
	"github.com/rbright/murmur/internal/settings"
	"github.com/rbright/murmur/internal/transcript"
)

// daemon owns the long-lived collaborators behind one coordinator.
type daemon struct {
	logger      *slog.Logger
	coordinator *session.Coordinator
	recorder    *pipeline.Recorder
	monitor     *netcheck.Monitor
	closers     []io.Closer
}

// buildDaemon wires every backend from runtime config and the preference store.
func buildDaemon(cfg config.Config, store *settings.Store, logger *slog.Logger) *daemon {
	d := &daemon{
		logger:   logger,
		recorder: pipeline.NewRecorder(cfg, logger),
		monitor:  netcheck.New(cfg.Network.Probe, cfg.Network.Interval(), logger),
	}

	cloudClient := cloud.New(cloud.Config{
		BaseURL:         cfg.Cloud.BaseURL,
		TranscribeModel: cfg.Cloud.TranscribeModel,
		PolishModel:     cfg.Cloud.PolishModel,
		TextPath:        cfg.Cloud.TextPath,
		Timeout:         cfg.Cloud.RequestTimeout(),
	}, store.Credential, cloud.WithLogger(logger))

	transcribers := map[session.Mode]session.Transcriber{
		session.ModeCloud:    cloudClient,
		session.ModeOfflineA: d.offlineTranscriber(cfg.Offline, cfg.Offline.ModelA),
		session.ModeOfflineB: d.offlineTranscriber(cfg.Offline, cfg.Offline.ModelB),
	}

	d.coordinator = session.NewCoordinator(session.Deps{
		Logger:       logger,
		Recorder:     d.recorder,
		Transcribers: transcribers,
		Polisher:     cloudClient,
		Indicator:    indicator.New(cfg.Indicator, logger),
		Committer:    output.NewCommitter(cfg, logger),
		Preferences:  store,
		Credentials:  store,
		Network:      d.monitor,
		Settings:     store,
		Script:       transcript.NewScriptConverter(logger),
		Terminology:  transcript.NewTerminology(cfg.Terminology.Extra),
	}, session.Options{
		ProcessingTimeout: cfg.Session.ProcessingTimeout(),
		RearmDelay:        cfg.Session.RearmDelay(),
		MinRecordingBytes: cfg.Session.MinRecordingBytes,
	})
	return d
}

func (d *daemon) offlineTranscriber(offline config.OfflineConfig, model config.ModelConfig) session.Transcriber {
	if model.Backend == config.BackendWhisper {
		return localasr.NewWhisperCLI(localasr.WhisperConfig{Command: model.Command.Argv, Model: model.Model}, d.logger)
	}
	recognizer := localasr.NewGRPCRecognizer(localasr.GRPCConfig{Endpoint: offline.GRPC, Model: model.Model}, d.logger)
	d.closers = append(d.closers, recognizer)
	return recognizer
}

// run serves IPC on listener until ctx is done, then waits for the
// coordinator to release its session.
func (d *daemon) run(ctx context.Context, listener net.Listener) error {
	d.recorder.CleanupStale()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		d.monitor.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		_ = d.coordinator.Run(ctx)
	}()

	d.logger.Info("daemon ready", "socket", listener.Addr().String())
	serveErr := ipc.Serve(ctx, listener, d.coordinator)
	cancel()
	wg.Wait()

	var errs []error
	if serveErr != nil {
		errs = append(errs, fmt.Errorf("ipc server failed: %w", serveErr))
	}
	for _, closer := range d.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.logger.Info("daemon stopped")
	return errors.Join(errs...)
}
