// Package daemon implements the daemon lifecycle manager.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"firestige.xyz/bytescope/internal/command"
	"firestige.xyz/bytescope/internal/config"
	"firestige.xyz/bytescope/internal/core"
	logpkg "firestige.xyz/bytescope/internal/log"
	"firestige.xyz/bytescope/internal/metrics"
	"firestige.xyz/bytescope/internal/monitor"
	"firestige.xyz/bytescope/internal/rules"
	"firestige.xyz/bytescope/internal/sink"
	"firestige.xyz/bytescope/internal/transport"
)

// Daemon manages the bytescope daemon process lifecycle.
type Daemon struct {
	// Configuration
	config     *config.GlobalConfig
	configPath string
	socketPath string
	pidFile    string

	// Core components
	store         *rules.Store
	monitor       *monitor.Monitor
	source        transport.Source
	sender        transport.Sender // nil when the source cannot write
	kafkaSink     *sink.KafkaSink  // nil if the kafka sink is disabled
	cmdHandler    *command.CommandHandler
	udsServer     *command.UDSServer
	metricsServer *metrics.Server // nil if metrics disabled

	// Lifecycle management
	ctx          context.Context
	cancel       context.CancelFunc
	pipeline     sync.WaitGroup
	shutdownChan chan struct{}
	sigChan      chan os.Signal
	stopOnce     sync.Once
	pidWritten   bool
}

// New creates a new Daemon instance. Empty socketPath or pidFile fall back
// to the control section of the configuration.
func New(configPath, socketPath, pidFile string) (*Daemon, error) {
	globalConfig, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if socketPath == "" {
		socketPath = globalConfig.Control.Socket
	}
	if pidFile == "" {
		pidFile = globalConfig.Control.PIDFile
	}

	d := &Daemon{
		config:       globalConfig,
		configPath:   configPath,
		socketPath:   socketPath,
		pidFile:      pidFile,
		shutdownChan: make(chan struct{}, 1),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())

	return d, nil
}

// Start initializes and starts all daemon components.
func (d *Daemon) Start() error {
	// 1. Initialize logging system
	if err := d.initLogging(); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	slog.Info("starting bytescope daemon",
		"version", command.Version,
		"config", d.configPath,
		"socket", d.socketPath,
		"source", d.config.Source.Type,
	)

	// 2. Refuse to displace a live daemon, then write PID file
	if command.SocketAlive(d.socketPath) {
		return fmt.Errorf("%w: %s is answering", core.ErrDaemonRunning, d.socketPath)
	}
	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	// 3. Start metrics server
	if err := d.startMetrics(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	// 4. Rule store, optionally seeded from a rule file
	d.store = rules.NewStore()
	if err := d.loadRules(); err != nil {
		return err
	}

	// 5. Monitor and its sinks
	sinks, err := d.buildSinks()
	if err != nil {
		return err
	}
	d.monitor, err = monitor.New(monitor.Config{
		Start:          d.config.Framing.Start,
		End:            d.config.Framing.End,
		MaxMessages:    d.config.Framing.MaxMessages,
		MaxBufferBytes: d.config.Framing.MaxBufferBytes,
		QueueSize:      d.config.Framing.QueueSize,
	}, d.store, sinks...)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	// 6. Byte source
	if err := d.buildSource(); err != nil {
		return err
	}
	d.startPipeline()

	// 7. Command handler; daemon_shutdown triggers graceful stop
	d.cmdHandler = command.NewCommandHandler(d.monitor, d.store, d.source.Name(), d.sender)
	d.cmdHandler.SetShutdownFunc(func() {
		slog.Info("shutdown triggered via daemon_shutdown command")
		d.TriggerShutdown()
	})

	// 8. Start UDS server for CLI control
	d.udsServer = command.NewUDSServer(d.socketPath, d.cmdHandler)
	if err := d.udsServer.Listen(); err != nil {
		return fmt.Errorf("failed to start uds server: %w", err)
	}
	go func() {
		if err := d.udsServer.Start(d.ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("uds server failed", "error", err)
		}
	}()

	slog.Info("daemon started successfully")
	return nil
}

func (d *Daemon) loadRules() error {
	if d.config.Rules == "" {
		return nil
	}
	data, err := os.ReadFile(d.config.Rules)
	if err != nil {
		return fmt.Errorf("failed to read rule file: %w", err)
	}
	rf, err := config.ParseRuleFileAuto(data, d.config.Rules)
	if err != nil {
		return fmt.Errorf("invalid rule file %s: %w", d.config.Rules, err)
	}
	if err := rf.Apply(d.store); err != nil {
		return fmt.Errorf("failed to apply rule file: %w", err)
	}
	slog.Info("rules loaded", "file", d.config.Rules, "count", rf.Count())
	return nil
}

func (d *Daemon) buildSinks() ([]monitor.Sink, error) {
	var sinks []monitor.Sink
	if d.config.Sink.Log.Enabled {
		sinks = append(sinks, sink.NewLogSink(nil))
	}
	if kc := d.config.Sink.Kafka; kc.Enabled {
		ks, err := sink.NewKafkaSink(sink.KafkaConfig{
			Brokers:      kc.Brokers,
			Topic:        kc.Topic,
			BatchTimeout: kc.BatchTimeout,
			Compression:  kc.Compression,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka sink: %w", err)
		}
		d.kafkaSink = ks
		sinks = append(sinks, ks)
	}
	return sinks, nil
}

func (d *Daemon) buildSource() error {
	sc := d.config.Source
	switch sc.Type {
	case "pcap":
		src, err := transport.NewPcapReplay(transport.PcapConfig{
			File: sc.Pcap.File,
			Port: uint16(sc.Pcap.Port),
			Loop: sc.Pcap.Loop,
		})
		if err != nil {
			return fmt.Errorf("failed to create pcap source: %w", err)
		}
		d.source = src
	default:
		client := transport.NewTCPClient(transport.TCPConfig{
			Address:          sc.Address,
			DialTimeout:      sc.DialTimeout,
			Reconnect:        sc.Reconnect,
			ReconnectBackoff: sc.ReconnectBackoff,
			ReadBuffer:       sc.ReadBuffer,
			SendQueue:        sc.SendQueue,
		})
		d.source = client
		d.sender = client
	}
	return nil
}

// startPipeline runs the monitor consumer and the source producer. A source
// that ends (a finished replay, or a tcp peer without reconnect) leaves the
// daemon up so the retained messages stay inspectable.
func (d *Daemon) startPipeline() {
	d.pipeline.Add(2)
	go func() {
		defer d.pipeline.Done()
		if err := d.monitor.Run(d.ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("monitor stopped", "error", err)
		}
	}()
	go func() {
		defer d.pipeline.Done()
		err := d.source.Run(d.ctx, d.monitor.Chunks())
		switch {
		case err == nil:
			slog.Info("source finished", "source", d.source.Name())
		case errors.Is(err, context.Canceled):
		default:
			slog.Error("source stopped", "source", d.source.Name(), "error", err)
		}
	}()
}

// Stop performs graceful shutdown of all daemon components. It is safe to
// call more than once.
func (d *Daemon) Stop() {
	d.stopOnce.Do(d.stop)
}

func (d *Daemon) stop() {
	slog.Info("initiating graceful shutdown")

	// 1. Stop UDS server (no new CLI commands)
	if d.udsServer != nil {
		slog.Info("stopping uds server")
		d.udsServer.Stop()
	}

	// 2. Cancel context: source, monitor and background servers
	d.cancel()
	d.pipeline.Wait()

	// 3. Flush sinks
	if d.kafkaSink != nil {
		if err := d.kafkaSink.Close(); err != nil {
			slog.Error("error closing kafka sink", "error", err)
		}
	}

	// 4. Stop metrics server
	if d.metricsServer != nil {
		slog.Info("stopping metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.metricsServer.Stop(shutdownCtx); err != nil {
			slog.Error("error stopping metrics server", "error", err)
		}
	}

	// 5. Unregister signal handler to prevent goroutine leak
	if d.sigChan != nil {
		signal.Stop(d.sigChan)
	}

	// 6. Remove PID file
	if err := d.removePIDFile(); err != nil {
		slog.Error("error removing PID file", "error", err)
	}

	slog.Info("daemon stopped gracefully")

	// 7. Release the log file
	logpkg.Close()
}

// Run runs the daemon main loop, blocking until shutdown is triggered.
// Shutdown can be triggered by:
//  1. OS signals (SIGTERM, SIGINT)
//  2. daemon_shutdown command via UDS
//  3. SIGHUP triggers config reload
func (d *Daemon) Run() error {
	d.sigChan = make(chan os.Signal, 1)
	signal.Notify(d.sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	slog.Info("daemon running, waiting for signals or commands")

	for {
		select {
		case sig := <-d.sigChan:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				slog.Info("received shutdown signal", "signal", sig)
				d.Stop()
				return nil

			case syscall.SIGHUP:
				slog.Info("received reload signal")
				if err := d.Reload(); err != nil {
					slog.Error("failed to reload config", "error", err)
				}
			}

		case <-d.shutdownChan:
			slog.Info("shutdown triggered by command")
			d.Stop()
			return nil

		case <-d.ctx.Done():
			slog.Info("context cancelled", "error", d.ctx.Err())
			d.Stop()
			return d.ctx.Err()
		}
	}
}

// Reload reloads the global configuration.
// Hot-reloadable: log level/format, framing delimiters.
// Cold (requires restart): source, listen addresses, sinks, history bounds.
func (d *Daemon) Reload() error {
	slog.Info("reloading configuration", "path", d.configPath)

	newConfig, err := config.Load(d.configPath)
	if err != nil {
		return fmt.Errorf("failed to load new config: %w", err)
	}

	hotReloaded := []string{}
	requiresRestart := []string{}
	old := d.config

	// 1. Logging
	d.config = newConfig
	if err := d.initLogging(); err != nil {
		slog.Error("failed to reinitialize logging", "error", err)
	} else if newConfig.Log != old.Log {
		hotReloaded = append(hotReloaded, "log")
	}

	// 2. Framing delimiters
	if newConfig.Framing.Start != old.Framing.Start || newConfig.Framing.End != old.Framing.End {
		if err := d.monitor.SetDelimiters(newConfig.Framing.Start, newConfig.Framing.End); err != nil {
			slog.Error("failed to apply delimiters", "error", err)
		} else {
			hotReloaded = append(hotReloaded, "framing")
		}
	}

	// 3. Warn about cold-reload items that changed
	if newConfig.Source.Type != old.Source.Type || newConfig.Source.Address != old.Source.Address {
		requiresRestart = append(requiresRestart, "source")
	}
	if newConfig.Metrics.Listen != old.Metrics.Listen {
		requiresRestart = append(requiresRestart, "metrics.listen")
	}
	if newConfig.Framing.MaxMessages != old.Framing.MaxMessages {
		requiresRestart = append(requiresRestart, "framing.max_messages")
	}

	slog.Info("configuration reloaded",
		"hot_reloaded", hotReloaded,
		"requires_restart", requiresRestart,
	)

	return nil
}

// TriggerShutdown triggers graceful shutdown from external caller (e.g., daemon_shutdown command).
func (d *Daemon) TriggerShutdown() {
	select {
	case d.shutdownChan <- struct{}{}:
	default:
	}
}

// Monitor returns the running monitor; nil before Start.
func (d *Daemon) Monitor() *monitor.Monitor {
	return d.monitor
}

// MetricsAddr returns the bound metrics address, or "" when disabled.
func (d *Daemon) MetricsAddr() string {
	if d.metricsServer == nil {
		return ""
	}
	return d.metricsServer.Addr()
}

func (d *Daemon) initLogging() error {
	if err := logpkg.Init(d.config.Log); err != nil {
		return err
	}
	slog.Debug("logging initialized",
		"level", d.config.Log.Level,
		"format", d.config.Log.Format,
	)
	return nil
}

// startMetrics starts the metrics HTTP server if enabled.
func (d *Daemon) startMetrics() error {
	if !d.config.Metrics.Enabled {
		slog.Info("metrics server disabled")
		return nil
	}

	d.metricsServer = metrics.NewServer(d.config.Metrics.Listen, d.config.Metrics.Path)
	if err := d.metricsServer.Start(d.ctx); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	slog.Info("metrics server started",
		"addr", d.metricsServer.Addr(),
		"path", d.config.Metrics.Path,
	)

	return nil
}

// writePIDFile writes the current process ID to the PID file.
func (d *Daemon) writePIDFile() error {
	if d.pidFile == "" {
		return nil
	}

	pid := os.Getpid()
	data := []byte(strconv.Itoa(pid) + "\n")

	if err := os.WriteFile(d.pidFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write PID file %s: %w", d.pidFile, err)
	}
	d.pidWritten = true

	slog.Debug("PID file written", "path", d.pidFile, "pid", pid)
	return nil
}

// removePIDFile removes the PID file.
func (d *Daemon) removePIDFile() error {
	if d.pidFile == "" || !d.pidWritten {
		return nil
	}

	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file %s: %w", d.pidFile, err)
	}

	slog.Debug("PID file removed", "path", d.pidFile)
	return nil
}
