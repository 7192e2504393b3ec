package main

import (
	"context"
	"errors"
	"flag"
	"sync/atomic"
	"testing"
	"time"

	"github.com/banshee-data/nao-lola/internal/bridge"
	"github.com/banshee-data/nao-lola/internal/config"
	"github.com/banshee-data/nao-lola/internal/lola"
	"github.com/banshee-data/nao-lola/internal/monitoring"
	"github.com/banshee-data/nao-lola/internal/transport"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

// TestFlagDefaults verifies the command-line defaults match the config defaults.
func TestFlagDefaults(t *testing.T) {
	cfg := &config.BridgeConfig{}
	if *listen != cfg.GetListen() {
		t.Errorf("listen default = %q, want %q", *listen, cfg.GetListen())
	}
	if *socketPath != cfg.GetSocketPath() {
		t.Errorf("socket default = %q, want %q", *socketPath, cfg.GetSocketPath())
	}
	if *frameSize != cfg.GetFrameSize() {
		t.Errorf("frame-size default = %d, want %d", *frameSize, cfg.GetFrameSize())
	}
	if *reconnectDelay != cfg.GetReconnectDelay() {
		t.Errorf("reconnect-delay default = %v, want %v", *reconnectDelay, cfg.GetReconnectDelay())
	}
	if *mqttPrefix != cfg.GetMQTTPrefix() {
		t.Errorf("mqtt-prefix default = %q, want %q", *mqttPrefix, cfg.GetMQTTPrefix())
	}
	if *devMode {
		t.Error("dev mode should be off by default")
	}
}

// TestApplyFlags verifies that only flags given on the command line override
// values from the config file.
func TestApplyFlags(t *testing.T) {
	defer func() {
		*frameSize = transport.DefaultFrameSize
		*recordDB = ""
	}()

	socket := "/var/run/lola.sock"
	cfg := &config.BridgeConfig{SocketPath: &socket}

	if err := flag.CommandLine.Set("frame-size", "1024"); err != nil {
		t.Fatal(err)
	}
	if err := flag.CommandLine.Set("record-db", "journal.db"); err != nil {
		t.Fatal(err)
	}
	applyFlags(flag.CommandLine, cfg)

	if cfg.GetFrameSize() != 1024 {
		t.Errorf("frame size = %d, want 1024", cfg.GetFrameSize())
	}
	if cfg.GetRecordDB() != "journal.db" {
		t.Errorf("record db = %q", cfg.GetRecordDB())
	}
	if cfg.GetSocketPath() != socket {
		t.Errorf("socket path overridden: %q", cfg.GetSocketPath())
	}
	if cfg.Listen != nil {
		t.Errorf("listen should not be set, got %q", *cfg.Listen)
	}
}

func TestSimulatedOpener(t *testing.T) {
	open, err := simulatedOpener(transport.DefaultFrameSize)
	if err != nil {
		t.Fatalf("simulatedOpener failed: %v", err)
	}
	port, err := open(transport.Options{})
	if err != nil {
		t.Fatal(err)
	}
	conn := transport.NewConn(port, transport.DefaultFrameSize)
	defer conn.Close()

	data, err := conn.ReceiveFrame()
	if err != nil {
		t.Fatalf("ReceiveFrame failed: %v", err)
	}
	frame, err := lola.DecodeSensorFrame(data)
	if err != nil {
		t.Fatalf("simulated frame does not decode: %v", err)
	}
	if frame.Battery.Charge != 1 || frame.RobotConfig.BodyID != "SIM" {
		t.Errorf("unexpected simulated frame: %+v", frame)
	}
}

// TestRunLink_Reconnects verifies the link is reopened after open and
// receive failures, and that cancellation ends the loop.
func TestRunLink_Reconnects(t *testing.T) {
	br := bridge.New(bridge.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	br.Start(ctx)

	var calls atomic.Int32
	open := func(opts transport.Options) (transport.Porter, error) {
		switch calls.Add(1) {
		case 1:
			return nil, errors.New("socket not ready")
		case 2:
			port := transport.NewTestablePort()
			port.FailNextRead(errors.New("connection reset"))
			return port, nil
		default:
			cancel()
			return nil, errors.New("shutting down")
		}
	}

	done := make(chan struct{})
	go func() {
		runLink(ctx, br, open, transport.Options{Network: transport.NetworkUnix, Address: "/tmp/robocup"}, transport.DefaultFrameSize, time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runLink did not return after cancel")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("open called %d times, want 3", got)
	}
	br.Close()
}

// TestRunLink_SimulatedRobot runs real cycles against the dev-mode robot.
func TestRunLink_SimulatedRobot(t *testing.T) {
	open, err := simulatedOpener(transport.DefaultFrameSize)
	if err != nil {
		t.Fatal(err)
	}
	br := bridge.New(bridge.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	br.Start(ctx)

	done := make(chan struct{})
	go func() {
		runLink(ctx, br, open, transport.Options{Network: "simulated"}, transport.DefaultFrameSize, time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for br.Stats().Cycles < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d cycles completed", br.Stats().Cycles)
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
	br.Close()
	if br.Stats().DecodeErrors != 0 {
		t.Errorf("decode errors = %d", br.Stats().DecodeErrors)
	}
}
