package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/nao-lola/internal/bridge"
	"github.com/banshee-data/nao-lola/internal/bus"
	"github.com/banshee-data/nao-lola/internal/config"
	"github.com/banshee-data/nao-lola/internal/db"
	"github.com/banshee-data/nao-lola/internal/lola"
	"github.com/banshee-data/nao-lola/internal/mqttbridge"
	"github.com/banshee-data/nao-lola/internal/transport"
	"github.com/banshee-data/nao-lola/internal/version"
)

var (
	configPath     = flag.String("config", "", "Path to a JSON config file")
	devMode        = flag.Bool("dev", false, "Run against a simulated robot instead of LoLA")
	listen         = flag.String("listen", ":8080", "Listen address for the admin HTTP server")
	transportName  = flag.String("transport", "unix", "Hardware link: unix or serial")
	socketPath     = flag.String("socket", transport.DefaultSocketPath, "LoLA socket path")
	serialPort     = flag.String("serial-port", "", "Serial device (transport=serial)")
	frameSize      = flag.Int("frame-size", transport.DefaultFrameSize, "Sensor frame size in bytes")
	reconnectDelay = flag.Duration("reconnect-delay", time.Second, "Delay before reopening a lost link")
	mqttBroker     = flag.String("mqtt-broker", "", "MQTT broker host:port; empty disables the MQTT mirror")
	mqttPrefix     = flag.String("mqtt-prefix", "nao", "Topic prefix for the MQTT mirror")
	recordDB       = flag.String("record-db", "", "SQLite cycle journal path; empty disables recording")
	showVersion    = flag.Bool("version", false, "Print build information and exit")
)

// simulatedPeriod is the LoLA cycle time.
const simulatedPeriod = 12 * time.Millisecond

// applyFlags copies every flag given on the command line over cfg, so flags
// win over the config file and unset flags leave it alone.
func applyFlags(fs *flag.FlagSet, cfg *config.BridgeConfig) {
	str := func(v string) *string { return &v }
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = str(*listen)
		case "transport":
			cfg.Transport = str(*transportName)
		case "socket":
			cfg.SocketPath = str(*socketPath)
		case "serial-port":
			cfg.SerialPort = str(*serialPort)
		case "frame-size":
			n := *frameSize
			cfg.FrameSize = &n
		case "reconnect-delay":
			cfg.ReconnectDelay = str(reconnectDelay.String())
		case "mqtt-broker":
			cfg.MQTTBroker = str(*mqttBroker)
		case "mqtt-prefix":
			cfg.MQTTPrefix = str(*mqttPrefix)
		case "record-db":
			cfg.RecordDB = str(*recordDB)
		}
	})
}

func loadConfig(fs *flag.FlagSet) (*config.BridgeConfig, error) {
	cfg := &config.BridgeConfig{}
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			return nil, err
		}
	}
	applyFlags(fs, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// simulatedOpener returns an Opener producing a robot that streams a
// standing, fully charged sensor frame.
func simulatedOpener(size int) (transport.Opener, error) {
	frame, err := lola.EncodeSensorFrame(lola.SensorFrame{
		Accelerometer: lola.Vector3{Z: -9.81},
		Battery:       lola.Battery{Charge: 1, Temperature: 30},
		RobotConfig:   lola.RobotConfig{BodyID: "SIM", BodyVersion: "6.0.0", HeadID: "SIM", HeadVersion: "6.0.0"},
	}, size)
	if err != nil {
		return nil, err
	}
	return func(transport.Options) (transport.Porter, error) {
		return transport.NewSimulatedRobot(frame, simulatedPeriod), nil
	}, nil
}

// runLink keeps a session running until ctx is done, reopening the link
// after delay whenever it fails.
func runLink(ctx context.Context, br *bridge.Bridge, open transport.Opener, opts transport.Options, size int, delay time.Duration) {
	info := bridge.SessionInfo{Transport: string(opts.Network), Address: opts.Address}
	for {
		port, err := open(opts)
		if err != nil {
			log.Printf("failed to open %s link %s: %v", opts.Network, opts.Address, err)
		} else {
			err = br.Serve(ctx, transport.NewConn(port, size), info)
			if ctx.Err() != nil {
				return
			}
			log.Printf("link lost: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// Main
func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}
	log.Printf("starting %s", version.String())

	cfg, err := loadConfig(flag.CommandLine)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if flag.Arg(0) == "migrate" {
		path := cfg.GetRecordDB()
		if path == "" {
			log.Fatal("migrate needs -record-db or record_db in the config")
		}
		if err := db.RunMigrateCommand(flag.Args()[1:], path, os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	var open transport.Opener = transport.Open
	opts := cfg.GetTransportOptions()
	if *devMode {
		if open, err = simulatedOpener(cfg.GetFrameSize()); err != nil {
			log.Fatalf("failed to build simulated sensor frame: %v", err)
		}
		opts = transport.Options{Network: "simulated"}
		log.Printf("dev mode: using simulated robot")
	}

	var journal *db.DB
	if path := cfg.GetRecordDB(); path != "" {
		if journal, err = db.OpenDB(path); err != nil {
			log.Fatalf("failed to open cycle journal: %v", err)
		}
		defer journal.Close()
	}

	b := bus.New()
	bcfg := bridge.Config{Bus: b}
	if journal != nil {
		bcfg.Recorder = journal
	}
	br := bridge.New(bcfg)

	// Create a wait group for the HTTP server, MQTT mirror, and control loop routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	br.Start(ctx)

	if broker := cfg.GetMQTTBroker(); broker != "" {
		mirror := mqttbridge.New(mqttbridge.Config{
			Broker:   broker,
			ClientID: cfg.GetMQTTClientID(),
			Prefix:   cfg.GetMQTTPrefix(),
		}, b)
		if err := mirror.Connect(); err != nil {
			log.Printf("mqtt not connected yet, retrying in background: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			mirror.Run(ctx)
			log.Print("mqtt routine terminated")
		}()
	}

	// control loop with reconnect
	wg.Add(1)
	go func() {
		defer wg.Done()
		runLink(ctx, br, open, opts, cfg.GetFrameSize(), cfg.GetReconnectDelay())
		log.Print("control loop routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		br.AttachAdminRoutes(mux)
		if journal != nil {
			journal.AttachAdminRoutes(mux)
		}

		server := &http.Server{
			Addr:    cfg.GetListen(),
			Handler: mux,
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish, then flush the journal
	wg.Wait()
	br.Close()
	log.Printf("Graceful shutdown complete")
}
