package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Machine-builder/tiny-treads/pkg/logging"
	"github.com/Machine-builder/tiny-treads/shared/clock"
	"github.com/Machine-builder/tiny-treads/shared/networking"
	"github.com/Machine-builder/tiny-treads/shared/protocol"
	"github.com/Machine-builder/tiny-treads/shared/world"
)

const version = "0.1.0-alpha"

// clientModel is the opaque per-client application state the server
// core carries but never inspects; a real game would track score,
// team, or input sequence numbers here.
type clientModel struct {
	connectedAt time.Time
}

func main() {
	var configPath string
	var tcpAddr string
	var udpAddr string
	var logLevel string

	root := &cobra.Command{
		Use:     "tiny-treads-server",
		Short:   "Authoritative netcode server for the tiny-treads core",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(configPath, tcpAddr, udpAddr, logLevel)
		},
	}

	root.Flags().StringVar(&configPath, "config", defaultConfigPath("server"), "path to configuration file")
	root.Flags().StringVar(&tcpAddr, "tcp-addr", "", "override network.tcp_addr")
	root.Flags().StringVar(&udpAddr, "udp-addr", "", "override network.udp_addr")
	root.Flags().StringVar(&logLevel, "log-level", "", "override logging.level")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer(configPath, tcpAddrFlag, udpAddrFlag, logLevelFlag string) error {
	config, err := LoadOrCreateConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if tcpAddrFlag != "" {
		config.Network.TCPAddr = tcpAddrFlag
	}
	if udpAddrFlag != "" {
		config.Network.UDPAddr = udpAddrFlag
	}
	if logLevelFlag != "" {
		config.Logging.Level = logLevelFlag
	}

	if err := logging.InitDefaultLogger("hybrid-server", parseLevel(config.Logging.Level), config.Logging.OutputFile); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	registry := world.NewEntityRegistry()
	registry.Register("demo", func(id protocol.EntityID, w *world.World, initial world.Vec2) world.Entity {
		return world.Entity{ID: id, TypeTag: "demo", Position: initial}
	})
	registry.Freeze()

	clk := clock.System{}
	w := world.NewWorld(registry, true, clk)

	srv, err := networking.NewServer(config.Network.TCPAddr, config.Network.UDPAddr,
		func(protocol.ClientID) *clientModel { return &clientModel{connectedAt: time.Now()} },
		newDefaultCodec(), clk)
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer srv.Close()

	logging.Info("server started", logging.Fields{
		"tcp_addr": config.Network.TCPAddr,
		"udp_addr": config.Network.UDPAddr,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	tickInterval := time.Second / time.Duration(config.World.TickRateHz)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	dt := tickInterval.Seconds()
	for {
		select {
		case sig := <-sigCh:
			logging.Info("shutting down", logging.Fields{"signal": sig.String()})
			return nil
		case <-ticker.C:
			tick(srv, w, dt)
		}
	}
}

func tick(srv *networking.Server[*clientModel], w *world.World, dt float64) {
	result := srv.Pump()
	for _, cid := range result.NewClients {
		logging.Info("client connected", logging.Fields{"client_id": cid})
	}
	for _, cid := range result.Disconnected {
		logging.Info("client disconnected", logging.Fields{"client_id": cid})
	}
	for _, ev := range result.TCPEvents {
		w.HandleNetworkEvent(ev.Packet)
	}
	for _, ev := range result.UDPEvents {
		w.HandleNetworkEvent(ev.Packet)
	}

	w.Update(dt)

	_, udpOut := w.PumpNetworkEvents()
	for _, pkt := range udpOut {
		if err := srv.SendUDP(pkt, nil); err != nil {
			logging.Debug("udp broadcast failed", logging.Fields{"error": err.Error()})
		}
	}
}

func newDefaultCodec() *protocol.Codec {
	c := protocol.NewCodec()
	if err := protocol.RegisterDefault(c); err != nil {
		panic(fmt.Sprintf("register default codec: %v", err))
	}
	return c
}

func parseLevel(level string) logging.LogLevel {
	switch level {
	case "debug":
		return logging.DEBUG
	case "warn":
		return logging.WARN
	case "error":
		return logging.ERROR
	default:
		return logging.INFO
	}
}

func defaultConfigPath(role string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Sprintf("/etc/tiny-treads/%s.yaml", role)
	}
	return homeDir + "/.tiny-treads/" + role + ".yaml"
}
