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

func main() {
	var configPath string
	var serverHost string
	var logLevel string

	root := &cobra.Command{
		Use:     "tiny-treads-client",
		Short:   "Replicating client for the tiny-treads netcode core",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(configPath, serverHost, logLevel)
		},
	}

	root.Flags().StringVar(&configPath, "config", defaultConfigPath("client"), "path to configuration file")
	root.Flags().StringVar(&serverHost, "server-host", "", "override network.server_host")
	root.Flags().StringVar(&logLevel, "log-level", "", "override logging.level")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runClient(configPath, serverHostFlag, logLevelFlag string) error {
	config, err := LoadOrCreateConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serverHostFlag != "" {
		config.Network.ServerHost = serverHostFlag
	}
	if logLevelFlag != "" {
		config.Logging.Level = logLevelFlag
	}

	if err := logging.InitDefaultLogger("hybrid-client", parseLevel(config.Logging.Level), config.Logging.OutputFile); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	registry := world.NewEntityRegistry()
	registry.Register("demo", func(id protocol.EntityID, w *world.World, initial world.Vec2) world.Entity {
		return world.Entity{ID: id, TypeTag: "demo", Position: initial}
	})
	registry.Freeze()

	clk := clock.System{}
	w := world.NewWorld(registry, false, clk)

	cl := networking.NewClient(config.Network.ServerHost, config.Network.TCPPort, config.Network.UDPPort, newDefaultCodec(), clk)
	if err := cl.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer cl.Close()

	logging.Info("client connecting", logging.Fields{
		"server_host": config.Network.ServerHost,
		"tcp_port":    config.Network.TCPPort,
		"udp_port":    config.Network.UDPPort,
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
			if !tick(cl, w, dt) {
				return nil
			}
		}
	}
}

func tick(cl *networking.Client, w *world.World, dt float64) bool {
	result := cl.Pump()
	switch result.ConnectionStatus {
	case 1:
		logging.Info("handshake complete", nil)
	case -1:
		logging.Warn("connection failed", logging.Fields{"state": cl.State().String()})
		return false
	}

	if !result.Connected {
		return true
	}

	for _, pkt := range result.TCPEvents {
		w.HandleNetworkEvent(pkt)
	}
	for _, pkt := range result.UDPEvents {
		w.HandleNetworkEvent(pkt)
	}

	w.Update(dt)

	_, udpOut := w.PumpNetworkEvents()
	for _, pkt := range udpOut {
		if err := cl.SendUDP(pkt); err != nil {
			logging.Debug("udp send failed", logging.Fields{"error": err.Error()})
		}
	}
	return true
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
