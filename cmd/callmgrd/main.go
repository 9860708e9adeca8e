package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sweeney/callmgrd/internal/collab"
	"github.com/sweeney/callmgrd/internal/config"
	"github.com/sweeney/callmgrd/internal/contacts"
	"github.com/sweeney/callmgrd/internal/ipc"
	"github.com/sweeney/callmgrd/internal/logging"
	"github.com/sweeney/callmgrd/internal/modem"
	"github.com/sweeney/callmgrd/internal/session"
)

func main() {
	configPath := flag.String("config", "/etc/callmgrd/callmgrd.yaml", "Path to config file")
	flag.Parse()

	// A local .env can override config for development setups.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logs := logging.New(logging.Options{
		File:         cfg.Logging.File,
		ConsoleLevel: cfg.Logging.ConsoleLevel,
		FileLevel:    cfg.Logging.FileLevel,
		CoreLevel:    cfg.Logging.Core,
		ModemLevel:   cfg.Logging.Modem,
		IPCLevel:     cfg.Logging.IPC,
	})
	defer logs.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logs.Core.Infof("received signal %v, shutting down", sig)
		cancel()
	}()

	store, err := contacts.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.DB)
	if err != nil {
		logs.Core.Fatalf("connecting to redis: %v", err)
	}
	defer store.Close()

	surface, err := ipc.NewMQTTSurface(ipc.MQTTOptions{
		Broker:         cfg.MQTT.Broker,
		ClientID:       cfg.MQTT.ClientID,
		Prefix:         cfg.MQTT.TopicPrefix,
		QoS:            1,
		WatchedClients: cfg.MQTT.WatchedClients,
	})
	if err != nil {
		logs.Core.Fatalf("connecting to MQTT: %v", err)
	}
	defer surface.Close()
	logs.IPC.Infof("connected to MQTT broker %s", cfg.MQTT.Broker)

	deps := session.Deps{
		Config:    cfg,
		Log:       logs,
		Surface:   surface,
		Audio:     collab.NewLocalAudio(logs.Core),
		Ringer:    collab.NewLocalRinger(logs.Core),
		HandsFree: collab.NewLocalHandsFree(logs.Core),
		Recorder:  collab.NewLocalRecorder(),
		Store:     store,
	}

	if err := run(ctx, cfg, logs, deps); err != nil && ctx.Err() == nil {
		logs.Core.Fatalf("error: %v", err)
	}
	logs.Core.Info("shutdown complete")
}

// run supervises the modem session, reconnecting until the context is
// canceled.
func run(ctx context.Context, cfg *config.Config, logs *logging.Set, deps session.Deps) error {
	for {
		err := runSession(ctx, cfg, deps)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			logs.Modem.Warnf("modem session error: %v, reconnecting in 5s", err)
		}
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
			return nil
		}
	}
}

func runSession(ctx context.Context, cfg *config.Config, deps session.Deps) error {
	client, err := modem.Connect(cfg.Modem.Addr())
	if err != nil {
		return err
	}
	defer client.Close()

	go func() {
		<-ctx.Done()
		client.Close()
	}()

	deps.Modem = client
	o := session.New(deps)
	if err := o.Run(ctx, client.Events()); err != nil {
		return fmt.Errorf("session loop: %w", err)
	}
	if ctx.Err() == nil {
		return fmt.Errorf("modem connection closed")
	}
	return nil
}
