package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	bridgeSimulator "github.com/LeonardoBeccarini/telldus_queue/internal/bridge-simulator"
	"github.com/LeonardoBeccarini/telldus_queue/internal/model"
	"github.com/LeonardoBeccarini/telldus_queue/internal/transport"
	"github.com/LeonardoBeccarini/telldus_queue/pkg/mqttbus"
)

func main() {
	host := flag.String("host", "localhost", "MQTT broker host")
	port := flag.Int("port", 1883, "MQTT broker port")
	clientID := flag.String("client-id", "bridge-sim", "MQTT client ID")
	duplicates := flag.Int("duplicates", 2, "extra copies of every status report")
	spacing := flag.Duration("spacing", 50*time.Millisecond, "gap between duplicate reports")
	loss := flag.Float64("loss", 0.2, "fraction of commands lost on air")
	interval := flag.Duration("remote-interval", 0, "simulate a remote press every interval (0 = off)")
	devices := flag.String("devices", "1,2,3", "device ids the remote can press")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	var ids []model.DeviceID
	for _, p := range strings.Split(*devices, ",") {
		id, err := model.ParseDeviceID(p)
		if err != nil {
			log.Fatalf("bridge-sim: %v", err)
		}
		ids = append(ids, id)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := mqttbus.NewConn(ctx, mqttbus.Config{
		Host:     *host,
		Port:     *port,
		User:     "guest",
		Password: "guest",
		ClientID: *clientID,
	})
	if err != nil {
		log.Fatal(err)
	}

	publisher := mqttbus.NewPublisher(client, 0, false)
	consumer := mqttbus.NewConsumer(client, 0, nil, transport.CommandTopicPrefix+"#")
	sim := bridgeSimulator.NewBridgeSimulator(consumer, publisher, bridgeSimulator.NewRemoteGenerator(ids, *seed), bridgeSimulator.Options{
		Duplicates: *duplicates,
		Spacing:    *spacing,
		LossRate:   *loss,
		Seed:       *seed,
	})
	sim.Start(ctx, *interval)
}
