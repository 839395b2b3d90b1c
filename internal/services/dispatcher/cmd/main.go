package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"github.com/LeonardoBeccarini/telldus_queue/internal/services/dispatcher"
	"github.com/LeonardoBeccarini/telldus_queue/internal/transport"
	"github.com/LeonardoBeccarini/telldus_queue/pkg/dedup"
	"github.com/LeonardoBeccarini/telldus_queue/pkg/mqttbus"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("dispatcher: config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === MQTT ===
	client, err := mqttbus.NewConn(ctx, cfg.MQTT)
	if err != nil {
		log.Fatalf("dispatcher: mqtt connection error: %v", err)
	}
	defer mqttbus.Close(client)

	// === InfluxDB (opzionale) ===
	var writer *dispatcher.Writer
	if cfg.InfluxURL != "" {
		influx := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
		defer influx.Close()
		writer = dispatcher.NewWriter(influx.WriteAPI(cfg.InfluxOrg, cfg.InfluxBucket))
		defer writer.Flush()
	}

	// === Core ===
	metrics := dispatcher.NewMetrics()
	tr := transport.NewMQTT(client, cfg.Breaker)
	svc := dispatcher.NewService(tr, cfg.Core(),
		dispatcher.WithObserver(metrics),
		dispatcher.WithRxObserver(metrics),
	)
	defer svc.Close()

	var sink dispatcher.Sink
	if writer != nil {
		sink = writer
	}
	notify := dispatcher.NewNotifier(mqttbus.NewPublisher(client, 1, false), sink)
	svc.AddDeviceEventListener(notify.Status)
	intake := dispatcher.NewIntake(svc, notify, metrics)

	go func() {
		if err := tr.Listen(ctx); err != nil {
			log.Fatalf("dispatcher: bridge subscribe error: %v", err)
		}
	}()

	requests := dispatcher.NewRequestHandler(intake, notify, dedup.New(10*time.Minute, 20000))
	consumer := mqttbus.NewConsumer(client, 1, requests.Handle, cfg.CmdSubTopic)
	go func() {
		if err := consumer.ConsumeMessage(ctx); err != nil {
			log.Fatalf("dispatcher: subscribe error on %s: %v", cfg.CmdSubTopic, err)
		}
	}()

	// === HTTP ===
	waitTimeout := ms(cfg.WaitTimeoutMs)
	mux := http.NewServeMux()
	dispatcher.NewAPI(intake, waitTimeout).Register(mux)
	mux.Handle("/healthz", dispatcher.NewHealthHandler(client, writer, svc))
	mux.Handle("/readyz", dispatcher.NewReadyHandler(client, writer, 2*time.Second))
	mux.Handle("/metrics", promhttp.Handler())

	hs := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("dispatcher: HTTP listening on :%d", cfg.HTTPPort)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("dispatcher: http server error: %v", err)
		}
	}()

	// === gRPC ===
	lis, err := net.Listen("tcp", ":"+strconv.Itoa(cfg.GRPCPort))
	if err != nil {
		log.Fatalf("dispatcher: grpc listen: %v", err)
	}
	gs := grpc.NewServer()
	dispatcher.RegisterDispatcherServer(gs, dispatcher.NewGrpcHandler(intake, waitTimeout))
	go func() {
		log.Printf("dispatcher: gRPC listening on :%d", cfg.GRPCPort)
		if err := gs.Serve(lis); err != nil {
			log.Fatalf("dispatcher: grpc serve: %v", err)
		}
	}()

	// === Wait for signal ===
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Printf("dispatcher: shutting down...")

	shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shCancel()
	_ = hs.Shutdown(shCtx)
	gs.GracefulStop()
}
