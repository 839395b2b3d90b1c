package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/LeonardoBeccarini/telldus_queue/internal/services/dispatcher"
	"github.com/LeonardoBeccarini/telldus_queue/internal/transport"
	"github.com/LeonardoBeccarini/telldus_queue/pkg/mqttbus"
	"github.com/LeonardoBeccarini/telldus_queue/pkg/txqueue"
)

type Config struct {
	MQTT    mqttbus.Config          `yaml:"mqtt"`
	Breaker transport.BreakerConfig `yaml:"breaker"`

	TxMaxRepeat           int `yaml:"tx_max_repeat"`
	TxIntervalMs          int `yaml:"tx_interval_ms"`
	TxMaxResendTTLMs      int `yaml:"tx_max_resend_ttl_ms"`
	TxSendTimeoutMs       int `yaml:"tx_send_timeout_ms"`
	RxDuplicatesTimeoutMs int `yaml:"rx_duplicates_timeout_ms"`

	CmdSubTopic string `yaml:"cmd_sub_topic"`

	InfluxURL    string `yaml:"influx_url"` // vuoto = Influx disabilitato
	InfluxToken  string `yaml:"influx_token"`
	InfluxOrg    string `yaml:"influx_org"`
	InfluxBucket string `yaml:"influx_bucket"`

	HTTPPort      int `yaml:"http_port"`
	GRPCPort      int `yaml:"grpc_port"`
	WaitTimeoutMs int `yaml:"wait_timeout_ms"`
}

func defaultConfig() Config {
	return Config{
		MQTT: mqttbus.Config{
			Host:     "localhost",
			Port:     1883,
			User:     "guest",
			Password: "guest",
			ClientID: "telldus-dispatcher",
		},
		Breaker: transport.BreakerConfig{Fails: 5, OpenMs: 10000, IntervalMs: 60000},

		TxMaxRepeat:           txqueue.DefaultMaxRepeat,
		TxIntervalMs:          int(txqueue.DefaultInterval.Milliseconds()),
		TxMaxResendTTLMs:      int(txqueue.DefaultMaxResendTTL.Milliseconds()),
		TxSendTimeoutMs:       int(txqueue.DefaultSendTimeout.Milliseconds()),
		RxDuplicatesTimeoutMs: 1000,

		CmdSubTopic: "telldus/request/#",

		InfluxOrg:    "telldus",
		InfluxBucket: "telldus",

		HTTPPort:      8080,
		GRPCPort:      50051,
		WaitTimeoutMs: 5000,
	}
}

func env(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// loadConfig applies defaults, then the optional DISPATCHER_CONFIG yaml file,
// then environment variables.
func loadConfig() (Config, error) {
	cfg := defaultConfig()

	if path := env("DISPATCHER_CONFIG", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.MQTT.Host = env("RABBITMQ_HOST", cfg.MQTT.Host)
	cfg.MQTT.Port = envInt("RABBITMQ_PORT", cfg.MQTT.Port)
	cfg.MQTT.User = env("RABBITMQ_USER", cfg.MQTT.User)
	cfg.MQTT.Password = env("RABBITMQ_PASSWORD", cfg.MQTT.Password)
	cfg.MQTT.ClientID = env("RABBITMQ_CLIENTID", cfg.MQTT.ClientID)

	cfg.Breaker.Fails = envInt("CB_FAILS", cfg.Breaker.Fails)
	cfg.Breaker.OpenMs = envInt("CB_OPEN_MS", cfg.Breaker.OpenMs)
	cfg.Breaker.IntervalMs = envInt("CB_INTERVAL_MS", cfg.Breaker.IntervalMs)

	cfg.TxMaxRepeat = envInt("TX_MAX_REPEAT", cfg.TxMaxRepeat)
	cfg.TxIntervalMs = envInt("TX_INTERVAL_MS", cfg.TxIntervalMs)
	cfg.TxMaxResendTTLMs = envInt("TX_MAX_RESEND_TTL_MS", cfg.TxMaxResendTTLMs)
	cfg.TxSendTimeoutMs = envInt("TX_SEND_TIMEOUT_MS", cfg.TxSendTimeoutMs)
	cfg.RxDuplicatesTimeoutMs = envInt("RX_DUPLICATES_TIMEOUT_MS", cfg.RxDuplicatesTimeoutMs)

	cfg.CmdSubTopic = env("CMD_SUB_TOPIC", cfg.CmdSubTopic)

	cfg.InfluxURL = env("INFLUX_URL", cfg.InfluxURL)
	cfg.InfluxToken = env("INFLUX_TOKEN", cfg.InfluxToken)
	cfg.InfluxOrg = env("INFLUX_ORG", cfg.InfluxOrg)
	cfg.InfluxBucket = env("INFLUX_BUCKET", cfg.InfluxBucket)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.WaitTimeoutMs = envInt("WAIT_TIMEOUT_MS", cfg.WaitTimeoutMs)

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	if c.TxMaxRepeat < 0 {
		errs = append(errs, errors.New("TX_MAX_REPEAT must be >= 0"))
	}
	for name, v := range map[string]int{
		"TX_INTERVAL_MS":           c.TxIntervalMs,
		"TX_MAX_RESEND_TTL_MS":     c.TxMaxResendTTLMs,
		"TX_SEND_TIMEOUT_MS":       c.TxSendTimeoutMs,
		"RX_DUPLICATES_TIMEOUT_MS": c.RxDuplicatesTimeoutMs,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0", name))
		}
	}
	if strings.TrimSpace(c.CmdSubTopic) == "" {
		errs = append(errs, errors.New("CMD_SUB_TOPIC must not be empty"))
	}
	return errors.Join(errs...)
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (c Config) Core() dispatcher.Config {
	return dispatcher.Config{
		TX: txqueue.Config{
			MaxRepeat:    c.TxMaxRepeat,
			Interval:     ms(c.TxIntervalMs),
			MaxResendTTL: ms(c.TxMaxResendTTLMs),
			SendTimeout:  ms(c.TxSendTimeoutMs),
		},
		RxDuplicatesTimeout: ms(c.RxDuplicatesTimeoutMs),
	}
}
