// Command climate-sensor reads an AM2301 humidity/temperature sensor and
// publishes readings to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/climate-sensor/internal/am2301"
	"github.com/sweeney/climate-sensor/internal/config"
	"github.com/sweeney/climate-sensor/internal/gpio"
	"github.com/sweeney/climate-sensor/internal/logic"
	"github.com/sweeney/climate-sensor/internal/mqtt"
	"github.com/sweeney/climate-sensor/internal/poller"
	"github.com/sweeney/climate-sensor/internal/status"
	"github.com/sweeney/climate-sensor/internal/web"
)

const appName = "climate-sensor"

func main() {
	def := config.Default()

	configPath := flag.String("config", "", "TOML config file (optional)")
	driver := flag.String("driver", def.Driver, "GPIO backend: cdev or periph")
	chip := flag.String("chip", def.Chip, "GPIO chip for the cdev backend")
	pin := flag.Int("pin", def.Pin, "BCM pin number of the sensor data line")
	poll := flag.Duration("poll", def.Poll, "Acquisition interval")
	minInterval := flag.Duration("min-interval", def.MinInterval, "Minimum spacing between acquisitions")
	timeout := flag.Duration("timeout", def.Timeout, "Upper bound on one acquisition")
	heartbeat := flag.Duration("heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	lostAfter := flag.Int("lost-after", def.LostAfter, "Consecutive failures before the sensor is reported lost (0 to disable)")
	broker := flag.String("broker", def.Broker, "MQTT broker address")
	httpAddr := flag.String("http", def.HTTPAddr, "HTTP status address (empty to disable)")
	wsBroker := flag.String("ws-broker", def.WSBroker, `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)
	logLevel := flag.String("log-level", def.LogLevel, "Log level: debug, info, warn, error")
	printReading := flag.Bool("print-reading", false, "Take one reading, print it and exit")

	flag.Parse()

	cfg := def
	if *configPath != "" {
		loaded, err := config.Load(*configPath, cfg)
		if err != nil {
			initLogger(def.LogLevel)
			log.Fatal().Err(err).Msg("config")
		}
		cfg = loaded
	}

	// Flags given on the command line win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "driver":
			cfg.Driver = *driver
		case "chip":
			cfg.Chip = *chip
		case "pin":
			cfg.Pin = *pin
		case "poll":
			cfg.Poll = *poll
		case "min-interval":
			cfg.MinInterval = *minInterval
		case "timeout":
			cfg.Timeout = *timeout
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		case "lost-after":
			cfg.LostAfter = *lostAfter
		case "broker":
			cfg.Broker = *broker
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "ws-broker":
			cfg.WSBroker = *wsBroker
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	initLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	cfg.WSBroker = resolveWSBroker(cfg.WSBroker, cfg.Broker)

	if err := run(cfg, *printReading); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

// initLogger installs the global console logger. Unknown levels fall back
// to info.
func initLogger(level string) {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Str("app", appName).Logger()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func run(cfg config.Config, printReading bool) error {
	line, err := gpio.Open(cfg.Driver, cfg.Chip, cfg.Pin)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer line.Close()

	sensor, err := am2301.New(cfg.Timing)
	if err != nil {
		return fmt.Errorf("init sensor: %w", err)
	}
	p := poller.New(line, sensor, poller.Config{
		MinInterval: cfg.MinInterval,
		Timeout:     cfg.Timeout,
	})

	if printReading {
		r, err := p.Poll(context.Background())
		if err != nil {
			return fmt.Errorf("read sensor (%s): %w", am2301.Kind(err), err)
		}
		fmt.Println(r)
		return nil
	}

	publisher := mqtt.NewRealPublisher(cfg.Broker)
	defer publisher.Close()

	// Tracker exists before STARTUP so the event carries a full snapshot.
	tracker := status.NewTracker(time.Now(), status.Config{
		Pin:           cfg.Pin,
		Driver:        cfg.Driver,
		PollMs:        cfg.Poll.Milliseconds(),
		MinIntervalMs: cfg.MinInterval.Milliseconds(),
		TimeoutMs:     cfg.Timeout.Milliseconds(),
		HeartbeatMs:   cfg.Heartbeat.Milliseconds(),
		LostAfter:     cfg.LostAfter,
		Broker:        cfg.Broker,
		HTTPPort:      cfg.HTTPAddr,
		WSBroker:      cfg.WSBroker,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Warn().Err(err).Msg("failed to publish startup event")
	} else {
		log.Info().Msg("published startup event")
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http status server listening")
	}

	log.Info().
		Str("driver", cfg.Driver).
		Int("pin", cfg.Pin).
		Dur("poll", cfg.Poll).
		Dur("timeout", cfg.Timeout).
		Str("broker", cfg.Broker).
		Dur("heartbeat", cfg.Heartbeat).
		Msg("started")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctx, p, publisher, publisher, tracker, cfg.LostAfter, cfg.Heartbeat, time.Now, ticker.C, sigCh)
}

// Source produces one acquisition outcome per call. *poller.Poller implements it.
type Source interface {
	Poll(ctx context.Context) (am2301.Reading, error)
}

func runLoop(ctx context.Context, src Source, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, lostAfter int, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	monitor := logic.NewMonitor(lostAfter, startTime)
	var lastFailure am2301.FailureKind

	update := func() {
		if tracker == nil {
			return
		}
		r, at, _ := monitor.LastReading()
		tracker.Update(status.SensorState{
			Ready:               monitor.IsReady(),
			Lost:                monitor.IsLost(),
			Reading:             r,
			ReadingTime:         at,
			ConsecutiveFailures: monitor.ConsecutiveFailures(),
			LastFailure:         lastFailure,
			Counts:              monitor.CountsSnapshot(),
		})
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	for {
		select {
		case s := <-sig:
			log.Info().Str("signal", s.String()).Msg("shutting down")
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				update()
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Warn().Err(err).Msg("failed to publish shutdown event")
			} else {
				log.Info().Msg("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			r, err := src.Poll(ctx)
			if err != nil {
				lastFailure = am2301.Kind(err)
				log.Warn().Err(err).Str("kind", string(lastFailure)).Msg("acquisition failed")
			} else {
				log.Info().Msg(r.String())
			}

			events := monitor.Process(logic.Outcome{Time: t, Reading: r, Err: err})
			for _, event := range events {
				switch event.Type {
				case logic.EventSensorLost:
					log.Error().
						Str("failure", string(event.Failure)).
						Int("consecutive", event.ConsecutiveFailures).
						Msg("sensor lost")
				case logic.EventSensorRecovered:
					log.Info().Msg("sensor recovered")
				}
				if err := publisher.Publish(event); err != nil {
					log.Warn().Err(err).Str("event", string(event.Type)).Msg("publish error")
				}
			}

			if hbData := monitor.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Info().
					Dur("uptime", hbData.Uptime).
					Int("attempts", hbData.Counts.Attempts).
					Int("readings", hbData.Counts.Readings).
					Int("failures", hbData.Counts.Failures.Total()).
					Msg("heartbeat")

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					update()
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Warn().Err(err).Msg("heartbeat publish error")
				}
			}

			update()
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the --ws-broker value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "off" and
// empty disable.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Warn().Err(err).Str("broker", broker).Msg("ws-broker: cannot parse broker address")
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
