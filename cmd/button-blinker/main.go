// Command button-blinker classifies push-button presses by duration and
// drives an LED: short presses are counted, a medium press blinks the count
// back, a long press resets.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sweeney/button-blinker/internal/clock"
	"github.com/sweeney/button-blinker/internal/config"
	"github.com/sweeney/button-blinker/internal/diag"
	"github.com/sweeney/button-blinker/internal/gpio"
	"github.com/sweeney/button-blinker/internal/logic"
	"github.com/sweeney/button-blinker/internal/metrics"
	"github.com/sweeney/button-blinker/internal/mqtt"
	"github.com/sweeney/button-blinker/internal/status"
	"github.com/sweeney/button-blinker/internal/web"
)

// options holds the parsed command line.
type options struct {
	configPath string
	envFile    string
	printState bool
	listSerial bool

	broker   string
	httpAddr string
	mode     string

	// set records which flags were given explicitly. Only those override
	// the config file and environment.
	set map[string]bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("button-blinker", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "/etc/button-blinker.yaml", "YAML config file (missing file uses defaults)")
	fs.StringVar(&o.envFile, "env-file", ".env", "dotenv file with BLINKER_* overrides (empty to skip)")
	fs.BoolVar(&o.printState, "print-state", false, "Print the button level and exit")
	fs.BoolVar(&o.listSerial, "list-serial", false, "List serial ports and exit")
	fs.StringVar(&o.broker, "broker", "", "MQTT broker address (empty to disable)")
	fs.StringVar(&o.httpAddr, "http", "", "HTTP status address (empty to disable)")
	fs.StringVar(&o.mode, "mode", "", "Button sampling mode: poll or interrupt")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

// loadConfig layers file, environment and flags, then validates the result.
func loadConfig(o options) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(o.envFile); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if o.set["broker"] {
		cfg.MQTT.Broker = o.broker
	}
	if o.set["http"] {
		cfg.HTTP.Addr = o.httpAddr
	}
	if o.set["mode"] {
		cfg.Button.Mode = o.mode
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	if o.listSerial {
		ports, err := diag.Ports()
		if err != nil {
			log.Fatalf("fatal: list serial ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	cfg, err := loadConfig(o)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, o.printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg *config.Config, printState bool) error {
	bg, cancel := context.WithCancel(context.Background())
	defer cancel()

	counter := clock.NewCounter(0)
	go counter.Run(bg, cfg.Timing.Tick)

	var inbox *logic.Inbox
	var onEdge func()
	if cfg.Button.Mode == config.ModeInterrupt && !printState {
		inbox = logic.NewInbox(0)
		onEdge = func() { inbox.Notify(counter.Now()) }
	}

	button, err := gpio.NewRealButton(cfg.Button.Chip, cfg.Button.Pin, cfg.Button.ActiveLow, onEdge)
	if err != nil {
		return fmt.Errorf("init button: %w", err)
	}
	defer button.Close()

	if printState {
		pressed, err := button.Pressed()
		if err != nil {
			return fmt.Errorf("read button: %w", err)
		}
		fmt.Printf("BUTTON: %s\n", status.ButtonString(pressed))
		return nil
	}

	led, err := gpio.NewRealLED(cfg.LED.Chip, cfg.LED.Pin)
	if err != nil {
		return fmt.Errorf("init led: %w", err)
	}
	defer led.Close()

	controller, err := logic.NewController(cfg.Logic())
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(registry)

	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	if net := networkInfo(cfg.Network.EnvFile); net != nil {
		tracker.SetNetwork(net)
	}

	var wg sync.WaitGroup

	var forwarder *mqtt.Forwarder
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		publisher, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:             cfg.MQTT.Broker,
			ClientID:           cfg.MQTT.ClientID,
			BufferSize:         cfg.MQTT.Buffer,
			OnConnectionChange: tracker.SetMQTTConnected,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		// Closed after the forwarder has drained, see below.
		defer publisher.Close()
		mqttStatus = publisher
		tracker.SetMQTTConnected(publisher.IsConnected())

		forwarder = mqtt.NewForwarder(publisher, cfg.MQTT.Queue, time.Now)
		wg.Add(1)
		go func() {
			defer wg.Done()
			forwarder.Run(bg)
		}()

		snap := tracker.Snapshot()
		forwarder.EnqueueSystem(mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		})
	}

	var consoleOut io.Writer
	if cfg.Serial.Port != "" {
		port, err := diag.OpenSerial(cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			log.Printf("serial console disabled: %v", err)
		} else {
			defer port.Close()
			consoleOut = port
		}
	}
	console := diag.NewConsole(consoleOut, 0)
	wg.Add(1)
	go func() {
		defer wg.Done()
		console.Run(bg)
	}()

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, registry)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer func() {
			ctx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			srv.Shutdown(ctx)
		}()
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: mode=%s poll=%v debounce=%v short=%v long=%v base=%v broker=%q",
		cfg.Button.Mode, cfg.Timing.Poll, cfg.Timing.Debounce, cfg.Timing.Short,
		cfg.Timing.Long, cfg.Timing.BaseInterval, cfg.MQTT.Broker)

	ticker := time.NewTicker(cfg.Timing.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		controller:  controller,
		button:      button,
		led:         led,
		clock:       counter,
		inbox:       inbox,
		forwarder:   forwarder,
		mqttStatus:  mqttStatus,
		tracker:     tracker,
		recorder:    recorder,
		console:     console,
		heartbeat:   cfg.MQTT.Heartbeat,
		networkFile: cfg.Network.EnvFile,
		now:         time.Now,
	}
	err = l.run(ticker.C, sigCh)

	// Let the forwarder publish SHUTDOWN and the console flush before the
	// deferred closes run.
	cancel()
	wg.Wait()
	return err
}

// loop is the single goroutine that owns the controller and the LED.
type loop struct {
	controller *logic.Controller
	button     gpio.Button
	led        gpio.LED
	clock      clock.Source

	inbox      *logic.Inbox    // nil in poll mode
	forwarder  *mqtt.Forwarder // nil when MQTT is disabled
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	recorder   *metrics.Recorder
	console    *diag.Console

	heartbeat   time.Duration // 0 disables
	networkFile string
	now         func() time.Time

	lastHeartbeat time.Time
}

// run reads the clock once per wakeup and hands that time to every
// component, so time never moves backwards inside a cycle.
func (l *loop) run(tick <-chan time.Time, sig <-chan os.Signal) error {
	l.lastHeartbeat = l.now()

	var notes <-chan logic.Notification
	if l.inbox != nil {
		notes = l.inbox.C()
	}

	for {
		select {
		case s := <-sig:
			l.shutdown(s)
			return nil

		case <-notes:
			l.inbox.Drain(func(logic.Notification) {})
			l.sample(l.clock.Now())

		case <-tick:
			now := l.clock.Now()
			switch {
			case l.inbox == nil:
				l.sample(now)
			case l.inbox.Drain(func(logic.Notification) {}) > 0, l.controller.Unsettled(now):
				l.sample(now)
			default:
				l.apply(l.controller.Tick(now), now)
			}
			l.checkHeartbeat(l.now())
		}
	}
}

func (l *loop) sample(now clock.Millis) {
	pressed, err := l.button.Pressed()
	if err != nil {
		log.Printf("button read error: %v", err)
		// Keep the output moving even when the input is unreadable.
		l.apply(l.controller.Tick(now), now)
		return
	}
	l.apply(l.controller.Process(logic.Input{Pressed: pressed, Time: now}), now)
}

func (l *loop) apply(step logic.Step, now clock.Millis) {
	if ev := step.Event; ev != nil {
		if ev.Type == logic.EventPressEnded {
			log.Printf("button: %s after %dms", ev.Type, ev.Duration)
		} else {
			log.Printf("button: %s", ev.Type)
		}
	}

	if r := step.Report; r != nil {
		l.console.Report(*r)
		if l.recorder != nil {
			l.recorder.ObserveReport(*r)
		}
		if l.tracker != nil {
			l.tracker.SetLastReport(*r)
		}
		if l.forwarder != nil {
			l.forwarder.Enqueue(*r)
		}
	}

	if step.OutputChanged {
		if err := l.led.Set(step.Output); err != nil {
			log.Printf("led write error: %v", err)
		}
	}

	l.observe(now)
}

// observe mirrors controller state into metrics and the status tracker.
func (l *loop) observe(now clock.Millis) {
	state := l.controller.State()
	counts := l.controller.Counts()

	if l.recorder != nil {
		var inboxDropped, forwardDropped uint64
		if l.inbox != nil {
			inboxDropped = l.inbox.Dropped()
		}
		if l.forwarder != nil {
			forwardDropped = l.forwarder.Dropped()
		}
		l.recorder.ObserveState(state)
		l.recorder.ObserveTotals(counts, inboxDropped, forwardDropped)
	}

	if l.tracker != nil {
		l.tracker.Update(state, l.controller.Pressed(), counts, now)
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
	}
}

func (l *loop) checkHeartbeat(t time.Time) {
	if l.heartbeat <= 0 || t.Sub(l.lastHeartbeat) < l.heartbeat {
		return
	}
	l.lastHeartbeat = t

	counts := l.controller.Counts()
	log.Printf("heartbeat: short=%d medium=%d long=%d rejected=%d",
		counts.Short, counts.Medium, counts.Long, counts.Rejected)

	if l.tracker != nil {
		if net := networkInfo(l.networkFile); net != nil {
			l.tracker.SetNetwork(net)
		}
	}
	l.systemEvent(t, "HEARTBEAT", "", false)
}

// shutdown stops the blink, drives the LED low and queues SHUTDOWN.
func (l *loop) shutdown(s os.Signal) {
	log.Printf("received %v, shutting down", s)
	now := l.clock.Now()

	l.controller.Halt(now)
	if err := l.led.Set(false); err != nil {
		log.Printf("led write error: %v", err)
	}
	l.observe(now)
	l.console.Println("system shutdown")

	reason := "UNKNOWN"
	switch s {
	case syscall.SIGINT:
		reason = "SIGINT"
	case syscall.SIGTERM:
		reason = "SIGTERM"
	}
	l.systemEvent(l.now(), "SHUTDOWN", reason, true)
}

func (l *loop) systemEvent(t time.Time, event, reason string, retained bool) {
	if l.forwarder == nil {
		return
	}
	ev := mqtt.SystemEvent{
		Timestamp: t,
		Event:     event,
		Reason:    reason,
		Retained:  retained,
	}
	if l.tracker != nil {
		ev.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), event, reason)
	}
	l.forwarder.EnqueueSystem(ev)
}

func statusConfig(cfg *config.Config) status.Config {
	return status.Config{
		Mode:                cfg.Button.Mode,
		PollMs:              cfg.Timing.Poll.Milliseconds(),
		DebounceMs:          cfg.Timing.Debounce.Milliseconds(),
		ShortMs:             cfg.Timing.Short.Milliseconds(),
		LongMs:              cfg.Timing.Long.Milliseconds(),
		FeedbackMs:          cfg.Timing.Feedback.Milliseconds(),
		BaseIntervalMs:      cfg.Timing.BaseInterval.Milliseconds(),
		HeartbeatMs:         cfg.MQTT.Heartbeat.Milliseconds(),
		CountWhileBlinking:  cfg.Policy.CountWhileBlinking,
		MediumWhileBlinking: cfg.Policy.MediumWhileBlinking,
		Broker:              cfg.MQTT.Broker,
		HTTPAddr:            cfg.HTTP.Addr,
	}
}

// networkInfo reads the pi-helper env file. Nil when unavailable.
func networkInfo(path string) *status.NetworkInfo {
	n := config.ReadNetworkInfo(path)
	if n == nil {
		return nil
	}
	return &status.NetworkInfo{
		Type:       n.Type,
		IP:         n.IP,
		Status:     n.Status,
		Gateway:    n.Gateway,
		WifiStatus: n.WifiStatus,
		SSID:       n.SSID,
	}
}
