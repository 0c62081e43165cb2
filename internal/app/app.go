// Package app assembles the heating controller and its surrounding services from the application configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/clambin/go-common/slackbot"
	"github.com/clambin/thermostat-control/internal/api"
	"github.com/clambin/thermostat-control/internal/bot"
	"github.com/clambin/thermostat-control/internal/collector"
	"github.com/clambin/thermostat-control/internal/configuration"
	"github.com/clambin/thermostat-control/internal/controller"
	"github.com/clambin/thermostat-control/internal/controller/notifier"
	"github.com/clambin/thermostat-control/internal/devices"
	"github.com/clambin/thermostat-control/internal/health"
	"github.com/clambin/thermostat-control/internal/presence"
	"github.com/clambin/thermostat-control/internal/reload"
	"github.com/clambin/thermostat-control/internal/store"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slack-go/slack"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

type Task interface {
	Run(ctx context.Context) error
}

// App runs the controller and its services until its context is canceled, or one of them fails.
type App struct {
	Controller *controller.Controller
	tasks      []Task
	closers    []io.Closer
	logger     *slog.Logger
}

// New connects to the MQTT broker (and Tadoº, if configured), opens the state store and creates all tasks.
func New(cfg *viper.Viper, version string, registry prometheus.Registerer, logger *slog.Logger) (*App, error) {
	heating, err := LoadHeating(SchedulePath(cfg), logger.With("component", "configuration"))
	if err != nil {
		return nil, err
	}

	client := mqtt.NewClient(mqttOptions(cfg))
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt: %w", token.Error())
	}

	d := dependencies{mqtt: client}
	if username := cfg.GetString("tado.username"); username != "" {
		metrics := devices.NewTadoMetrics(prometheus.Labels{"application": "thermostat-control"})
		if registry != nil {
			registry.MustRegister(metrics)
		}
		if d.tado, err = devices.NewTadoClient(username, cfg.GetString("tado.password"), cfg.GetString("tado.clientSecret"), metrics); err != nil {
			client.Disconnect(250)
			return nil, err
		}
	}

	var closers []io.Closer
	if path := cfg.GetString("state.path"); path != "" {
		s, err := store.New(path)
		if err != nil {
			client.Disconnect(250)
			return nil, fmt.Errorf("state: %w", err)
		}
		d.store = s
		closers = append(closers, s)
	}

	a := makeApp(cfg, heating, d, version, registry, logger)
	a.closers = append(a.closers, closers...)
	a.closers = append(a.closers, mqttCloser{client: client})
	return a, nil
}

type dependencies struct {
	mqtt  mqttClient
	tado  devices.TadoSetter
	store controller.StateStore
}

type mqttClient interface {
	devices.MQTTPublisher
	presence.Subscriber
}

func makeApp(cfg *viper.Viper, heating configuration.Heating, d dependencies, version string, registry prometheus.Registerer, l *slog.Logger) *App {
	a := App{logger: l.With("component", "app")}

	// Presence
	sensor := presence.New(cfg.GetString("mqtt.presenceTopic"), l.With("component", "presence"))
	a.tasks = append(a.tasks, runFunc(func(ctx context.Context) error { return sensor.Run(ctx, d.mqtt) }))

	// Devices
	router := devices.Router{
		Dispatchers: map[string]devices.Dispatcher{
			"mqtt": devices.MQTTDispatcher{Client: d.mqtt, Topic: cfg.GetString("mqtt.deviceTopic"), QoS: 1},
		},
		Default: "mqtt",
		Timeout: 10 * time.Second,
	}
	if d.tado != nil {
		router.Dispatchers["tado"] = devices.TadoDispatcher{Client: d.tado, Fahrenheit: heating.Unit == configuration.Fahrenheit}
	}

	// Notifiers
	notifiers := notifier.Notifiers{notifier.SLogNotifier{Logger: l.With("component", "notifier")}}
	if token := cfg.GetString("slack.token"); token != "" {
		notifiers = append(notifiers, &notifier.SlackNotifier{
			Logger:      l.With("component", "slack"),
			SlackSender: slack.New(token),
			Channel:     cfg.GetString("slack.channel"),
		})
	}
	if brokers := cfg.GetStringSlice("kafka.brokers"); len(brokers) > 0 {
		w := notifier.NewKafkaWriter(brokers, cfg.GetString("kafka.topic"))
		notifiers = append(notifiers, &notifier.KafkaNotifier{Writer: w, Logger: l.With("component", "kafka")})
		a.closers = append(a.closers, w)
	}

	// Controller
	coll := collector.New()
	options := []controller.Option{
		controller.WithInitDelay(cfg.GetDuration("controller.initDelay")),
		controller.WithNotifier(notifiers),
		controller.WithMetrics(coll),
	}
	if d.store != nil {
		options = append(options, controller.WithStore(d.store))
	}
	a.Controller = controller.New(heating, router, sensor, l.With("component", "controller"), options...)
	a.tasks = append(a.tasks, a.Controller)

	// Collector
	coll.Controller = a.Controller
	if registry != nil {
		registry.MustRegister(coll)
	}

	// Prometheus Server
	m := http.NewServeMux()
	m.Handle("/metrics", promhttp.Handler())
	a.tasks = append(a.tasks, &httpServer{name: "prometheus", server: &http.Server{Addr: cfg.GetString("exporter.addr"), Handler: m}, logger: l.With("component", "prometheus")})

	// API & Health Endpoint
	h := health.New(a.Controller, l.With("component", "health"))
	a.tasks = append(a.tasks, &httpServer{name: "api", server: &http.Server{Addr: cfg.GetString("api.addr"), Handler: api.New(a.Controller, h, l.With("component", "api"))}, logger: l.With("component", "api")})

	// Slackbot
	if token := cfg.GetString("slackbot.token"); token != "" {
		b := slackbot.New(
			token,
			slackbot.WithName("thermostat "+version),
			slackbot.WithLogger(l.With(slog.String("component", "slackbot"))),
		)
		a.tasks = append(a.tasks, bot.New(b, a.Controller, l.With(slog.String("component", "bot"))))
	}

	// Configuration watcher
	if cfg.GetBool("reload.enabled") {
		a.tasks = append(a.tasks, reload.Watcher{Path: SchedulePath(cfg), Logger: l.With("component", "reload")})
	}

	return &a
}

// Run starts all tasks and waits for them to stop. Once one task fails, the others are stopped too.
// Run returns reload.ErrChanged if the heating configuration changed.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting", "tasks", len(a.tasks))
	defer a.close()

	g, ctx := errgroup.WithContext(ctx)
	for _, task := range a.tasks {
		g.Go(func() error { return task.Run(ctx) })
	}
	err := g.Wait()
	a.logger.Info("stopped", "err", err)
	return err
}

func (a *App) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("failed to close", "err", err)
		}
	}
}

// SchedulePath returns the location of the heating configuration. A relative path is taken relative to the
// application's configuration file.
func SchedulePath(cfg *viper.Viper) string {
	path := cfg.GetString("schedule")
	if path == "" {
		path = "heating.yaml"
	}
	if !filepath.IsAbs(path) && cfg.ConfigFileUsed() != "" {
		path = filepath.Join(filepath.Dir(cfg.ConfigFileUsed()), path)
	}
	return path
}

// LoadHeating reads and validates the heating configuration file.
func LoadHeating(path string, logger *slog.Logger) (configuration.Heating, error) {
	f, err := os.Open(path)
	if err != nil {
		return configuration.Heating{}, fmt.Errorf("heating configuration: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	h, err := configuration.Load(f, logger)
	if err != nil {
		return configuration.Heating{}, fmt.Errorf("heating configuration %s: %w", path, err)
	}
	return h, nil
}

func mqttOptions(cfg *viper.Viper) *mqtt.ClientOptions {
	return mqtt.NewClientOptions().
		AddBroker(cfg.GetString("mqtt.broker")).
		SetClientID(cfg.GetString("mqtt.clientID")).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
}

type mqttCloser struct {
	client mqtt.Client
}

func (m mqttCloser) Close() error {
	m.client.Disconnect(250)
	return nil
}

type runFunc func(ctx context.Context) error

func (f runFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type httpServer struct {
	name   string
	server *http.Server
	logger *slog.Logger
}

func (s *httpServer) Run(ctx context.Context) error {
	s.logger.Debug("starting http server", "name", s.name, "addr", s.server.Addr)
	defer s.logger.Debug("stopped http server", "name", s.name)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s: %w", s.name, err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s: shutdown: %w", s.name, err)
	}
	return <-errCh
}
