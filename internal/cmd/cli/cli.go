package cli

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/clambin/go-common/charmer"
	"github.com/clambin/thermostat-control/internal/app"
	"github.com/clambin/thermostat-control/internal/cmd/config"
	"github.com/clambin/thermostat-control/internal/cmd/eval"
	"github.com/clambin/thermostat-control/internal/controller"
	"github.com/clambin/thermostat-control/internal/devices"
	"github.com/clambin/thermostat-control/internal/presence"
	"github.com/clambin/thermostat-control/internal/reload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFilename string
	RootCmd        = cobra.Command{
		Use:   "thermostat-control",
		Short: "Sets heating setpoints from a schedule",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			charmer.SetJSONLogger(cmd, viper.GetBool("debug"))
			slog.SetDefault(charmer.GetLogger(cmd))
		},
		RunE: run,
	}
)

var args = charmer.Arguments{
	"schedule":             {Default: "heating.yaml", Help: "Heating configuration file"},
	"controller.initDelay": {Default: controller.DefaultInitDelay, Help: "Delay before the first resolution"},
	"api.addr":             {Default: ":8080", Help: "Address of the thermostat API and /health endpoint"},
	"exporter.addr":        {Default: ":9090", Help: "Address of Prometheus exporter"},
	"state.path":           {Default: "", Help: "SQLite file holding the runtime state. default: state is not persisted"},
	"mqtt.broker":          {Default: "tcp://localhost:1883", Help: "MQTT broker"},
	"mqtt.clientID":        {Default: "thermostat-control", Help: "MQTT client ID"},
	"mqtt.deviceTopic":     {Default: devices.DefaultDeviceTopic, Help: "MQTT topic for device setpoints"},
	"mqtt.presenceTopic":   {Default: presence.DefaultTopic, Help: "MQTT topic of the presence sensor"},
	"tado.username":        {Default: "", Help: "Tadoº username"},
	"tado.password":        {Default: "", Help: "Tadoº password"},
	"tado.clientSecret":    {Default: "", Help: "Tadoº client secret"},
	"slack.token":          {Default: "", Help: "Slack token for notifications"},
	"slack.channel":        {Default: "", Help: "Slack channel for notifications. default: all channels the bot is a member of"},
	"slackbot.token":       {Default: "", Help: "Slack token for the chat bot"},
	"kafka.topic":          {Default: "heating-events", Help: "Kafka topic for notifications"},
	"reload.enabled":       {Default: false, Help: "Stop when the heating configuration changes"},
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&configFilename, "config", "", "Configuration file")
	RootCmd.PersistentFlags().Bool("debug", false, "Log debug messages")
	_ = viper.BindPFlag("debug", RootCmd.PersistentFlags().Lookup("debug"))
	_ = charmer.SetPersistentFlags(&RootCmd, viper.GetViper(), args)

	RootCmd.AddCommand(&eval.Cmd, &config.Cmd)
}

func initConfig() {
	if configFilename != "" {
		viper.SetConfigFile(configFilename)
	} else {
		viper.AddConfigPath("/etc/thermostat-control/")
		viper.AddConfigPath("$HOME/.thermostat-control")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	}

	viper.SetDefault("debug", false)
	viper.SetDefault("kafka.brokers", []string{})

	viper.SetEnvPrefix("THERMOSTAT_CONTROL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFilename != "" || !errors.As(err, &notFound) {
			slog.Error("failed to read config file", "err", err)
			os.Exit(1)
		}
		slog.Warn("no config file found. using defaults")
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	version := cmd.Root().Version
	logger := charmer.GetLogger(cmd)
	logger.Info("thermostat-control starting", "version", version)
	defer logger.Info("thermostat-control stopped")

	a, err := app.New(viper.GetViper(), version, prometheus.DefaultRegisterer, logger)
	if err != nil {
		return err
	}
	err = a.Run(ctx)
	if errors.Is(err, reload.ErrChanged) {
		logger.Warn("heating configuration changed. exiting to load the new configuration")
	}
	return err
}
