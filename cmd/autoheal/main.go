package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cuemby/autoheal/pkg/api"
	"github.com/cuemby/autoheal/pkg/config"
	"github.com/cuemby/autoheal/pkg/health"
	"github.com/cuemby/autoheal/pkg/history"
	"github.com/cuemby/autoheal/pkg/log"
	"github.com/cuemby/autoheal/pkg/metrics"
	"github.com/cuemby/autoheal/pkg/notify"
	"github.com/cuemby/autoheal/pkg/policy"
	"github.com/cuemby/autoheal/pkg/reconciler"
	"github.com/cuemby/autoheal/pkg/remediate"
	"github.com/cuemby/autoheal/pkg/runtime"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "autoheal",
		Short: "Autoheal - restart unhealthy Docker containers",
		Long: `Autoheal watches the local (or a remote) Docker daemon for containers
whose health check reports them unhealthy and restarts them.

Containers are selected with a label filter (or "all"), and each container
can override the stop timeout and opt in or out of monitoring and restarts
with autoheal.* labels. Outcomes can be forwarded to a webhook or an apprise
relay, passed to a post-action script and recorded to a history file.

Every flag can also be set with an AUTOHEAL_ environment variable, e.g.
--stop-timeout is AUTOHEAL_STOP_TIMEOUT.`,
		Version:      Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(bindConfig(cmd))
			if err != nil {
				return err
			}
			return runDaemon(cmd.Context(), cfg)
		},
	}

	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Autoheal version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	addFlags(rootCmd)
	rootCmd.AddCommand(newHistoryCmd())
	return rootCmd
}

func addFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("connection-type", "c", string(config.DefaultConnectionType), "Runtime connection: local, socket, http or ssl")
	f.StringP("container-label", "l", config.DefaultContainerLabel, `Label that selects monitored containers, "all" for every container`)
	f.IntP("stop-timeout", "s", config.DefaultStopTimeout, "Default seconds to wait for a container to stop before it is killed")
	f.IntP("interval", "i", config.DefaultInterval, "Seconds between reconciliation cycles")
	f.IntP("start-delay", "d", 0, "Seconds to wait before the first cycle")
	f.StringP("tcp-host", "n", config.DefaultTCPHost, "Docker host for the http and ssl connection types")
	f.IntP("tcp-port", "p", 0, "Docker port (default 2375, 2376 for ssl)")
	f.IntP("tcp-timeout", "t", config.DefaultTCPTimeout, "Seconds before a remote Docker request times out")
	f.StringP("key-path", "k", config.DefaultPEMPath, "Directory holding key.pem, cert.pem and ca.pem for ssl")
	f.StringP("apprise-url", "a", "", "Apprise endpoint to notify")
	f.StringP("webhook-url", "w", "", "Webhook endpoint to notify")
	f.StringP("webhook-key", "j", "", "JSON key of the webhook message")
	f.StringP("post-action", "P", "", "Script to run after every restart attempt")
	f.Bool("log-all", false, "Log unhealthy containers even when they are not monitored or restart is disabled")
	f.BoolP("monitor-all", "m", false, "Monitor every selected container unless it opts out by label")
	f.String("listen-addr", "", "Address for the /health, /ready and /metrics endpoint (disabled when empty)")

	pf := cmd.PersistentFlags()
	pf.Bool("history", false, "Record remediations to the history store")
	pf.String("history-dir", config.DefaultHistoryDir, "Directory of the history store")
	pf.String("history-backend", string(config.HistoryFile), "History store: file or bolt")
	pf.String("log-level", string(log.InfoLevel), "Log level: debug, info, warn or error")
	pf.Bool("log-json", false, "Output logs in JSON format")
}

// bindConfig binds the flags of cmd (and its root's persistent flags) to a
// viper instance that also reads AUTOHEAL_* environment variables
func bindConfig(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("AUTOHEAL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	_ = v.BindPFlags(cmd.Flags())
	_ = v.BindPFlags(cmd.Root().PersistentFlags())
	_ = v.BindEnv("key-path", "AUTOHEAL_PEM_PATH")
	return v
}

// loadConfig builds and validates the daemon configuration
func loadConfig(v *viper.Viper) (*config.Config, error) {
	level, err := log.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return nil, err
	}

	cfg := &config.Config{
		ConnectionType: config.ConnectionType(strings.ToLower(v.GetString("connection-type"))),
		TCPHost:        v.GetString("tcp-host"),
		TCPPort:        v.GetInt("tcp-port"),
		TCPTimeout:     time.Duration(v.GetInt("tcp-timeout")) * time.Second,
		PEMPath:        v.GetString("key-path"),
		ContainerLabel: v.GetString("container-label"),
		Interval:       time.Duration(v.GetInt("interval")) * time.Second,
		StartDelay:     time.Duration(v.GetInt("start-delay")) * time.Second,
		StopTimeout:    v.GetInt("stop-timeout"),
		MonitorAll:     v.GetBool("monitor-all"),
		LogAll:         v.GetBool("log-all"),
		AppriseURL:     v.GetString("apprise-url"),
		WebhookURL:     v.GetString("webhook-url"),
		WebhookKey:     v.GetString("webhook-key"),
		PostAction:     v.GetString("post-action"),
		History:        v.GetBool("history"),
		HistoryDir:     v.GetString("history-dir"),
		HistoryBackend: config.HistoryBackend(strings.ToLower(v.GetString("history-backend"))),
		ListenAddr:     v.GetString("listen-addr"),
		LogLevel:       level,
		LogJSON:        v.GetBool("log-json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runDaemon(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}

	log.Init(log.Config{
		Level:      cfg.LogLevel,
		JSONOutput: cfg.LogJSON,
	})
	metrics.SetVersion(Version)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli, err := runtime.Connect(cfg)
	if err != nil {
		return err
	}
	defer cli.Close()

	hostname, err := os.Hostname()
	if err != nil {
		log.Logger.Warn().Err(err).Msg("Failed to resolve hostname")
		hostname = "unknown"
	}

	deps := reconciler.Deps{
		Runtime:    cli,
		Inspector:  health.NewInspector(cli),
		Remediator: remediate.New(cli, cfg.PostAction),
	}

	notifier := notify.New(notify.Config{
		WebhookURL: cfg.WebhookURL,
		WebhookKey: cfg.WebhookKey,
		AppriseURL: cfg.AppriseURL,
		Hostname:   hostname,
	})
	if notifier.Enabled() {
		deps.Notifier = notifier
	}

	if cfg.History {
		store, err := history.Open(cfg.HistoryBackend, cfg.HistoryDir)
		if err != nil {
			log.Logger.Warn().Err(err).Str("dir", cfg.HistoryDir).Msg("History disabled: store could not be opened")
			metrics.UpdateComponent(metrics.ComponentHistory, false, err.Error())
		} else {
			recorder := history.NewRecorder(store)
			defer recorder.Close()
			deps.Recorder = recorder
			metrics.UpdateComponent(metrics.ComponentHistory, true, "")
		}
	}

	if cfg.ListenAddr != "" {
		hs := api.NewHealthServer()
		go func() {
			if err := hs.Start(cfg.ListenAddr); err != nil {
				log.Logger.Error().Err(err).Str("addr", cfg.ListenAddr).Msg("Health server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = hs.Shutdown(shutdownCtx)
		}()
	}

	logSettings(cfg)

	r := reconciler.New(reconciler.Config{
		Interval:       cfg.Interval,
		StartDelay:     cfg.StartDelay,
		ContainerLabel: cfg.ContainerLabel,
		Defaults: policy.Defaults{
			StopTimeout: cfg.StopTimeout,
			MonitorAll:  cfg.MonitorAll,
			LogAll:      cfg.LogAll,
		},
	}, deps)

	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("reconciliation stopped: %w", err)
	}
	return nil
}

func logSettings(cfg *config.Config) {
	log.Logger.Info().
		Str("version", Version).
		Str("label", cfg.ContainerLabel).
		Int("stop_timeout", cfg.StopTimeout).
		Dur("interval", cfg.Interval).
		Bool("monitor_all", cfg.MonitorAll).
		Bool("log_all", cfg.LogAll).
		Bool("history", cfg.History).
		Bool("post_action", cfg.PostAction != "").
		Bool("webhook", cfg.WebhookURL != "" && cfg.WebhookKey != "").
		Bool("apprise", cfg.AppriseURL != "").
		Msg("Autoheal started")
}
