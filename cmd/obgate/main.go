package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/obgate-labs/obgate/internal/cliconfig"
	"github.com/obgate-labs/obgate/internal/domain"
	"github.com/obgate-labs/obgate/pkg/bridge"
	logpkg "github.com/obgate-labs/obgate/pkg/log"
)

const helpDescription = `
Bridge a OneBot-style QQ gateway to an orchestration core.

Highlights:
  - Accepts one gateway WebSocket at a time; newer connections supersede.
  - Queues event frames for strictly ordered dispatch, survives restarts.
  - Correlates action responses by token with a bounded timeout.
  - Drains queued work before shutting down, bounded at 30 seconds.
  - Configure via file, environment (OBGATE_*), or flags.
`

var exampleUsage = strings.TrimSpace(`
  obgate --port 8095 --core-host 127.0.0.1 --core-port 8000
  obgate --config $HOME/.obgate/config.toml
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Logger().Level(lvl)
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := newLogger(cfg.LogLevel)

	root := &cobra.Command{
		Use:     "obgate",
		Short:   "Bridge a OneBot-style QQ gateway to an orchestration core",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.obgate/config.toml),
			// then environment, then flag overrides.
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			watchPath := ""
			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
				watchPath = cfgFile
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			log = newLogger(cfg.LogLevel)

			// Log configuration (masking the token and API key)
			logCfg := cfg
			if len(logCfg.Token) > 0 {
				logCfg.Token = "*****"
			}
			if len(logCfg.DetectionAPIKey) > 0 {
				logCfg.DetectionAPIKey = "*****"
			}
			log.Info().Interface("config", logCfg).Msg("configuration")

			libCfg := bridge.Config{
				Host:            cfg.Host,
				Port:            cfg.Port,
				Token:           cfg.Token,
				CoreHost:        cfg.CoreHost,
				CorePort:        cfg.CorePort,
				Platform:        cfg.Platform,
				ResponseTimeout: cfg.ResponseTimeout,
				GroupListType:   cfg.GroupListType,
				GroupList:       cfg.GroupList,
				Detection: bridge.DetectionConfig{
					Enabled:      cfg.DetectionEnabled,
					APIURL:       cfg.DetectionAPIURL,
					APIKey:       cfg.DetectionAPIKey,
					Model:        cfg.DetectionModel,
					ReportGroups: cfg.ReportGroups,
				},
				Management: bridge.ManagementConfig{
					Enabled: cfg.ManagementEnabled,
					Host:    cfg.ManagementHost,
					Port:    cfg.ManagementPort,
				},
				ConfigPath: watchPath,
			}

			b, err := bridge.New(libCfg,
				bridge.WithLogger(logpkg.NewZerologAdapterWithLogger(log)),
			)
			if err != nil {
				return fmt.Errorf("create bridge: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			if err := b.Start(ctx); err != nil {
				if errors.Is(err, domain.ErrBind) {
					log.Error().Err(err).
						Str("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)).
						Msg("cannot bind the gateway listen address; " +
							"is another obgate instance running, or the port held by another process?")
				}
				return fmt.Errorf("start bridge: %w", err)
			}

			doneCh := make(chan struct{})
			go func() {
				ticker := time.NewTicker(100 * time.Millisecond)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						status := b.Status()
						if status == bridge.StateStopped || status == bridge.StateCrashed {
							close(doneCh)
							return
						}
					}
				}
			}()

			select {
			case <-sigCh:
				log.Info().Msg("received signal, draining...")
			case <-doneCh:
				if b.Status() == bridge.StateCrashed {
					log.Error().Msg("bridge crashed")
				}
			}

			if err := b.Stop(); err != nil && !errors.Is(err, domain.ErrNotRunning) {
				return fmt.Errorf("stop bridge: %w", err)
			}
			return nil
		},
	}

	// Flags
	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.obgate/config.toml)")
	root.Flags().StringVar(&cfg.Host, "host", cfg.Host, "gateway listen host")
	root.Flags().IntVar(&cfg.Port, "port", cfg.Port, "gateway listen port")
	root.Flags().StringVar(&cfg.Token, "token", cfg.Token, "bearer token required from the gateway (empty disables auth)")

	root.Flags().StringVar(&cfg.CoreHost, "core-host", cfg.CoreHost, "orchestration core host")
	root.Flags().IntVar(&cfg.CorePort, "core-port", cfg.CorePort, "orchestration core port")
	root.Flags().StringVar(&cfg.Platform, "platform", cfg.Platform, "platform tag stamped on forwarded payloads")

	root.Flags().DurationVar(&cfg.ResponseTimeout, "response-timeout", cfg.ResponseTimeout, "timeout for correlated action responses")
	root.Flags().StringVar(&cfg.GroupListType, "group-list-type", cfg.GroupListType, "group filter mode (whitelist or blacklist)")

	root.Flags().BoolVar(&cfg.DetectionEnabled, "detection", cfg.DetectionEnabled, "enable the outbound content detection gate")
	root.Flags().StringVar(&cfg.DetectionAPIURL, "detection-api-url", cfg.DetectionAPIURL, "content detection API URL")
	root.Flags().StringVar(&cfg.DetectionAPIKey, "detection-api-key", cfg.DetectionAPIKey, "content detection API key")
	root.Flags().StringVar(&cfg.DetectionModel, "detection-model", cfg.DetectionModel, "content detection model name")

	root.Flags().BoolVar(&cfg.ManagementEnabled, "management", cfg.ManagementEnabled, "enable the management HTTP endpoint")
	root.Flags().StringVar(&cfg.ManagementHost, "management-host", cfg.ManagementHost, "management endpoint host")
	root.Flags().IntVar(&cfg.ManagementPort, "management-port", cfg.ManagementPort, "management endpoint port")

	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (trace, debug, info, warn, error)")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("obgate")
		os.Exit(1)
	}
}
