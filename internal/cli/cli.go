package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/gadzhilaev/smile-ai-tg/internal/i18n"
	debuglog "github.com/gadzhilaev/smile-ai-tg/internal/log"
)

// Cli runs the command line with os.Args.
func Cli(version string) error {
	return NewRootCmd(version).Execute()
}

func NewRootCmd(version string) *cobra.Command {
	var (
		configFile string
		v          *viper.Viper
	)
	cmd := &cobra.Command{
		Use:          "smile",
		Short:        "Support relay between the Smile app, an AI assistant and a Telegram group",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) (err error) {
			if v, err = newViper(configFile); err != nil {
				return err
			}
			if err = v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			_, err = i18n.Init(v.GetString("support.locale"))
			return err
		},
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.config/smile/config.yaml)")

	config := func() (*Config, error) { return loadConfig(v) }
	cmd.AddCommand(newServeCmd(config))
	cmd.AddCommand(newGroupIDCmd(config))
	cmd.AddCommand(newKeywordsCmd(config))
	cmd.AddCommand(newVersionCmd(version))
	return cmd
}

func newServeCmd(config func() (*Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the Telegram update poller",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config()
			if err != nil {
				return err
			}
			if err = configureLogging(cfg.Logging); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	// flag names match viper keys so BindPFlags overrides the config
	cmd.Flags().String("server.host", "", "listen host")
	cmd.Flags().Int("server.port", 0, "listen port")
	cmd.Flags().Int("logging.level", 0, "debug level 0-4")
	cmd.Flags().String("ai.vendor", "", "responder vendor (openrouter, anthropic, gemini, ollama, dryrun)")
	return cmd
}

func serve(ctx context.Context, cfg *Config) error {
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.store.Close(); err != nil {
			debuglog.Log("close database: %v\n", err)
		}
	}()

	if me, err := a.telegram.Me(ctx); err != nil {
		debuglog.Warn("telegram getMe failed: %v\n", err)
	} else {
		debuglog.Log("relaying through @%s to group %s\n", me.Username, cfg.Telegram.GroupChatID)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.server.Run(gctx) })
	g.Go(func() error { return a.poller.Run(gctx) })
	return g.Wait()
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
