// Command simforge drives a SimForge backend from the terminal: generate and
// fork cognition sequences, and browse schemas and prompt templates.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var now = time.Now

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, closeApp := newRootCmd()
	err := root.ExecuteContext(ctx)
	closeApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. The returned func tears down the stores
// and log bridge created for the run; call it after Execute returns.
func newRootCmd() (*cobra.Command, func()) {
	v := viper.New()
	var cfgFile string
	var a *app

	root := &cobra.Command{
		Use:           "simforge",
		Short:         "Generate and explore synthetic cognition sequences",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v, cfgFile)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log.Level)
			if err != nil {
				return fmt.Errorf("log level: %w", err)
			}
			a = newApp(cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
			logger.Debug().Str("api_url", cfg.API.URL).Str("output", cfg.Output).Msg("configured")
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default $HOME/.config/simforge/config.yaml)")
	flags.String("api-url", "", "SimForge API base URL")
	flags.Duration("timeout", 0, "request timeout")
	flags.Int("retries", 0, "retries for transport and 5xx failures")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.StringP("output", "o", "", "output format (text, yaml, json)")

	_ = v.BindPFlag("api.url", flags.Lookup("api-url"))
	_ = v.BindPFlag("api.timeout", flags.Lookup("timeout"))
	_ = v.BindPFlag("api.retries", flags.Lookup("retries"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("output", flags.Lookup("output"))

	appFn := func() *app { return a }
	root.AddCommand(
		newHealthCmd(appFn),
		newGenerateCmd(appFn),
		newForkCmd(appFn),
		newSchemasCmd(appFn),
		newPromptsCmd(appFn),
		newSampleCmd(appFn),
	)
	return root, func() {
		if a != nil {
			a.Close()
		}
	}
}
