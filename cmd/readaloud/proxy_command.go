package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/glabrego/readaloud-cli/internal/speechproxy"
)

func newProxyCommand(ctx *commandContext) *cobra.Command {
	proxyCmd := &cobra.Command{
		Use:   "proxy",
		Short: "Speech proxy that keeps the provider API key off the client",
	}
	proxyCmd.AddCommand(newProxyServeCommand(ctx))
	return proxyCmd
}

func newProxyServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /api/get-speech and /api/get-voices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, closer, err := ctx.newLogger(cmd)
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer.Close()
			}

			proxyCfg := cfg.Proxy
			if bind != "" {
				proxyCfg.Bind = bind
			}
			if proxyCfg.APIKey == "" {
				logger.Warn("speech API key is not set; requests will fail until SPEECHIFY_API_KEY is provided")
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return speechproxy.New(proxyCfg, speechproxy.WithLogger(logger)).Run(runCtx)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides proxy.bind)")
	return cmd
}
