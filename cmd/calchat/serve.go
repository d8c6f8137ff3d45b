package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

Endpoints:
  POST /chat     {"message", "conversation_history", "user_email"}
  GET  /health   liveness
  GET  /ws       chat over WebSocket, one request per frame
  GET  /metrics  Prometheus metrics

Clients keep the conversation history and send it back with every request.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			c, err := buildContainer(ctx, cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			cfg := c.Config()
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			addr := cfg.Server.Addr()

			fmt.Printf("Cal.com Chatbot API v%s\n", version)
			fmt.Printf("Listening on http://%s\n", addr)

			g, ctx := errgroup.WithContext(ctx)
			if pruner := c.Pruner(); pruner != nil {
				g.Go(func() error {
					pruner.Start(ctx)
					return nil
				})
			}
			g.Go(func() error {
				return c.Server().Run(ctx, addr)
			})

			err = g.Wait()
			log.Info().Msg("Server stopped")
			return err
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (default from config: 0.0.0.0)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (default from config: 8000)")
	return cmd
}
