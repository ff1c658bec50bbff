package cmd

import (
	"github.com/spf13/cobra"

	"inkwell/notes/internal/api"
	"inkwell/notes/internal/events"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the note operations over HTTP with a websocket change stream",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		opts := []api.Option{
			api.WithGateway(cfg.Gateway),
			api.WithVocabulary(vocabulary()),
		}
		if svc, err := newEnricher(d); err == nil {
			opts = append(opts, api.WithEnricher(svc))
		} else {
			logger.Info().Msg("enrichment endpoints disabled: no enrich.command configured")
		}

		server := api.NewServer(d, events.NewBroker(0), logger, opts...)
		serverCfg := *cfg.Server
		if serveAddr != "" {
			serverCfg.Addr = serveAddr
		}
		return server.ListenAndServe(cmd.Context(), &serverCfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
