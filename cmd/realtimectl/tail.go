package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ekalbevoldog/Contesttest-sub006/internal/connection"
)

func tailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tail [channel...]",
		Short: "Connect, subscribe to channels, and print inbound envelopes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			go serveMetrics(cfg, logger)

			mgr := newManager(cfg, logger)
			defer mgr.Disconnect()

			cancel := mgr.OnMessage(func(in connection.Inbound) {
				if !in.Decoded {
					fmt.Printf("[raw] %s\n", in.Raw)
					return
				}
				fmt.Printf("[%s] channel=%s %s\n", in.Envelope.Type, in.Envelope.Channel, in.Envelope.Content)
			})
			defer cancel()

			mgr.OnStateChange(func(sc connection.StateChange) {
				logger.Info("connection state", "from", sc.Old, "to", sc.New)
			})

			if !cfg.Connection.AutoConnect {
				mgr.Connect()
			}
			for _, ch := range args {
				mgr.Subscribe(ch)
			}

			// SIGHUP nudges the manager to retry immediately, for hosts
			// that detect network recovery out of band.
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
			for sig := range sigs {
				if sig == syscall.SIGHUP {
					logger.Info("received SIGHUP, triggering reconnect")
					mgr.Connect()
					continue
				}
				logger.Info("shutting down", "signal", sig)
				return nil
			}
			return nil
		},
	}
}
