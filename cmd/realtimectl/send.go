package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ekalbevoldog/Contesttest-sub006/internal/protocol"
)

func sendCmd() *cobra.Command {
	var (
		channel string
		wait    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send <text>",
		Short: "Connect, send one message envelope, and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			mgr := newManager(cfg, logger)
			defer mgr.Disconnect()

			// Connect events fire on every open, including reconnects
			// within the wait window; the message goes out once.
			sent := make(chan struct{})
			var once sync.Once
			mgr.OnConnect(func() {
				once.Do(func() {
					env, err := protocol.Message(channel, args[0])
					if err != nil {
						logger.Error("building envelope", "error", err)
						return
					}
					mgr.Send(env)
					close(sent)
				})
			})

			if !cfg.Connection.AutoConnect {
				mgr.Connect()
			}

			select {
			case <-sent:
				// Give the transport a moment to flush before closing.
				time.Sleep(100 * time.Millisecond)
				logger.Info("message sent", "channel", channel)
				return nil
			case <-time.After(wait):
				return fmt.Errorf("timed out after %s waiting for connection", wait)
			}
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "", "channel to publish on")
	cmd.Flags().DurationVar(&wait, "wait", 10*time.Second, "how long to wait for the connection")
	return cmd
}
