package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eliasbrown99/solicitation-dashboard/internal/core/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print session events published by running controllers",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.Publisher == nil {
			return errors.New("session events are disabled: set NATS_URL")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		err = a.Publisher.SubscribeSessionEvents(cmd.Context(), func(_ context.Context, event domain.SessionEvent) error {
			return enc.Encode(event)
		})
		if err != nil {
			return fmt.Errorf("watching session events: %w", err)
		}
		return nil
	},
}
