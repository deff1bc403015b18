package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sentiment-alpha/internal/service"
)

func newComputeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compute",
		Short: "Run one signal cycle and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			res, err := rt.Service.RunOnce(cmd.Context())
			if errors.Is(err, service.ErrCycleSkipped) {
				fmt.Fprintln(cmd.OutOrStdout(), "cycle skipped: another process holds the lock")
				return nil
			}
			if err != nil {
				return fmt.Errorf("compute: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}
