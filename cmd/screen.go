// File: cmd/screen.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/cycle-cli/internal/computer"
)

func newScreenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "screen",
		Short: "Prints the screen geometry the computer tool would report to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}

			width, height, err := newDesktop().ScreenSize()
			if err != nil {
				return fmt.Errorf("failed to read screen geometry: %w", err)
			}
			scaling, err := computer.NewScalingContext(width, height, cfg.Computer.MaxWidth)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Real screen:   %dx%d\n", scaling.RealWidth, scaling.RealHeight)
			fmt.Fprintf(out, "Model screen:  %dx%d\n", scaling.TargetWidth, scaling.TargetHeight)
			fmt.Fprintf(out, "Scale factor:  %.4f\n", scaling.Scale)
			return nil
		},
	}
}
