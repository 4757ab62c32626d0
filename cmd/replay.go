// File: cmd/replay.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cycle-cli/internal/agent"
	"github.com/xkilldash9x/cycle-cli/internal/computer"
	"github.com/xkilldash9x/cycle-cli/internal/computer/robot"
	"github.com/xkilldash9x/cycle-cli/internal/config"
	"github.com/xkilldash9x/cycle-cli/internal/llmclient"
	"github.com/xkilldash9x/cycle-cli/internal/observability"
	"github.com/xkilldash9x/cycle-cli/internal/prompts"
	"github.com/xkilldash9x/cycle-cli/internal/tools"
	"github.com/xkilldash9x/cycle-cli/internal/transcript"
)

// Seams replaced in tests.
var (
	newDesktop     = func() computer.Desktop { return robot.New() }
	newModelClient = llmclient.NewClient
)

func newReplayCmd() *cobra.Command {
	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replays a recorded workflow on this computer, adapted by an instruction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if err := applyReplayFlags(cmd, cfg); err != nil {
				return err
			}

			transcriptPath, _ := cmd.Flags().GetString("transcript")
			instruction, _ := cmd.Flags().GetString("instruction")

			path, err := resolveTranscriptPath(transcriptPath, cfg.Directories.Transcripts)
			if err != nil {
				return err
			}
			workflow, err := transcript.Load(path, cfg.Transcript.Separator)
			if err != nil {
				return err
			}

			driver, err := initializeReplay(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize replay components: %w", err)
			}

			report, err := driver.Run(ctx, workflow, instruction)
			if report != nil {
				logger.Info("Replay summary",
					zap.String("run_id", report.RunID),
					zap.Int("model_calls", report.ModelCalls),
					zap.Int("iterations", report.Iterations),
					zap.Int("tool_calls", report.ToolCalls))
			}
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Replay aborted by signal")
					return fmt.Errorf("replay aborted by user signal")
				}
				return err
			}

			out := cmd.OutOrStdout()
			if report.FinalText != "" {
				fmt.Fprintln(out, report.FinalText)
			}
			fmt.Fprintf(out, "\nReplay complete. Run ID: %s\n", report.RunID)
			return nil
		},
	}

	replayCmd.Flags().StringP("transcript", "t", "", "Workflow transcript file, or - for stdin")
	replayCmd.Flags().StringP("instruction", "i", "", "Instruction that adapts the recorded workflow")
	replayCmd.Flags().Int("max-iterations", 0, "Maximum model calls before giving up, 0 for unlimited (overrides config/env)")
	replayCmd.Flags().Int("images-to-keep", 0, "Screenshots kept in the model history (overrides config/env)")
	replayCmd.Flags().StringP("model", "m", "", "Model name (overrides config/env)")
	_ = replayCmd.MarkFlagRequired("transcript")
	_ = replayCmd.MarkFlagRequired("instruction")

	return replayCmd
}

// applyReplayFlags copies explicitly set flags over the loaded configuration
// and re-validates it.
func applyReplayFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("max-iterations") {
		cfg.Automation.MaxIterations, _ = flags.GetInt("max-iterations")
	}
	if flags.Changed("images-to-keep") {
		cfg.Automation.ImagesToKeep, _ = flags.GetInt("images-to-keep")
	}
	if flags.Changed("model") {
		cfg.LLM.Model, _ = flags.GetString("model")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flag overrides: %w", err)
	}
	return nil
}

// resolveTranscriptPath looks a relative transcript up in the transcripts
// directory when it does not exist relative to the working directory.
func resolveTranscriptPath(path, dir string) (string, error) {
	if path == transcript.Stdin || dir == "" {
		return path, nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand transcript path: %w", err)
	}
	if filepath.IsAbs(expanded) {
		return expanded, nil
	}
	if _, err := os.Stat(expanded); err == nil {
		return expanded, nil
	}

	base, err := homedir.Expand(dir)
	if err != nil {
		return "", fmt.Errorf("failed to expand transcripts directory: %w", err)
	}
	candidate := filepath.Join(base, expanded)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return expanded, nil
}

// initializeReplay builds the replay pipeline bottom-up: desktop, computer
// tool, tool collection, model client, prompt hydrator, screenshot store.
func initializeReplay(cfg *config.Config, logger *zap.Logger) (*agent.Driver, error) {
	computerTool, err := computer.New(logger, newDesktop(), computer.OptionsFromConfig(cfg.Computer))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize computer tool: %w", err)
	}

	collection, err := tools.NewCollection(logger, computerTool)
	if err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	client, err := newModelClient(cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model client: %w", err)
	}

	hydrator, err := prompts.NewHydrator(cfg.Directories.Prompts, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prompt hydrator: %w", err)
	}

	store, err := agent.NewDirStore(cfg.Directories.Screenshots)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize screenshot store: %w", err)
	}
	logger.Info("Screenshots will be saved", zap.String("dir", store.Dir()))

	return agent.NewDriver(logger, client, collection, hydrator, store, agent.OptionsFromConfig(cfg)), nil
}
