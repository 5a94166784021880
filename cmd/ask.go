package cmd

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sqlsage/sqlsage/internal/app"
)

var askShowSQL bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a natural-language question against the warehouse",
	Long: `ask generates a read-only SQL query for the question, runs it, and prints
the formatted answer. The generated SQL is printed first so the answer can
be checked; disable that with --sql=false.`,
	Example: `  sqlsage ask "How many artists are there?"
  sqlsage ask --sql=false "Which nationality appears most often?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askShowSQL, "sql", true, "print the generated SQL before the answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	question := strings.Join(args, " ")
	ans := a.Pipeline.Answer(ctx, question)

	out := cmd.OutOrStdout()
	if askShowSQL {
		fmt.Fprintln(out, ans.SQL)
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, ans.Text)

	if ans.Err != nil {
		// The answer text already explains the failure; the returned error
		// only sets the exit code and names the stage.
		return fmt.Errorf("question failed during %s", ans.Stage)
	}
	return nil
}
