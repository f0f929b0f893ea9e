package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/smolbet/oracle/internal/pipeline"
	"github.com/smolbet/oracle/internal/worker"
)

var (
	concurrency  int
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Resolve multiple bet events from a file in parallel",
	Long: `Batch processes multiple events concurrently:
- Read event payloads from the input file (one JSON envelope per line)
- Process events in parallel with configurable worker count
- Each event runs its own isolated pipeline; one failure never stops
  the rest
- On shutdown, in-flight runs finish; none are killed mid-commit

Example:
  oracle batch events.jsonl
  oracle batch events.jsonl --concurrency 8 --timeout 10m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	addPipelineFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	cfg.Concurrency.Workers = concurrency

	p, err := pipeline.New(cfg)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Input file: %s\n", file)
		fmt.Fprintf(os.Stderr, "Workers:    %d\n", concurrency)
		fmt.Fprintf(os.Stderr, "Timeout:    %v\n\n", batchTimeout)
	}

	processor := worker.NewBatchProcessor(p, concurrency)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	var done, rejected, failed int
	for _, r := range results {
		switch r.Outcome.Stage {
		case pipeline.StageDone:
			done++
		case pipeline.StageRejected:
			rejected++
		default:
			failed++
		}

		if verbose {
			fmt.Fprintf(os.Stderr, "[line %d] %s: %s", r.Line, r.Outcome.Stage, r.Outcome.Reply)
			if r.Outcome.Err != nil {
				fmt.Fprintf(os.Stderr, " (%v)", r.Outcome.Err)
			}
			fmt.Fprintln(os.Stderr)
		}
	}

	fmt.Printf("processed %d events: %d done, %d rejected, %d failed\n", len(results), done, rejected, failed)

	if failed > 0 {
		return fmt.Errorf("%d events failed", failed)
	}
	return nil
}
