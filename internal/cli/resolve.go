package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smolbet/oracle/internal/config"
	"github.com/smolbet/oracle/internal/pipeline"
)

var (
	resolveTimeout time.Duration
	outJSON        string
	contractID     string
	rpcURL         string
	allowedSigners []string
	judgeProvider  string
	judgeModel     string
	registryDir    string
	noVerify       bool
)

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve <payload>",
	Short: "Resolve a single bet event and commit the verdict",
	Long: `Resolve processes one inbound agent event:
- Authorize the event signer against the allow-list
- Decode the bet terms and bet id from the payload
- Synthesize a search query and fetch evidence
- Judge the terms against the evidence
- Commit the verdict to the bet contract

The payload is the raw event JSON. Pass it inline, as @file, or as -
to read stdin.

Example:
  oracle resolve '{"requestId":"r1","signerId":"ai-creator.near","message":"{\"terms\":\"BTC closes above 100k on Dec 31\",\"id\":42}"}'
  oracle resolve @event.json --contract test-campaign.near
  cat event.json | oracle resolve -`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().DurationVar(&resolveTimeout, "timeout", 2*time.Minute, "overall resolution timeout")
	resolveCmd.Flags().StringVar(&outJSON, "json", "", "write the run outcome as JSON to this path")
	addPipelineFlags(resolveCmd)
}

// addPipelineFlags registers the flags shared by resolve and batch
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&contractID, "contract", "", "bet contract id (e.g. test-campaign.near)")
	cmd.Flags().StringVar(&rpcURL, "rpc-url", "", "ledger RPC gateway URL")
	cmd.Flags().StringSliceVar(&allowedSigners, "allow-signer", nil, "allow-listed signer id (repeatable)")
	cmd.Flags().StringVar(&judgeProvider, "judge-provider", "", "judge provider (openai, anthropic, ollama)")
	cmd.Flags().StringVar(&judgeModel, "judge-model", "", "judge model name")
	cmd.Flags().StringVar(&registryDir, "registry-dir", "", "directory for the processed-request registry")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "skip evidence link verification")
}

func runResolve(cmd *cobra.Command, args []string) error {
	raw, err := readPayload(args[0])
	if err != nil {
		return err
	}

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	outcome := p.Run(ctx, raw)
	printOutcome(outcome)

	if outJSON != "" {
		if err := writeOutcomeJSON(outcome, outJSON); err != nil {
			return fmt.Errorf("write outcome: %w", err)
		}
	}

	if outcome.Stage != pipeline.StageDone {
		return fmt.Errorf("run terminated at %s", outcome.Stage)
	}
	return nil
}

// buildConfig merges defaults, config file, environment, and flags.
func buildConfig() (*config.Config, error) {
	cfg := config.FromViper(viper.GetViper())

	// Environment credentials
	if cfg.Search.APIKey == "" {
		cfg.Search.APIKey = os.Getenv("SERPAPI_API_KEY")
	}
	if cfg.Ledger.SigningKey == "" {
		cfg.Ledger.SigningKey = os.Getenv("LEDGER_SIGNING_KEY")
	}

	// Flag overrides
	if contractID != "" {
		cfg.Ledger.ContractID = contractID
	}
	if rpcURL != "" {
		cfg.Ledger.RPCURL = rpcURL
	}
	if len(allowedSigners) > 0 {
		cfg.Auth.AllowedSigners = allowedSigners
	}
	if judgeProvider != "" {
		cfg.Judge.Provider = judgeProvider
	}
	if judgeModel != "" {
		cfg.Judge.Model = judgeModel
	}
	if registryDir != "" {
		cfg.Registry.Dir = registryDir
	}
	if noVerify {
		cfg.Verify.Enabled = false
	}

	// Judge provider credential from environment
	if cfg.Judge.APIKey == "" {
		switch cfg.Judge.Provider {
		case "openai":
			cfg.Judge.APIKey = os.Getenv("OPENAI_API_KEY")
			if cfg.Judge.APIKey == "" {
				return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
			}
		case "anthropic", "claude":
			cfg.Judge.APIKey = os.Getenv("ANTHROPIC_API_KEY")
			if cfg.Judge.APIKey == "" {
				return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
			}
		case "ollama":
			// Ollama doesn't need an API key
			if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
				cfg.Judge.BaseURL = baseURL
			}
		}
	}

	return cfg, nil
}

// readPayload loads the raw event from an inline argument, @file, or stdin.
func readPayload(arg string) ([]byte, error) {
	switch {
	case arg == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	case strings.HasPrefix(arg, "@"):
		data, err := os.ReadFile(strings.TrimPrefix(arg, "@"))
		if err != nil {
			return nil, fmt.Errorf("read payload file: %w", err)
		}
		return data, nil
	default:
		return []byte(arg), nil
	}
}

// printOutcome renders the user-facing reply plus verbose detail.
func printOutcome(outcome *pipeline.Outcome) {
	fmt.Println(outcome.Reply)

	if !verbose {
		return
	}

	fmt.Fprintf(os.Stderr, "stage: %s\n", outcome.Stage)
	if outcome.FailedAt != "" {
		fmt.Fprintf(os.Stderr, "terminated at: %s\n", outcome.FailedAt)
	}
	if outcome.Request != nil {
		fmt.Fprintf(os.Stderr, "bet: %d terms: %q\n", outcome.Request.BetID, outcome.Request.Terms)
	}
	if outcome.Commit != nil {
		fmt.Fprintf(os.Stderr, "committed: %s tx: %s\n", outcome.Commit.Verdict, outcome.Commit.TxHash)
	}
	if outcome.Err != nil {
		fmt.Fprintf(os.Stderr, "detail: %v\n", outcome.Err)
	}
}

// outcomeDoc is the JSON form of an Outcome; the internal error is
// flattened to a string.
type outcomeDoc struct {
	Stage    pipeline.Stage `json:"stage"`
	FailedAt pipeline.Stage `json:"failed_at,omitempty"`
	Reply    string         `json:"reply"`
	Verdict  string         `json:"verdict,omitempty"`
	TxHash   string         `json:"tx_hash,omitempty"`
	BetID    *int64         `json:"bet_id,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func writeOutcomeJSON(outcome *pipeline.Outcome, path string) error {
	doc := outcomeDoc{
		Stage:    outcome.Stage,
		FailedAt: outcome.FailedAt,
		Reply:    outcome.Reply,
		Verdict:  string(outcome.Verdict),
	}
	if outcome.Commit != nil {
		doc.TxHash = outcome.Commit.TxHash
	}
	if outcome.Request != nil {
		doc.BetID = &outcome.Request.BetID
	}
	if outcome.Err != nil {
		doc.Error = outcome.Err.Error()
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
