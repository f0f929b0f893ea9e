package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/smolbet/oracle/internal/auth"
	"github.com/smolbet/oracle/internal/config"
	"github.com/smolbet/oracle/internal/decode"
	"github.com/smolbet/oracle/internal/ledger"
	"github.com/smolbet/oracle/internal/llm"
	"github.com/smolbet/oracle/internal/model"
	"github.com/smolbet/oracle/internal/ratelimit"
	"github.com/smolbet/oracle/internal/registry"
	"github.com/smolbet/oracle/internal/search"
	"github.com/smolbet/oracle/internal/verify"
)

// Stage names the pipeline's states. A run moves through them in a
// fixed order; each stage runs at most once and the first failure is
// terminal.
type Stage string

const (
	StageAuthorizing    Stage = "authorizing"
	StageDecoding       Stage = "decoding"
	StageQuerySynthesis Stage = "query_synthesis"
	StageEvidenceFetch  Stage = "evidence_fetch"
	StageJudging        Stage = "judging"
	StageCommitting     Stage = "committing"
	StageDone           Stage = "done"
	StageRejected       Stage = "rejected"
	StageFailed         Stage = "failed"
)

// User-safe replies. Internal error detail never travels through these;
// it stays on Outcome.Err for the caller's logs.
const (
	ReplyAccessDenied        = "access denied"
	ReplyUnrecognizedPayload = "unrecognized payload"
	ReplyAlreadyProcessed    = "request already processed"
	ReplyAlreadySettled      = "bet already settled"
	ReplyResolutionFailed    = "resolution failed"
)

// Capability interfaces. The pipeline's control flow and tests are
// independent of the concrete providers behind them.

// QueryModel turns bet terms into one search query.
type QueryModel interface {
	Synthesize(ctx context.Context, terms string) (string, error)
}

// JudgeModel turns (terms, evidence) into a verdict.
type JudgeModel interface {
	Judge(ctx context.Context, terms string, ev *model.Evidence) (model.Verdict, error)
}

// EvidenceSource turns a query into an evidence document.
type EvidenceSource interface {
	Fetch(ctx context.Context, query string, opts search.Options) (*model.Evidence, error)
}

// Ledger commits a verdict to the contract and reads bet records back.
type Ledger interface {
	Commit(ctx context.Context, betID int64, verdict model.Verdict) (*model.CommitRecord, error)
	GetBet(ctx context.Context, betID int64) (*model.Bet, error)
}

// LinkChecker annotates evidence with per-link reachability. Optional.
type LinkChecker interface {
	Check(ctx context.Context, results []model.OrganicResult) []model.LinkCheck
}

// Limiter throttles calls to a named external resource. Optional.
type Limiter interface {
	Wait(ctx context.Context, resource string) error
}

// Outcome is the terminal result of one pipeline run.
type Outcome struct {
	Stage    Stage                // terminal state: done, rejected, or failed
	FailedAt Stage                // stage that terminated the run (empty on done)
	Reply    string               // user-safe reply for the requester channel
	Verdict  model.Verdict        // set on done
	Commit   *model.CommitRecord  // set on done
	Request  *model.ResolutionRequest // set once decoding succeeded
	Err      error                // internal detail, for logs only
}

// runRecord is what the registry stores per requestId.
type runRecord struct {
	RequestID string        `json:"request_id"`
	BetID     int64         `json:"bet_id"`
	State     string        `json:"state"` // committing, committed
	Verdict   model.Verdict `json:"verdict,omitempty"`
	TxHash    string        `json:"tx_hash,omitempty"`
}

// Pipeline orchestrates one inbound event from authorization to
// ledger commit. Safe for concurrent use; runs share only read-only
// configuration and the processed-request registry.
type Pipeline struct {
	gate       *auth.Gate
	store      registry.Store
	queries    QueryModel
	evidence   EvidenceSource
	checker    LinkChecker
	judge      JudgeModel
	ledger     Ledger
	limiter    Limiter
	searchOpts search.Options
	recordTTL  time.Duration
}

// New wires a pipeline from configuration. It fails before any network
// call if the search credential is absent.
func New(cfg *config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(llm.ConfigFromJudge(cfg.Judge, cfg.HTTP))
	if err != nil {
		return nil, fmt.Errorf("judge provider: %w", err)
	}

	var store registry.Store
	if cfg.Registry.Dir != "" {
		store = registry.NewLayeredStore(cfg.Registry.TTL, cfg.Registry.Dir, cfg.Registry.TTL)
	} else {
		store = registry.NewMemoryStore(cfg.Registry.TTL, 10*time.Minute)
	}

	var checker LinkChecker
	if cfg.Verify.Enabled {
		checker = verify.NewChecker(
			cfg.Verify.Timeout, cfg.Verify.Workers, cfg.HTTP.UserAgent, cfg.Verify.MaxBytes,
			cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy,
		)
	}

	searchClient := search.NewClient(
		cfg.Search.APIKey, cfg.Search.BaseURL, cfg.HTTP.UserAgent, cfg.Search.Timeout,
		cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy,
	)

	return NewWithDeps(Deps{
		Gate:     auth.NewGate(cfg.Auth.AllowedSigners),
		Store:    store,
		Queries:  llm.NewSynthesizer(provider),
		Evidence: searchClient,
		Checker:  checker,
		Judge:    llm.NewJudge(provider),
		Ledger:   ledger.NewCommitter(cfg.Ledger.RPCURL, cfg.Ledger.ContractID, cfg.Ledger.SigningKey, cfg.Ledger.Timeout),
		Limiter:  ratelimit.New(cfg.Concurrency.RequestsPerSecond, cfg.Concurrency.Burst),
		SearchOpts: search.Options{
			Locale:  cfg.Search.Locale,
			Country: cfg.Search.Country,
			Num:     cfg.Search.Results,
		},
		RecordTTL: cfg.Registry.TTL,
	}), nil
}

// Deps are the pipeline's injected collaborators. Tests supply stubs.
type Deps struct {
	Gate       *auth.Gate
	Store      registry.Store
	Queries    QueryModel
	Evidence   EvidenceSource
	Checker    LinkChecker
	Judge      JudgeModel
	Ledger     Ledger
	Limiter    Limiter
	SearchOpts search.Options
	RecordTTL  time.Duration
}

// NewWithDeps builds a pipeline from explicit collaborators.
func NewWithDeps(d Deps) *Pipeline {
	return &Pipeline{
		gate:       d.Gate,
		store:      d.Store,
		queries:    d.Queries,
		evidence:   d.Evidence,
		checker:    d.Checker,
		judge:      d.Judge,
		ledger:     d.Ledger,
		limiter:    d.Limiter,
		searchOpts: d.SearchOpts,
		recordTTL:  d.RecordTTL,
	}
}

// Run processes one raw event payload to a terminal state. A failed
// run never panics and never affects other concurrent runs.
func (p *Pipeline) Run(ctx context.Context, raw []byte) *Outcome {
	// Authorizing. The envelope must parse far enough to establish the
	// caller identity; without one there is nothing to authorize.
	env, err := decode.Envelope(raw)
	if err != nil {
		return &Outcome{Stage: StageRejected, FailedAt: StageAuthorizing, Reply: ReplyUnrecognizedPayload, Err: err}
	}
	if err := p.gate.Authorize(env.SignerID); err != nil {
		return &Outcome{Stage: StageRejected, FailedAt: StageAuthorizing, Reply: ReplyAccessDenied, Err: err}
	}

	// Decoding
	req, err := decode.Request(env)
	if err != nil {
		return &Outcome{Stage: StageRejected, FailedAt: StageDecoding, Reply: ReplyUnrecognizedPayload, Err: err}
	}

	// Run-once gate: a requestId whose commit was already attempted is
	// never resolved again, even if the earlier attempt's outcome was
	// lost mid-commit.
	key := registry.Key(req.RequestID)
	if prev, found := p.store.Get(key); found {
		return &Outcome{
			Stage:    StageRejected,
			FailedAt: StageDecoding,
			Reply:    ReplyAlreadyProcessed,
			Request:  &req,
			Err:      fmt.Errorf("request %s already recorded: %s", req.RequestID, prev),
		}
	}

	// Settled-bet skip. The contract is the source of truth: a bet that
	// already carries a resolution is never adjudicated again. The view
	// is best-effort; an unreachable gateway surfaces at commit time.
	if bet, err := p.ledger.GetBet(ctx, req.BetID); err == nil && bet.Resolved() {
		return &Outcome{
			Stage:    StageRejected,
			FailedAt: StageDecoding,
			Reply:    ReplyAlreadySettled,
			Request:  &req,
			Err:      fmt.Errorf("bet %d already settled: %s", req.BetID, bet.Resolution),
		}
	}

	// QuerySynthesis
	if err := p.wait(ctx, "judge"); err != nil {
		return p.failed(StageQuerySynthesis, &req, err)
	}
	query, err := p.queries.Synthesize(ctx, req.Terms)
	if err != nil {
		return p.failed(StageQuerySynthesis, &req, err)
	}

	// EvidenceFetch
	if err := p.wait(ctx, "search"); err != nil {
		return p.failed(StageEvidenceFetch, &req, err)
	}
	ev, err := p.evidence.Fetch(ctx, query, p.searchOpts)
	if err != nil {
		return p.failed(StageEvidenceFetch, &req, err)
	}

	// Link verification is best-effort and never fails the run.
	if p.checker != nil && ev != nil {
		ev.Links = p.checker.Check(ctx, ev.Organic)
	}

	// Judging
	if err := p.wait(ctx, "judge"); err != nil {
		return p.failed(StageJudging, &req, err)
	}
	verdict, err := p.judge.Judge(ctx, req.Terms, ev)
	if err != nil {
		return p.failed(StageJudging, &req, err)
	}

	// Committing. The request is recorded before the write goes out:
	// if the process dies mid-commit, the write's outcome is unknown
	// and must not be retried.
	if err := p.record(key, runRecord{RequestID: req.RequestID, BetID: req.BetID, State: "committing", Verdict: verdict}); err != nil {
		return p.failed(StageCommitting, &req, err)
	}
	if err := p.wait(ctx, "ledger"); err != nil {
		return p.failed(StageCommitting, &req, err)
	}
	ack, err := p.ledger.Commit(ctx, req.BetID, verdict)
	if err != nil {
		return p.failed(StageCommitting, &req, err)
	}

	_ = p.record(key, runRecord{RequestID: req.RequestID, BetID: req.BetID, State: "committed", Verdict: verdict, TxHash: ack.TxHash})

	return &Outcome{
		Stage:   StageDone,
		Reply:   string(verdict),
		Verdict: verdict,
		Commit:  ack,
		Request: &req,
	}
}

func (p *Pipeline) failed(at Stage, req *model.ResolutionRequest, err error) *Outcome {
	return &Outcome{
		Stage:    StageFailed,
		FailedAt: at,
		Reply:    ReplyResolutionFailed,
		Request:  req,
		Err:      err,
	}
}

func (p *Pipeline) wait(ctx context.Context, resource string) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx, resource)
}

func (p *Pipeline) record(key string, rec runRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}
	if err := p.store.Set(key, data, p.recordTTL); err != nil {
		return fmt.Errorf("record request: %w", err)
	}
	return nil
}
