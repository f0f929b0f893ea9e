package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/smolbet/oracle/internal/pipeline"
)

// Resolver is the interface for processing one raw event payload.
type Resolver interface {
	Run(ctx context.Context, raw []byte) *pipeline.Outcome
}

// EventJob carries one inbound event through the pool
type EventJob struct {
	Line     int
	Raw      []byte
	Resolver Resolver
}

// Execute runs the resolution pipeline for this event
func (j *EventJob) Execute(ctx context.Context) Result {
	return &EventResult{
		Line:    j.Line,
		Outcome: j.Resolver.Run(ctx, j.Raw),
	}
}

// EventResult represents the result of one event resolution
type EventResult struct {
	Line    int
	Outcome *pipeline.Outcome
}

// GetError returns the internal error from the outcome, if any
func (r *EventResult) GetError() error {
	if r.Outcome == nil {
		return nil
	}
	return r.Outcome.Err
}

// BatchProcessor processes multiple events concurrently. Failures are
// isolated per event: one failed run never affects the others.
type BatchProcessor struct {
	resolver    Resolver
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(resolver Resolver, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		resolver:    resolver,
		concurrency: concurrency,
	}
}

// ProcessEvents processes raw event payloads concurrently
func (b *BatchProcessor) ProcessEvents(ctx context.Context, events [][]byte) []*EventResult {
	if len(events) == 0 {
		return []*EventResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start(ctx)

	// Submission must overlap collection: with more events than channel
	// capacity, submitting everything before draining would deadlock.
	go func() {
		defer pool.CloseIntake()
		for i, raw := range events {
			if !pool.Submit(ctx, &EventJob{
				Line:     i + 1,
				Raw:      raw,
				Resolver: b.resolver,
			}) {
				return
			}
		}
	}()

	results := pool.Collect()

	eventResults := make([]*EventResult, len(results))
	for i, result := range results {
		eventResults[i] = result.(*EventResult)
	}

	return eventResults
}

// ProcessFile reads events from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*EventResult, error) {
	events, err := ReadEventsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}

	return b.ProcessEvents(ctx, events), nil
}

// ReadEventsFromFile reads event payloads from a file (one JSON
// envelope per line).
func ReadEventsFromFile(filePath string) ([][]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var events [][]byte

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		events = append(events, []byte(line))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return events, nil
}
