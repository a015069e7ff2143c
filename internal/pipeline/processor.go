// Package pipeline wires the two-pass extraction engine together: first
// pass over the streamed line log, recovery over the failed documents,
// then deduplication and reporting.
package pipeline

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fapiao/internal/extract"
	"fapiao/internal/linelog"
	"fapiao/internal/logger"
	"fapiao/pkg/models"
)

// Processor runs complete batch extractions. It holds no per-document
// state; every Run is independent, so a caller may process several
// batches with one Processor.
type Processor struct {
	log zerolog.Logger
}

// NewProcessor returns a batch processor.
func NewProcessor() *Processor {
	return &Processor{log: logger.WithComponent("pipeline")}
}

// Run executes the full two-pass extraction over a line log and returns
// the deduplicated batch result. The engine never fails a whole batch
// because of a single bad document: unprocessable documents come back
// as data in the Failed list.
func (p *Processor) Run(lines *linelog.Log) *models.BatchResult {
	runID := uuid.NewString()
	log := p.log.With().Str("run_id", runID).Logger()

	log.Info().
		Int("lines", lines.Len()).
		Int("documents", len(lines.Sources())).
		Msg("Starting batch extraction")

	// Pass 1: stream every line in emission order, then the mandatory
	// end-of-stream call so the final segment is finalized too.
	stream := extract.NewStream()
	for _, line := range lines.Lines() {
		stream.Process(line.Text, line.Source)
	}
	stream.Close()

	accepted := stream.Accepted()
	failed := stream.Failed()

	log.Info().
		Int("accepted", len(accepted)).
		Int("failed", failed.Len()).
		Msg("First pass complete")

	// Pass 2: each failed document gets a fresh recovery attempt over
	// its full line history. Recovery state is scoped per call, so the
	// attempts are independent of each other and of pass 1.
	var recovered []string
	for _, sourceID := range failed.SourceIDs() {
		rec, ok := extract.Recover(sourceID, lines.TextsFor(sourceID))
		if !ok {
			continue
		}
		accepted = append(accepted, *rec)
		failed.Remove(sourceID)
		recovered = append(recovered, sourceID)
	}

	if len(recovered) > 0 {
		log.Info().
			Int("recovered", len(recovered)).
			Strs("sources", recovered).
			Msg("Recovery pass complete")
	}

	unique, duplicates := extract.Dedupe(accepted)

	permanentlyFailed := failed.SourceIDs()
	extract.SortNatural(permanentlyFailed)

	log.Info().
		Int("unique", len(unique)).
		Int("duplicate_groups", len(duplicates)).
		Int("permanently_failed", len(permanentlyFailed)).
		Msg("Batch extraction finished")

	return &models.BatchResult{
		Unique:     unique,
		Duplicates: duplicates,
		Recovered:  recovered,
		Failed:     permanentlyFailed,
	}
}
