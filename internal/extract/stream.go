package extract

import (
	"github.com/rs/zerolog"

	"fapiao/internal/logger"
	"fapiao/pkg/models"
)

// FailedSet tracks the documents rejected by first-pass validation.
// It keeps set semantics (no duplicate entries) while preserving
// insertion order for deterministic reporting.
type FailedSet struct {
	order   []string
	members map[string]struct{}
}

// NewFailedSet returns an empty failed-document set.
func NewFailedSet() *FailedSet {
	return &FailedSet{members: make(map[string]struct{})}
}

// Add records a source ID; adding an existing member is a no-op.
func (s *FailedSet) Add(sourceID string) {
	if _, ok := s.members[sourceID]; ok {
		return
	}
	s.members[sourceID] = struct{}{}
	s.order = append(s.order, sourceID)
}

// Remove drops a source ID, typically after a successful recovery.
func (s *FailedSet) Remove(sourceID string) {
	if _, ok := s.members[sourceID]; !ok {
		return
	}
	delete(s.members, sourceID)
	for i, id := range s.order {
		if id == sourceID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Contains reports membership.
func (s *FailedSet) Contains(sourceID string) bool {
	_, ok := s.members[sourceID]
	return ok
}

// SourceIDs returns the members in insertion order.
func (s *FailedSet) SourceIDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of members.
func (s *FailedSet) Len() int { return len(s.order) }

// Stream is the first-pass engine: it segments the incoming line
// sequence by source ID, feeds each line to the field updater, and
// finalizes every document segment exactly once.
//
// Exactly one accumulator is current at any time. A line with a new
// source ID closes the previous segment; Close finalizes the in-flight
// segment at end of stream and is a required call — without it the last
// document is never validated.
type Stream struct {
	current  *models.InvoiceRecord
	accepted []models.InvoiceRecord
	failed   *FailedSet
	log      zerolog.Logger
}

// NewStream returns a Stream ready to consume lines.
func NewStream() *Stream {
	return &Stream{
		failed: NewFailedSet(),
		log:    logger.WithComponent("extract"),
	}
}

// Process consumes one (text, sourceID) pair in OCR emission order.
// Order within a document matters: the monotonic-max and
// last-match-wins field policies depend on it.
func (s *Stream) Process(text, sourceID string) {
	if s.current == nil || s.current.SourceID != sourceID {
		s.closeSegment()
		s.current = &models.InvoiceRecord{SourceID: sourceID}
	}
	ApplyLine(s.current, text)
}

// Close finalizes the in-flight segment. Callers must invoke it after
// the last line of the stream.
func (s *Stream) Close() {
	s.closeSegment()
}

// closeSegment runs the acceptance predicate on the current accumulator.
// Rejected documents are not kept: their source ID goes into the failed
// set and the accumulator is discarded, so recovery always starts from a
// clean slate instead of compounding a bad first-pass guess.
func (s *Stream) closeSegment() {
	if s.current == nil {
		return
	}
	rec := s.current
	s.current = nil

	if rec.Acceptable() {
		s.accepted = append(s.accepted, *rec)
		s.log.Info().
			Str("source", rec.SourceID).
			Str("invoice_number", rec.InvoiceNumber).
			Str("total", rec.TotalAmount.StringFixed(2)).
			Msg("Invoice accepted")
		return
	}

	s.failed.Add(rec.SourceID)
	s.log.Warn().
		Str("source", rec.SourceID).
		Bool("has_number", rec.InvoiceNumber != "").
		Bool("has_total", rec.HasTotal()).
		Msg("Invoice rejected, queued for recovery")
}

// Accepted returns the records that passed first-pass validation.
func (s *Stream) Accepted() []models.InvoiceRecord {
	return s.accepted
}

// Failed returns the set of rejected source IDs.
func (s *Stream) Failed() *FailedSet {
	return s.failed
}
