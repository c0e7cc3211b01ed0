// Package workflow sequences a claim review: intake → review → result.
// The two transitions call the extraction and evaluation services; a session
// allows one outstanding request at a time.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ppiankov/claimreview/internal/model"
	"github.com/ppiankov/claimreview/internal/review"
)

// State is a step of the review workflow
type State string

const (
	StateIntake State = "intake"
	StateReview State = "review"
	StateResult State = "result"
)

// Default notices for service failures that carry no message of their own
const (
	DefaultExtractNotice  = "Extraction failed"
	DefaultEvaluateNotice = "Evaluation failed"
)

// Document is one uploaded file
type Document struct {
	Filename string
	Content  []byte
}

// Upload is the intake submission: a policy number and up to four documents
type Upload struct {
	PolicyNumber string
	Documents    map[model.DocumentKind]Document
}

// Extractor turns an upload into structured claim data
type Extractor interface {
	Extract(ctx context.Context, upload Upload) (*model.ClaimPayload, error)
}

// Evaluator applies coverage rules to a reviewed claim
type Evaluator interface {
	Evaluate(ctx context.Context, payload model.ClaimPayload) (*model.EvaluationResult, error)
}

// Receipt is the frozen outcome of a session
type Receipt struct {
	Result  model.EvaluationResult
	Payload model.ClaimPayload
}

// Session is one review of one claim. It is owned by a single caller; the
// in-flight guard rejects a second request issued while one is outstanding.
type Session struct {
	id        uuid.UUID
	extractor Extractor
	evaluator Evaluator
	logger    *slog.Logger

	mu        sync.Mutex
	state     State
	inFlight  bool
	notice    string
	extracted *model.ClaimPayload
	buffer    *review.Buffer
	receipt   *Receipt
}

// NewSession creates a session in the intake state
func NewSession(extractor Extractor, evaluator Evaluator, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New()
	return &Session{
		id:        id,
		extractor: extractor,
		evaluator: evaluator,
		logger:    logger.With("session", id.String()),
		state:     StateIntake,
	}
}

// ID identifies the session in logs and batch output
func (s *Session) ID() uuid.UUID {
	return s.id
}

// State returns the current workflow state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Loading reports whether a service request is outstanding
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Notice returns the message from the last failed action, or ""
func (s *Session) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

// Submit sends the upload for extraction and, on success, moves to review.
// On failure the session stays in intake and Notice holds the reason.
func (s *Session) Submit(ctx context.Context, upload Upload) error {
	if err := s.expect(StateIntake); err != nil {
		return err
	}
	if err := validateUpload(upload); err != nil {
		s.fail(err.Error())
		return err
	}

	release, err := s.acquire(StateIntake)
	if err != nil {
		return err
	}
	defer release()

	s.logger.Info("extracting claim", "policy", upload.PolicyNumber, "documents", len(upload.Documents))

	payload, err := s.extractor.Extract(ctx, upload)
	if err == nil && payload == nil {
		err = errors.New("empty extraction response")
	}
	if err != nil {
		s.fail(noticeFor(err, DefaultExtractNotice))
		s.logger.Warn("extraction failed", "error", err)
		return fmt.Errorf("extract: %w", err)
	}

	extracted := payload.Clone()

	s.mu.Lock()
	s.extracted = &extracted
	s.buffer = review.NewBuffer(extracted)
	s.state = StateReview
	s.notice = ""
	s.mu.Unlock()

	s.logger.Info("claim extracted", "charges", len(extracted.Charges))
	return nil
}

// Analyze checks the buffer and sends it for evaluation. On success the
// session reaches result and the payload is frozen. On failure it stays in
// review; a failed precondition makes no service call.
func (s *Session) Analyze(ctx context.Context) error {
	if err := s.expect(StateReview); err != nil {
		return err
	}

	s.mu.Lock()
	snapshot := s.buffer.Payload()
	s.mu.Unlock()

	if err := review.Check(snapshot); err != nil {
		s.fail(err.Error())
		s.logger.Info("analysis blocked", "reason", err.Error())
		return err
	}

	release, err := s.acquire(StateReview)
	if err != nil {
		return err
	}
	defer release()

	s.logger.Info("evaluating claim", "charges", len(snapshot.Charges))

	result, err := s.evaluator.Evaluate(ctx, snapshot)
	if err == nil && result == nil {
		err = errors.New("empty evaluation response")
	}
	if err != nil {
		s.fail(noticeFor(err, DefaultEvaluateNotice))
		s.logger.Warn("evaluation failed", "error", err)
		return fmt.Errorf("evaluate: %w", err)
	}

	s.mu.Lock()
	s.receipt = &Receipt{Result: *result, Payload: snapshot}
	s.state = StateResult
	s.notice = ""
	s.mu.Unlock()

	s.logger.Info("claim evaluated", "status", result.Status)
	return nil
}

// Buffer returns the live edit buffer. Only available in review.
func (s *Session) Buffer() (*review.Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReview {
		return nil, fmt.Errorf("%w: state is %s", ErrNotInReview, s.state)
	}
	return s.buffer, nil
}

// Extracted returns a copy of what the extraction service returned
func (s *Session) Extracted() (model.ClaimPayload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extracted == nil {
		return model.ClaimPayload{}, false
	}
	return s.extracted.Clone(), true
}

// Receipt returns the evaluation result with the payload that produced it.
// Only available in result.
func (s *Session) Receipt() (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateResult {
		return Receipt{}, fmt.Errorf("%w: state is %s", ErrNoResult, s.state)
	}
	return Receipt{Result: s.receipt.Result, Payload: s.receipt.Payload.Clone()}, nil
}

func (s *Session) expect(want State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != want {
		return fmt.Errorf("%w: %s, want %s", ErrInvalidTransition, s.state, want)
	}
	return nil
}

// acquire marks a request in flight, provided the session is still in want.
// State and flag are checked under one lock so a caller that raced past
// expect cannot start a second transition. The returned release must be
// deferred by the caller so the flag clears on every exit path.
func (s *Session) acquire(want State) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return nil, ErrInFlight
	}
	if s.state != want {
		return nil, fmt.Errorf("%w: %s, want %s", ErrInvalidTransition, s.state, want)
	}
	s.inFlight = true

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.inFlight = false
			s.mu.Unlock()
		})
	}, nil
}

func (s *Session) fail(notice string) {
	s.mu.Lock()
	s.notice = notice
	s.mu.Unlock()
}

func validateUpload(u Upload) error {
	if strings.TrimSpace(u.PolicyNumber) == "" {
		return ErrPolicyNumberRequired
	}
	for kind := range u.Documents {
		if !kind.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownDocument, kind)
		}
	}
	return nil
}

// noticeFor picks the reviewer-facing message for a service failure
func noticeFor(err error, fallback string) string {
	var n interface{ Notice() string }
	if errors.As(err, &n) {
		if msg := n.Notice(); msg != "" {
			return msg
		}
	}
	return fallback
}
