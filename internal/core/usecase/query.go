package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/unimate/docqa/internal/core/domain"
	"github.com/unimate/docqa/internal/core/ports"
)

const noEvidenceAnswer = "I could not find any passages in the indexed documents that are relevant to this question."

// AskQuestionUseCase drives one question through retrieval, prompt assembly
// and generation under a single global deadline. The deadline is measured
// with a monotonic clock from the moment the question is received and flows
// down to every stage through the context, so total wall time never exceeds
// it. Each query reaches exactly one terminal state: completed, failed, or
// timed out. The returned Answer is populated even on failure so callers
// can see the retrieval that preceded the error.
type AskQuestionUseCase struct {
	retriever *Retriever
	prompts   *PromptBuilder
	generator ports.Generator
	deadline  time.Duration
}

func NewAskQuestionUseCase(
	retriever *Retriever,
	prompts *PromptBuilder,
	generator ports.Generator,
	deadline time.Duration,
) *AskQuestionUseCase {
	if deadline <= 0 {
		deadline = 120 * time.Second
	}
	return &AskQuestionUseCase{
		retriever: retriever,
		prompts:   prompts,
		generator: generator,
		deadline:  deadline,
	}
}

func (uc *AskQuestionUseCase) Ask(ctx context.Context, question domain.Question) (*domain.Answer, error) {
	if strings.TrimSpace(question.Text) == "" {
		answer := &domain.Answer{State: domain.QueryFailed, ErrorKind: domain.ErrorKind(domain.ErrInvalidInput)}
		return answer, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is empty"))
	}

	started := time.Now()
	ctx, cancel := context.WithDeadline(ctx, started.Add(uc.deadline))
	defer cancel()

	state := domain.QueryReceived
	advance := func(next domain.QueryState) {
		slog.Debug("query_state", "from", string(state), "to", string(next))
		state = next
	}

	advance(domain.QueryRetrieving)
	retrieved, err := uc.retriever.Retrieve(ctx, question)
	if err != nil {
		return uc.terminal(started, state, domain.RetrievalResult{}, err)
	}

	advance(domain.QueryPrompting)
	if retrieved.Empty() {
		// No evidence cleared the relevance floor. Completing with an
		// explicit no-evidence answer beats asking the model to guess.
		return &domain.Answer{
			Text:    noEvidenceAnswer,
			Sources: retrieved,
			Elapsed: time.Since(started),
			State:   domain.QueryCompleted,
		}, nil
	}
	prompt := uc.prompts.Build(question.Text, retrieved)

	advance(domain.QueryGenerating)
	text, err := uc.generator.Complete(ctx, prompt)
	if err != nil {
		return uc.terminal(started, state, retrieved, err)
	}

	return &domain.Answer{
		Text:    text,
		Sources: retrieved,
		Elapsed: time.Since(started),
		State:   domain.QueryCompleted,
	}, nil
}

// terminal classifies a stage error into exactly one terminal state.
// Deadline expiry is reported as timed out, distinct from failure, so the
// caller knows a retry with a fresh deadline may succeed. The retrieval
// computed so far rides along for diagnostics.
func (uc *AskQuestionUseCase) terminal(
	started time.Time,
	stage domain.QueryState,
	retrieved domain.RetrievalResult,
	err error,
) (*domain.Answer, error) {
	elapsed := time.Since(started)

	if deadlineHit(err) {
		wrapped := domain.WrapError(domain.ErrQueryTimeout, string(stage), err)
		slog.Warn("query_timed_out", "stage", string(stage), "elapsed_ms", elapsed.Milliseconds())
		return &domain.Answer{
			Sources:   retrieved,
			Elapsed:   elapsed,
			State:     domain.QueryTimedOut,
			ErrorKind: domain.ErrorKind(wrapped),
		}, wrapped
	}

	slog.Warn("query_failed", "stage", string(stage), "kind", domain.ErrorKind(err), "error", err)
	return &domain.Answer{
		Sources:   retrieved,
		Elapsed:   elapsed,
		State:     domain.QueryFailed,
		ErrorKind: domain.ErrorKind(err),
	}, err
}

func deadlineHit(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrGenerationTimeout)
}
