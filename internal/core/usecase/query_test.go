package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/unimate/docqa/internal/core/domain"
)

func newAskFixture(vector *vectorFake, generator *generatorFake, deadline time.Duration) *AskQuestionUseCase {
	embedder := &embedderFake{queryVec: []float32{0.5, 0.5}}
	retriever := NewRetriever(embedder, vector, 3, 0.25)
	return NewAskQuestionUseCase(retriever, NewPromptBuilder(6000), generator, deadline)
}

func TestAskCompletesWithSources(t *testing.T) {
	vector := &vectorFake{scored: scoredEntries(0.9, 0.7)}
	generator := &generatorFake{text: "Alpha is the first letter."}
	uc := newAskFixture(vector, generator, time.Minute)

	answer, err := uc.Ask(context.Background(), domain.Question{Text: "what is alpha?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.State != domain.QueryCompleted {
		t.Fatalf("state = %q, want completed", answer.State)
	}
	if answer.Text != "Alpha is the first letter." {
		t.Fatalf("answer text = %q", answer.Text)
	}
	if len(answer.Sources.Passages) != 2 {
		t.Fatalf("sources = %d, want 2", len(answer.Sources.Passages))
	}
	if len(generator.prompts) != 1 || !strings.Contains(generator.prompts[0], "what is alpha?") {
		t.Fatalf("generator prompt missing question: %v", generator.prompts)
	}
	if answer.Elapsed <= 0 {
		t.Fatalf("elapsed = %v, want positive", answer.Elapsed)
	}
}

func TestAskEmptyQuestionFailsWithoutPipeline(t *testing.T) {
	vector := &vectorFake{}
	generator := &generatorFake{text: "never"}
	uc := newAskFixture(vector, generator, time.Minute)

	answer, err := uc.Ask(context.Background(), domain.Question{Text: "   "})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("Ask() error = %v, want ErrInvalidInput", err)
	}
	if answer == nil || answer.State != domain.QueryFailed {
		t.Fatalf("answer = %+v, want failed state", answer)
	}
	if len(vector.queried) != 0 || len(generator.prompts) != 0 {
		t.Fatalf("empty question must not touch the pipeline")
	}
}

func TestAskNoEvidenceCompletesWithoutGenerator(t *testing.T) {
	vector := &vectorFake{scored: scoredEntries(0.1)}
	generator := &generatorFake{text: "should not run"}
	uc := newAskFixture(vector, generator, time.Minute)

	answer, err := uc.Ask(context.Background(), domain.Question{Text: "anything indexed?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.State != domain.QueryCompleted {
		t.Fatalf("state = %q, want completed", answer.State)
	}
	if len(generator.prompts) != 0 {
		t.Fatalf("generator must not be invoked without evidence")
	}
	if !answer.Sources.Empty() {
		t.Fatalf("sources should be empty, got %d", len(answer.Sources.Passages))
	}
	if answer.Text == "" {
		t.Fatalf("no-evidence completion must still carry an answer text")
	}
}

func TestAskGeneratorDeadlineIsTimedOut(t *testing.T) {
	vector := &vectorFake{scored: scoredEntries(0.9)}
	generator := &generatorFake{delay: true}
	uc := newAskFixture(vector, generator, 20*time.Millisecond)

	answer, err := uc.Ask(context.Background(), domain.Question{Text: "slow one"})
	if !domain.IsKind(err, domain.ErrQueryTimeout) {
		t.Fatalf("Ask() error = %v, want ErrQueryTimeout", err)
	}
	if answer.State != domain.QueryTimedOut {
		t.Fatalf("state = %q, want timed_out", answer.State)
	}
	if answer.ErrorKind != "query_timeout" {
		t.Fatalf("error kind = %q, want query_timeout", answer.ErrorKind)
	}
	if len(answer.Sources.Passages) != 1 {
		t.Fatalf("timed-out answer should keep the retrieval for diagnostics")
	}
}

func TestAskGeneratorModelTimeoutIsTimedOut(t *testing.T) {
	vector := &vectorFake{scored: scoredEntries(0.9)}
	generator := &generatorFake{err: domain.WrapError(domain.ErrGenerationTimeout, "generate", context.DeadlineExceeded)}
	uc := newAskFixture(vector, generator, time.Minute)

	answer, err := uc.Ask(context.Background(), domain.Question{Text: "q"})
	if !domain.IsKind(err, domain.ErrQueryTimeout) {
		t.Fatalf("Ask() error = %v, want ErrQueryTimeout", err)
	}
	if answer.State != domain.QueryTimedOut {
		t.Fatalf("state = %q, want timed_out", answer.State)
	}
}

func TestAskGeneratorUnavailableIsFailed(t *testing.T) {
	vector := &vectorFake{scored: scoredEntries(0.9)}
	generator := &generatorFake{err: domain.WrapError(domain.ErrGenerationUnavailable, "generate", context.Canceled)}
	uc := newAskFixture(vector, generator, time.Minute)

	answer, err := uc.Ask(context.Background(), domain.Question{Text: "q"})
	if !domain.IsKind(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("Ask() error = %v, want ErrGenerationUnavailable", err)
	}
	if answer.State != domain.QueryFailed {
		t.Fatalf("state = %q, want failed", answer.State)
	}
	if answer.ErrorKind != "generation_unavailable" {
		t.Fatalf("error kind = %q", answer.ErrorKind)
	}
	if len(answer.Sources.Passages) != 1 {
		t.Fatalf("failed answer should keep the retrieval for diagnostics")
	}
}

func TestAskRetrievalFailurePropagates(t *testing.T) {
	vector := &vectorFake{queryErr: domain.WrapError(domain.ErrIndex, "search", context.Canceled)}
	generator := &generatorFake{}
	uc := newAskFixture(vector, generator, time.Minute)

	answer, err := uc.Ask(context.Background(), domain.Question{Text: "q"})
	if !domain.IsKind(err, domain.ErrIndex) {
		t.Fatalf("Ask() error = %v, want ErrIndex", err)
	}
	if answer.State != domain.QueryFailed {
		t.Fatalf("state = %q, want failed", answer.State)
	}
	if len(generator.prompts) != 0 {
		t.Fatalf("generator must not run after retrieval failure")
	}
}
