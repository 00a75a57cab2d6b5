package consensus

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"accord/internal/llm"
	"accord/internal/logging"
)

// Mode selects how much cross-checking a session performs.
type Mode string

const (
	// ModeFast runs a single round and picks the better answer without
	// gating. It never attempts revision.
	ModeFast Mode = "fast"
	// ModeRobust gates every round and revises until consensus or the
	// round cap.
	ModeRobust Mode = "robust"
)

const (
	// DefaultRobustIterations is the robust-mode round cap when the caller
	// does not set one.
	DefaultRobustIterations = 5
	// MaxIterations bounds the caller-supplied round cap.
	MaxIterations = 20

	answerPreviewChars = 400
)

// SessionOptions configures one consensus session.
type SessionOptions struct {
	Mode       Mode
	Iterations int
}

// normalize validates the options and resolves defaults. Fast mode always
// runs exactly one round.
func (o SessionOptions) normalize() (SessionOptions, error) {
	switch o.Mode {
	case "":
		o.Mode = ModeRobust
	case ModeFast, ModeRobust:
	default:
		return o, fmt.Errorf("invalid mode %q: must be %q or %q", o.Mode, ModeFast, ModeRobust)
	}
	if o.Mode == ModeFast {
		o.Iterations = 1
		return o, nil
	}
	if o.Iterations == 0 {
		o.Iterations = DefaultRobustIterations
	}
	if o.Iterations < 1 || o.Iterations > MaxIterations {
		return o, fmt.Errorf("invalid iterations %d: must be in [1, %d]", o.Iterations, MaxIterations)
	}
	return o, nil
}

// Engine runs consensus sessions over two configured agents. The engine is
// stateless across sessions; the per-agent concurrency limiters wrapped
// around the clients are the only state shared between concurrent sessions.
type Engine struct {
	clients map[AgentID]llm.Client
	configs map[AgentID]AgentConfig
	logger  logging.Logger
}

// NewEngine validates that both agents have a transport client and returns a
// ready engine. Missing clients fail here, before any session starts.
func NewEngine(clients map[AgentID]llm.Client, configs map[AgentID]AgentConfig, logger logging.Logger) (*Engine, error) {
	if configs == nil {
		configs = DefaultAgentConfigs()
	}
	for _, id := range []AgentID{AgentPrimary, AgentSecondary} {
		if clients[id] == nil {
			return nil, fmt.Errorf("no client configured for agent %q", id)
		}
		if _, ok := configs[id]; !ok {
			return nil, fmt.Errorf("no config for agent %q", id)
		}
	}
	return &Engine{
		clients: clients,
		configs: configs,
		logger:  logging.OrNop(logger),
	}, nil
}

// session owns one run's mutable state: the two conversation histories and
// the current round's answers and reviews. Nothing here is shared.
type session struct {
	engine    *Engine
	query     string
	opts      SessionOptions
	sink      Sink
	histories map[AgentID][]llm.Message
	calls     atomic.Int64
}

// Result is the terminal outcome of a session, also delivered on the event
// stream.
type Result struct {
	Answer     Answer
	Consensus  bool
	Iterations int
	CallCount  int
	Confidence float64
}

// Run executes one consensus session to its terminal state, emitting
// progress events on sink in the documented order. The returned Result
// duplicates the terminal event for callers that want a value; transport
// errors classified permanent abort the session after an error event.
func (e *Engine) Run(ctx context.Context, query string, opts SessionOptions, sink Sink) (*Result, error) {
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = NopSink()
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}

	s := &session{
		engine: e,
		query:  query,
		opts:   opts,
		sink:   sink,
		histories: map[AgentID][]llm.Message{
			AgentPrimary:   {{Role: "user", Content: BuildSolvePrompt(query, AgentPrimary)}},
			AgentSecondary: {{Role: "user", Content: BuildSolvePrompt(query, AgentSecondary)}},
		},
	}

	result, err := s.run(ctx)
	if err != nil {
		sink.Emit(Event{Type: EventError, Message: err.Error(), CallCount: s.callCount()})
		return nil, err
	}
	return result, nil
}

func (s *session) run(ctx context.Context) (*Result, error) {
	log := s.engine.logger
	log.Info("session start: mode=%s iterations=%d query_chars=%d", s.opts.Mode, s.opts.Iterations, len(s.query))
	s.sink.Emit(Event{Type: EventStatus, Message: fmt.Sprintf("starting %s session", s.opts.Mode)})

	budget := TokenBudgetForQuery(s.query)

	var answerA, answerB Answer
	var reviewOfA, reviewOfB *Review

	for round := 1; round <= s.opts.Iterations; round++ {
		s.sink.Emit(Event{Type: EventIteration, Iteration: round})

		var err error
		answerA, answerB, err = s.solveRound(ctx, round, budget)
		if err != nil {
			return nil, err
		}

		reviewOfA, reviewOfB, err = s.reviewRound(ctx, round, answerA, answerB)
		if err != nil {
			return nil, err
		}

		if s.opts.Mode == ModeFast {
			log.Info("fast mode: selecting after single round")
			return s.finishConsensus(round, answerA, answerB, reviewOfA, reviewOfB), nil
		}

		if Accept(reviewOfA, answerA) && Accept(reviewOfB, answerB) {
			log.Info("consensus reached in round %d", round)
			return s.finishConsensus(round, answerA, answerB, reviewOfA, reviewOfB), nil
		}

		if round < s.opts.Iterations {
			log.Info("round %d rejected, revising", round)
			s.sink.Emit(Event{Type: EventStatus, Iteration: round, Message: "revising"})
			s.extendForRevision(answerA, answerB, reviewOfA, reviewOfB)
		}
	}

	log.Warn("round cap reached without consensus, falling back")
	best := PickFallback(answerA, answerB, reviewOfA, reviewOfB)
	confidence := s.pickedConfidence(best, reviewOfA, reviewOfB)
	s.sink.Emit(Event{
		Type:       EventFallback,
		Iteration:  s.opts.Iterations,
		Agent:      best.Agent,
		Answer:     best.Text,
		Truncated:  best.Truncated,
		Confidence: confidence,
		CallCount:  s.callCount(),
		Message:    "no consensus: best-effort answer",
	})
	return &Result{
		Answer:     best,
		Consensus:  false,
		Iterations: s.opts.Iterations,
		CallCount:  s.callCount(),
		Confidence: confidence,
	}, nil
}

// solveRound issues both solve calls concurrently and emits the step and
// answer events in the fixed order once both complete.
func (s *session) solveRound(ctx context.Context, round, budget int) (Answer, Answer, error) {
	s.sink.Emit(Event{Type: EventStep, Iteration: round, Agent: AgentPrimary, Message: "solving"})
	s.sink.Emit(Event{Type: EventStep, Iteration: round, Agent: AgentSecondary, Message: "solving"})

	var answerA, answerB Answer
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		answer, err := s.solve(groupCtx, AgentPrimary, budget)
		answerA = answer
		return err
	})
	group.Go(func() error {
		answer, err := s.solve(groupCtx, AgentSecondary, budget)
		answerB = answer
		return err
	})
	if err := group.Wait(); err != nil {
		return Answer{}, Answer{}, err
	}
	for _, answer := range []Answer{answerA, answerB} {
		s.sink.Emit(Event{
			Type:      EventAnswer,
			Iteration: round,
			Agent:     answer.Agent,
			Answer:    previewAnswer(answer.Text, answerPreviewChars),
			Truncated: answer.Truncated,
		})
	}
	return answerA, answerB, nil
}

// solve runs one agent's solve or revision call over its conversation
// history. The completion marker doubles as the stop sequence; when the
// provider stops on it the marker is consumed upstream, so it is restored
// here before normalization.
func (s *session) solve(ctx context.Context, id AgentID, budget int) (Answer, error) {
	cfg := s.engine.configs[id]
	s.calls.Add(1)
	resp, err := s.engine.clients[id].Complete(ctx, llm.CompletionRequest{
		Messages:      s.histories[id],
		MaxTokens:     budget,
		Temperature:   cfg.Temperature,
		StopSequences: []string{CompletionMarker},
	})
	if err != nil {
		return Answer{}, fmt.Errorf("agent %s solve: %w", id, err)
	}
	content := resp.Content
	if resp.StopReason == llm.StopReasonStop && content != "" {
		content = EnsureCompletionMarker(content)
	}
	return NewAnswer(id, content), nil
}

// reviewRound has each agent judge the other's answer, concurrently, then
// emits both review events in the fixed order with divergence telemetry.
func (s *session) reviewRound(ctx context.Context, round int, answerA, answerB Answer) (*Review, *Review, error) {
	var byPrimary, bySecondary *Review
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		review, err := s.review(groupCtx, AgentPrimary, answerB)
		byPrimary = review
		return err
	})
	group.Go(func() error {
		review, err := s.review(groupCtx, AgentSecondary, answerA)
		bySecondary = review
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	similarity := SimilarityRatio(answerA.Text, answerB.Text)
	for _, r := range []struct {
		reviewer AgentID
		review   *Review
	}{
		{AgentPrimary, byPrimary},
		{AgentSecondary, bySecondary},
	} {
		event := Event{
			Type:       EventReview,
			Iteration:  round,
			Reviewer:   r.reviewer,
			Agent:      r.reviewer.Other(),
			Review:     r.review,
			Similarity: similarity,
		}
		if r.review == nil {
			event.Message = "review unparseable, pessimistic default applies"
		}
		s.sink.Emit(event)
	}

	// The secondary's judgment covers A's answer and vice versa.
	return bySecondary, byPrimary, nil
}

// review issues one cross-review call. Unparseable output gets exactly one
// retry with a corrective instruction; a second failure yields an absent
// review and the pessimistic default downstream. Review calls carry no stop
// sequence since JSON, not the marker, terminates the response.
func (s *session) review(ctx context.Context, reviewer AgentID, subject Answer) (*Review, error) {
	cfg := s.engine.configs[reviewer]
	prompt := BuildReviewPrompt(s.query, subject.Text, reviewer)

	for attempt := 0; attempt < 2; attempt++ {
		content := prompt
		if attempt == 1 {
			content = ReviewRetryInstruction + prompt
		}
		s.calls.Add(1)
		resp, err := s.engine.clients[reviewer].Complete(ctx, llm.CompletionRequest{
			Messages:    []llm.Message{{Role: "user", Content: content}},
			MaxTokens:   reviewTokenBudget,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("agent %s review: %w", reviewer, err)
		}
		if review, ok := ParseReview(resp.Content); ok {
			return &review, nil
		}
		s.engine.logger.Warn("agent %s review unparseable (attempt %d)", reviewer, attempt+1)
	}
	return nil, nil
}

// extendForRevision appends each agent's own answer as an assistant turn and
// a revision prompt built from the opposing critique. Absent reviews feed the
// fixed pessimistic critique instead.
func (s *session) extendForRevision(answerA, answerB Answer, reviewOfA, reviewOfB *Review) {
	critiqueOf := func(review *Review) Review {
		if review == nil {
			return PessimisticReview()
		}
		return *review
	}
	s.histories[AgentPrimary] = append(s.histories[AgentPrimary],
		llm.Message{Role: "assistant", Content: answerA.Raw},
		llm.Message{Role: "user", Content: BuildRevisionPrompt(s.query, AgentPrimary, answerB.Text, critiqueOf(reviewOfA))},
	)
	s.histories[AgentSecondary] = append(s.histories[AgentSecondary],
		llm.Message{Role: "assistant", Content: answerB.Raw},
		llm.Message{Role: "user", Content: BuildRevisionPrompt(s.query, AgentSecondary, answerA.Text, critiqueOf(reviewOfB))},
	)
}

func (s *session) finishConsensus(round int, answerA, answerB Answer, reviewOfA, reviewOfB *Review) *Result {
	best := PickBest(answerA, answerB, reviewOfA, reviewOfB)
	confidence := s.pickedConfidence(best, reviewOfA, reviewOfB)
	s.sink.Emit(Event{
		Type:       EventConsensus,
		Iteration:  round,
		Agent:      best.Agent,
		Answer:     best.Text,
		Truncated:  best.Truncated,
		Confidence: confidence,
		CallCount:  s.callCount(),
	})
	return &Result{
		Answer:     best,
		Consensus:  true,
		Iterations: round,
		CallCount:  s.callCount(),
		Confidence: confidence,
	}
}

func (s *session) callCount() int {
	return int(s.calls.Load())
}

func (s *session) pickedConfidence(picked Answer, reviewOfA, reviewOfB *Review) float64 {
	if picked.Agent == AgentPrimary {
		return ReviewConfidence(reviewOfA)
	}
	return ReviewConfidence(reviewOfB)
}
