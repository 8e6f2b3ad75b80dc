package router

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/phrazzld/scry-tutor/internal/config"
	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/phrazzld/scry-tutor/internal/events"
	"github.com/phrazzld/scry-tutor/internal/generation"
	"github.com/phrazzld/scry-tutor/internal/platform/keylock"
	"github.com/phrazzld/scry-tutor/internal/platform/logger"
	"github.com/phrazzld/scry-tutor/internal/scheduler"
)

// Policy defaults used when the corresponding config field is zero.
const (
	DefaultTopicShiftMinTurns = 5
	DefaultHistoryWindow      = 10
	DefaultContentTimeout     = 30 * time.Second
	DefaultProfileTimeout     = 10 * time.Second
	DefaultNoteTimeout        = 10 * time.Second
	DefaultInitialMastery     = 0.5
)

// ConceptResolver maps free text to a registered concept.
type ConceptResolver interface {
	// Resolve returns domain.ErrUnresolvedConcept when nothing matches.
	Resolve(ctx context.Context, text string) (domain.ConceptID, error)
}

// ConceptCatalog answers questions about the concepts currently registered.
type ConceptCatalog interface {
	// Title returns the display title used in content requests.
	Title(id domain.ConceptID) string
	Contains(id domain.ConceptID) bool
}

// CandidateResolver is implemented by resolvers that can list every concept
// a message names, best match first. The engine uses it to find the concept
// a learner pivots to when the best match is the one already being taught.
type CandidateResolver interface {
	Candidates(ctx context.Context, text string) ([]domain.ConceptID, error)
}

// Dependencies are the collaborators an Engine routes between.
// Resolver, Scheduler and Content are required.
type Dependencies struct {
	Resolver  ConceptResolver
	Scheduler scheduler.Scheduler
	Content   generation.ContentGenerator

	// Optional collaborators; nil disables them.
	Notes    generation.NoteExtractor
	Profiler generation.Profiler
	Catalog  ConceptCatalog
	Events   events.EventEmitter

	// Sessions defaults to an in-memory store.
	Sessions SessionStore
}

// TurnResult is everything the caller needs to render a turn.
type TurnResult struct {
	TurnID uuid.UUID `json:"turn_id"`

	// Concept is the active concept after the turn, empty when idle.
	Concept domain.ConceptID `json:"concept,omitempty"`

	// Revisions are at-risk prerequisites of a concept entered on this turn,
	// most at risk first.
	Revisions []domain.RevisionCandidate `json:"revisions"`

	Completed        bool               `json:"completed"`
	CompletedConcept domain.ConceptID   `json:"completed_concept,omitempty"`
	Outcome          domain.TurnOutcome `json:"outcome"`
	State            State              `json:"state"`

	Content *domain.Content       `json:"content,omitempty"`
	Notes   []domain.NoteBlock    `json:"notes,omitempty"`
	Profile *domain.ProfileSignal `json:"profile,omitempty"`

	// Degraded lists best-effort steps that failed on this turn.
	Degraded []Degradation `json:"degraded,omitempty"`
}

// Engine routes user turns. It is safe for concurrent use; turns for the same
// user are processed one at a time, turns for different users in parallel.
type Engine struct {
	cfg config.RouterConfig

	resolver  ConceptResolver
	scheduler scheduler.Scheduler
	content   generation.ContentGenerator
	notes     generation.NoteExtractor
	profiler  generation.Profiler
	catalog   ConceptCatalog
	events    events.EventEmitter
	sessions  SessionStore

	detector completionDetector
	locks    *keylock.Locker[uuid.UUID]
	logger   *slog.Logger
}

// NewEngine creates an Engine. It will panic if a required dependency is nil.
func NewEngine(cfg config.RouterConfig, deps Dependencies, logger *slog.Logger) *Engine {
	if deps.Resolver == nil {
		panic("resolver cannot be nil")
	}
	if deps.Scheduler == nil {
		panic("scheduler cannot be nil")
	}
	if deps.Content == nil {
		panic("content generator cannot be nil")
	}
	if deps.Sessions == nil {
		deps.Sessions = NewMemorySessionStore()
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg = withDefaults(cfg)
	return &Engine{
		cfg:       cfg,
		resolver:  deps.Resolver,
		scheduler: deps.Scheduler,
		content:   deps.Content,
		notes:     deps.Notes,
		profiler:  deps.Profiler,
		catalog:   deps.Catalog,
		events:    deps.Events,
		sessions:  deps.Sessions,
		detector:  newCompletionDetector(cfg.CompletionPhrases, cfg.TopicShiftMinTurns),
		locks:     keylock.New[uuid.UUID](),
		logger:    logger.With(slog.String("component", "turn_router")),
	}
}

func withDefaults(cfg config.RouterConfig) config.RouterConfig {
	if cfg.TopicShiftMinTurns <= 0 {
		cfg.TopicShiftMinTurns = DefaultTopicShiftMinTurns
	}
	if cfg.HistoryWindow < cfg.TopicShiftMinTurns {
		cfg.HistoryWindow = max(DefaultHistoryWindow, cfg.TopicShiftMinTurns)
	}
	if cfg.ContentTimeout <= 0 {
		cfg.ContentTimeout = DefaultContentTimeout
	}
	if cfg.ProfileTimeout <= 0 {
		cfg.ProfileTimeout = DefaultProfileTimeout
	}
	if cfg.NoteTimeout <= 0 {
		cfg.NoteTimeout = DefaultNoteTimeout
	}
	if cfg.InitialMastery <= 0 {
		cfg.InitialMastery = DefaultInitialMastery
	}
	return cfg
}

// Session returns a copy of the user's current session.
func (e *Engine) Session(ctx context.Context, userID uuid.UUID) (*Session, error) {
	return e.sessions.Load(ctx, userID)
}

// HandleTurn routes one user message.
//
// Parameters:
//   - ctx: cancels the turn; cancellation observed before a completion is
//     committed leaves all state untouched
//   - userID: the learner
//   - message: raw user text
//   - now: the turn's logical time, used for mastery writes and retention
//
// Returns:
//   - the turn result, possibly with Degraded entries
//   - a *TurnError wrapping domain.ErrUnresolvedConcept when an idle session
//     receives a message that names no concept
//   - a *TurnError wrapping domain.ErrUnknownConcept, store errors or the
//     content generator's error when the turn cannot proceed
func (e *Engine) HandleTurn(ctx context.Context, userID uuid.UUID, message string, now time.Time) (res *TurnResult, err error) {
	start := time.Now()

	if userID == uuid.Nil {
		return nil, newTurnError(stageValidate, "user ID cannot be empty", domain.ErrValidation)
	}
	if strings.TrimSpace(message) == "" {
		return nil, newTurnError(stageValidate, "message cannot be empty", ErrEmptyMessage)
	}

	unlock, err := e.locks.Lock(ctx, userID)
	if err != nil {
		return nil, newTurnError(stageQueue, "cancelled while waiting for the previous turn", err)
	}
	defer unlock()

	turnID := uuid.New()
	log := e.logger.With(
		slog.String("user_id", userID.String()),
		slog.String("turn_id", turnID.String()))
	ctx = logger.WithContext(ctx, log)

	ctx, span := tracer.Start(ctx, "router.HandleTurn", trace.WithAttributes(
		attribute.String("user_id", userID.String()),
		attribute.String("turn_id", turnID.String())))
	defer func() {
		outcome := "error"
		switch {
		case err == nil:
			outcome = string(res.Outcome)
			span.SetAttributes(
				attribute.String("outcome", outcome),
				attribute.String("state", res.State.String()))
		case errors.Is(err, domain.ErrUnresolvedConcept):
			outcome = "unresolved"
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		turnsTotal.WithLabelValues(outcome).Inc()
		turnDuration.Observe(time.Since(start).Seconds())
	}()

	res, err = e.handle(ctx, turnID, userID, message, now)
	if err != nil {
		log.WarnContext(ctx, "turn failed", slog.String("error", err.Error()))
		return nil, err
	}

	log.InfoContext(ctx, "turn handled",
		slog.String("outcome", string(res.Outcome)),
		slog.String("state", res.State.String()),
		slog.Int("revisions", len(res.Revisions)),
		slog.Int("degraded", len(res.Degraded)),
		slog.Duration("duration", time.Since(start)))
	return res, nil
}

func (e *Engine) handle(
	ctx context.Context,
	turnID, userID uuid.UUID,
	message string,
	now time.Time,
) (*TurnResult, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	sess, err := e.sessions.Load(ctx, userID)
	if err != nil {
		return nil, newTurnError(stageSession, "failed to load session", err)
	}
	if sess.MasteryEstimates == nil {
		sess.MasteryEstimates = make(map[domain.ConceptID]float64)
	}
	// A turn interrupted mid-commit left no completion behind.
	if sess.State.Kind == StateAwaitingCompletion {
		sess.State = Teaching(sess.State.Concept)
	}

	resolved, err := e.resolver.Resolve(ctx, message)
	if err != nil {
		if !errors.Is(err, domain.ErrUnresolvedConcept) {
			return nil, newTurnError(stageResolve, "concept resolution failed", err)
		}
		resolved = ""
	}

	turn := domain.TurnContext{
		TurnID:        turnID,
		UserID:        userID,
		Message:       message,
		ActiveConcept: sess.State.Concept,
		RecentTopics:  slices.Clone(sess.RecentTopics),
		Outcome:       domain.TurnContinuing,
	}

	res := &TurnResult{
		TurnID:    turnID,
		Revisions: []domain.RevisionCandidate{},
		Outcome:   domain.TurnContinuing,
	}

	var entered domain.ConceptID
	if sess.State.IsIdle() {
		if resolved.IsZero() {
			return nil, newTurnError(stageResolve, "message does not name a known concept", domain.ErrUnresolvedConcept)
		}
		sess.State = Teaching(resolved)
		entered = resolved
	} else if trig, next := e.detect(ctx, turn, message, resolved); trig != triggerNone {
		resolved = next
		active := sess.State.Concept
		rec, err := e.commit(ctx, sess, active, trig, now)
		if err != nil {
			return nil, err
		}

		res.Completed = true
		res.CompletedConcept = active
		turn.Outcome = trig.outcome()

		if !resolved.IsZero() && resolved != active {
			sess.State = Teaching(resolved)
			entered = resolved
		} else {
			sess.State = Idle()
		}

		log.InfoContext(ctx, "quest completed",
			slog.String("concept_id", active.String()),
			slog.String("trigger", string(trig)),
			slog.Float64("mastery", rec.MasteryLevel),
			slog.Int("review_count", rec.ReviewCount),
			slog.String("next_state", sess.State.String()))

		e.emit(ctx, events.TypeQuestCompleted, turn, active, events.QuestCompletedPayload{
			MasteryLevel: rec.MasteryLevel,
			ReviewCount:  rec.ReviewCount,
			Outcome:      turn.Outcome,
		}, now)
	}
	res.Outcome = turn.Outcome

	if !entered.IsZero() {
		revisions, err := e.scheduler.RevisionsNeededFor(ctx, userID, entered, now)
		switch {
		case err == nil:
			res.Revisions = revisions
			revisionCandidates.Observe(float64(len(revisions)))
		case errors.Is(err, domain.ErrUnknownConcept):
			if res.Completed {
				sess.State = Idle()
				e.saveCommitted(ctx, sess)
			}
			return nil, newTurnError(stageRevisions, "entered concept is not in the graph", err)
		default:
			res.Degraded = append(res.Degraded, Degradation{Collaborator: CollaboratorScheduler, Error: err.Error()})
			dispatchFailures.WithLabelValues(CollaboratorScheduler, failureReason(err)).Inc()
			log.WarnContext(ctx, "revision lookup failed, continuing without revisions",
				slog.String("concept_id", entered.String()),
				slog.String("error", err.Error()))
		}
	}

	// The commit is a fact now; persist it before any collaborator can fail.
	if res.Completed {
		sess.recordTopic(sess.State.Concept, e.cfg.HistoryWindow)
		e.saveCommitted(ctx, sess)
	} else {
		topic := resolved
		if topic.IsZero() {
			topic = sess.State.Concept
		}
		sess.recordTopic(topic, e.cfg.HistoryWindow)
	}

	contentConcept := sess.State.Concept
	if contentConcept.IsZero() {
		contentConcept = res.CompletedConcept
	}
	req := domain.ContentRequest{
		TurnID:    turnID,
		UserID:    userID,
		Concept:   contentConcept,
		Message:   message,
		Revisions: res.Revisions,
		Completed: res.CompletedConcept,
	}
	if e.catalog != nil {
		req.ConceptTitle = e.catalog.Title(contentConcept)
	}

	out, err := e.dispatch(ctx, req, turn)
	if err != nil {
		return nil, err
	}
	res.Content = out.content
	res.Notes = out.notes
	res.Profile = out.profile
	res.Degraded = append(res.Degraded, out.degraded...)

	if p := out.profile; p != nil && p.MasteryEstimate != nil {
		concept := p.Concept
		if concept.IsZero() {
			concept = contentConcept
		}
		switch {
		case concept == res.CompletedConcept:
			// consumed by the completion
		case concept != contentConcept && (e.catalog == nil || !e.catalog.Contains(concept)):
			log.DebugContext(ctx, "ignoring mastery estimate for unregistered concept",
				slog.String("concept_id", concept.String()))
		default:
			sess.MasteryEstimates[concept] = domain.ClampMastery(*p.MasteryEstimate)
		}
	}

	sess.TurnCount++
	sess.UpdatedAt = now
	if err := e.sessions.Save(context.WithoutCancel(ctx), sess); err != nil {
		return nil, newTurnError(stageSession, "failed to save session", err)
	}

	res.State = sess.State
	res.Concept = sess.State.Concept

	if !entered.IsZero() {
		e.emit(ctx, events.TypeConceptEntered, turn, entered, nil, now)
		if len(res.Revisions) > 0 {
			e.emit(ctx, events.TypeRevisionSuggested, turn, entered,
				events.RevisionSuggestedPayload{Candidates: res.Revisions}, now)
		}
	}
	return res, nil
}

// detect runs the completion detector. When the best match for the message is
// the active concept itself, the next best candidate the message names is
// treated as the concept being pivoted to, so "ok I get functions, now explain
// scope" still shifts to scope. It returns the trigger and the concept the
// session should move to once the completion is committed.
func (e *Engine) detect(
	ctx context.Context,
	turn domain.TurnContext,
	message string,
	resolved domain.ConceptID,
) (trigger, domain.ConceptID) {
	trig := e.detector.detect(turn, resolved)
	if resolved.IsZero() || resolved != turn.ActiveConcept {
		return trig, resolved
	}

	pivot := e.pivotCandidate(ctx, message, turn.ActiveConcept)
	if pivot.IsZero() {
		return trig, resolved
	}
	switch {
	case trig == triggerPhrase:
		return trig, pivot
	case trig == triggerNone && e.detector.detect(turn, pivot) == triggerTopicShift:
		return triggerTopicShift, pivot
	}
	return trig, resolved
}

func (e *Engine) pivotCandidate(ctx context.Context, message string, active domain.ConceptID) domain.ConceptID {
	cr, ok := e.resolver.(CandidateResolver)
	if !ok {
		return ""
	}
	candidates, err := cr.Candidates(ctx, message)
	if err != nil {
		return ""
	}
	for _, c := range candidates {
		if c != active {
			return c
		}
	}
	return ""
}

// commit moves the session through AwaitingCompletionSignal and records the
// completion exactly once. On failure the session is restored to
// Teaching(concept) and nothing is committed, unless the concept has left the
// graph, in which case the session drops back to Idle so the learner is not
// stuck on it.
func (e *Engine) commit(
	ctx context.Context,
	sess *Session,
	concept domain.ConceptID,
	trig trigger,
	now time.Time,
) (*domain.MasteryRecord, error) {
	ctx, span := tracer.Start(ctx, "router.commit", trace.WithAttributes(
		attribute.String("concept_id", concept.String()),
		attribute.String("trigger", string(trig))))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, newTurnError(stageCommit, "turn cancelled before completion was committed", err)
	}

	mastery, err := e.completionMastery(ctx, sess, concept)
	if err != nil {
		return nil, newTurnError(stageCommit, "failed to read current mastery", err)
	}

	sess.State = AwaitingCompletion(concept)
	if err := e.sessions.Save(ctx, sess); err != nil {
		sess.State = Teaching(concept)
		return nil, newTurnError(stageSession, "failed to save session", err)
	}

	rec, err := e.scheduler.CompleteQuest(ctx, sess.UserID, concept, mastery, now)
	if err != nil {
		sess.State = Teaching(concept)
		if errors.Is(err, domain.ErrUnknownConcept) {
			sess.State = Idle()
			delete(sess.MasteryEstimates, concept)
			sess.RecentTopics = nil
		}
		if saveErr := e.sessions.Save(context.WithoutCancel(ctx), sess); saveErr != nil {
			logger.FromContextOrDefault(ctx, e.logger).ErrorContext(ctx, "failed to restore session after commit failure",
				slog.String("error", saveErr.Error()))
		}
		span.RecordError(err)
		return nil, newTurnError(stageCommit, "failed to record quest completion", err)
	}

	questCompletions.WithLabelValues(string(trig)).Inc()
	delete(sess.MasteryEstimates, concept)
	sess.RecentTopics = nil
	return rec, nil
}

// completionMastery picks the level recorded on completion: the profiler's
// latest estimate for the concept, else InitialMastery for a first
// completion, else the stored level plus ReviewGain.
func (e *Engine) completionMastery(ctx context.Context, sess *Session, concept domain.ConceptID) (float64, error) {
	if v, ok := sess.MasteryEstimates[concept]; ok {
		return v, nil
	}
	rec, err := e.scheduler.MasteryOf(ctx, sess.UserID, concept)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		return e.cfg.InitialMastery, nil
	}
	return domain.ClampMastery(rec.MasteryLevel + e.cfg.ReviewGain), nil
}

// saveCommitted persists a session after a commit. The commit stands even if
// the save fails, so the error is only logged.
func (e *Engine) saveCommitted(ctx context.Context, sess *Session) {
	sess.UpdatedAt = time.Now()
	if err := e.sessions.Save(context.WithoutCancel(ctx), sess); err != nil {
		logger.FromContextOrDefault(ctx, e.logger).ErrorContext(ctx, "failed to save session after commit",
			slog.String("error", err.Error()))
	}
}

func (e *Engine) emit(
	ctx context.Context,
	eventType string,
	turn domain.TurnContext,
	concept domain.ConceptID,
	payload any,
	now time.Time,
) {
	if e.events == nil {
		return
	}
	log := logger.FromContextOrDefault(ctx, e.logger)

	event, err := events.NewLearningEvent(eventType, turn.UserID, turn.TurnID, concept, payload, now)
	if err != nil {
		log.ErrorContext(ctx, "failed to build learning event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}
	if err := e.events.EmitEvent(context.WithoutCancel(ctx), event); err != nil {
		dispatchFailures.WithLabelValues(CollaboratorEvents, failureReason(err)).Inc()
		log.WarnContext(ctx, "learning event handler failed",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
	}
}
