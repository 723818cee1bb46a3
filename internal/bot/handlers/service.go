package handlers

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"time"

	"github.com/Proton-105/strike-bot/internal/betting"
	"github.com/Proton-105/strike-bot/internal/bot/keyboard"
	"github.com/Proton-105/strike-bot/internal/i18n"
	"github.com/Proton-105/strike-bot/internal/render"
	"github.com/Proton-105/strike-bot/internal/resolver"
	"github.com/Proton-105/strike-bot/internal/search"
	"github.com/Proton-105/strike-bot/internal/settlement"
	"github.com/Proton-105/strike-bot/internal/state"
)

// Limiter applies per-action rate limits. A denial is returned as an error
// that carries the user-facing message.
type Limiter interface {
	Allow(ctx context.Context, userID int64, action string) error
}

// Flows selects the engine flow for each entry path.
type Flows struct {
	Quick  betting.Flow
	Guided betting.Flow
}

// DefaultFlows asks for an amount on the guided path only.
var DefaultFlows = Flows{Quick: betting.QuickFlow, Guided: betting.GuidedFlow}

// Deps are the collaborators shared by all handlers.
type Deps struct {
	Store      state.Store
	Engine     *betting.Engine
	Search     *search.Service
	Submitter  settlement.Submitter
	Resolver   resolver.Resolver
	Keyboard   *keyboard.Builder
	Translator i18n.Translator
	Limiter    Limiter
	Flows      *Flows
	Log        *slog.Logger
	// SubmitTimeout caps one delivery, retries included.
	SubmitTimeout time.Duration
}

// Service holds the bot actions.
type Service struct {
	store     state.Store
	engine    *betting.Engine
	search    *search.Service
	submitter settlement.Submitter
	resolver  resolver.Resolver
	kb        *keyboard.Builder
	tr        i18n.Translator
	limiter   Limiter
	flows     Flows
	log       *slog.Logger

	submitTimeout time.Duration
	now           func() time.Time
}

const (
	defaultSubmitTimeout = 90 * time.Second
	// submitMarkerGrace covers the outcome write after a delivery times out.
	submitMarkerGrace = 30 * time.Second
)

var (
	// errSubmitFailed marks a delivery failure; the cart is kept.
	errSubmitFailed = errors.New("submission delivery failed")
	// errSubmitInFlight rejects input while the user's cart is being delivered.
	errSubmitInFlight = errors.New("submission already in flight")
)

func NewService(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	tr := d.Translator
	if tr == nil {
		tr = i18n.Default()
	}
	kb := d.Keyboard
	if kb == nil {
		kb = keyboard.NewBuilder(tr, log)
	}
	flows := DefaultFlows
	if d.Flows != nil {
		flows = *d.Flows
	}
	submitter := d.Submitter
	if submitter == nil {
		submitter = settlement.NewLogSubmitter(log)
	}
	submitTimeout := d.SubmitTimeout
	if submitTimeout <= 0 {
		submitTimeout = defaultSubmitTimeout
	}

	return &Service{
		store:     d.Store,
		engine:    d.Engine,
		search:    d.Search,
		submitter: submitter,
		resolver:  d.Resolver,
		kb:        kb,
		tr:        tr,
		limiter:   d.Limiter,
		flows:     flows,
		log:       log.With(slog.String("component", "handlers")),

		submitTimeout: submitTimeout,
		now:           time.Now,
	}
}

func (s *Service) allow(ctx context.Context, userID int64, action string) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Allow(ctx, userID, action)
}

// runEngine applies one input under the user's lock and switches the user
// into betting mode. A submission produced by the step is delivered outside
// the lock; the cart is cleared only once delivery succeeds.
func (s *Service) runEngine(ctx context.Context, userID int64, in betting.Input) ([]Message, error) {
	return s.runEngineWith(ctx, userID, func(*betting.Session) betting.Input { return in })
}

// runEngineWith picks the input under the lock, from the session as stored.
func (s *Service) runEngineWith(ctx context.Context, userID int64, pick func(*betting.Session) betting.Input) ([]Message, error) {
	var (
		step  betting.Step
		after betting.Session
	)

	_, err := s.store.Update(ctx, userID, func(st *state.UserState) error {
		now := s.now()
		if st.SubmissionInFlight(now.Add(-s.submitTimeout - submitMarkerGrace)) {
			return errSubmitInFlight
		}

		st.Mode = state.ModeBetting
		st.Submitting = nil
		before := st.Session.Clone()
		step = s.engine.Handle(ctx, &st.Session, pick(&st.Session))
		if step.Submission == nil {
			return nil
		}

		// The stored cart stays as it was until the delivery outcome is known.
		after = st.Session
		st.Session = before
		st.Submitting = &now
		return nil
	})
	if errors.Is(err, errSubmitInFlight) {
		s.log.DebugContext(ctx, "input dropped, submission in flight", slog.Int64("user_id", userID))
		return s.text("finalize.in_progress"), nil
	}
	if err != nil {
		return nil, err
	}

	if step.Submission != nil {
		err := s.deliver(ctx, userID, step.Submission, after)
		if errors.Is(err, errSubmitFailed) {
			return []Message{{Text: s.tr.T("finalize.submit_failed"), Markup: s.kb.Choices([]betting.Choice{
				{Label: s.tr.T("buttons.confirm_cart"), Action: betting.ActionCart, Value: betting.CartConfirm},
			})}}, nil
		}
		if err != nil {
			return nil, err
		}
	}

	if step.Rejection != nil {
		s.log.DebugContext(ctx, "input rejected",
			slog.Int64("user_id", userID),
			slog.String("kind", betting.RejectionKind(step.Rejection)),
		)
	}

	return s.stepMessages(step), nil
}

// deliver submits and then records the outcome: the finalized session on
// success, the untouched cart on failure. Either way the in-flight marker
// is cleared.
func (s *Service) deliver(ctx context.Context, userID int64, sub *betting.Submission, after betting.Session) error {
	submitCtx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	submitErr := s.submitter.Submit(submitCtx, sub)
	cancel()
	if submitErr != nil {
		s.log.ErrorContext(ctx, "submission failed, cart kept",
			slog.Int64("user_id", userID),
			slog.Any("error", submitErr),
		)
	}

	_, err := s.store.Update(context.WithoutCancel(ctx), userID, func(st *state.UserState) error {
		st.Submitting = nil
		if submitErr == nil {
			st.Session = after
		}
		return nil
	})
	if err != nil {
		s.log.ErrorContext(ctx, "failed to record submission outcome",
			slog.Int64("user_id", userID),
			slog.Bool("submitted", submitErr == nil),
			slog.Any("error", err),
		)
		if submitErr == nil {
			return err
		}
	}

	if submitErr != nil {
		return errSubmitFailed
	}
	return nil
}

func (s *Service) stepMessages(step betting.Step) []Message {
	msgs := make([]Message, 0, len(step.Replies))
	for _, r := range step.Replies {
		msgs = append(msgs, s.replyMessage(r))
	}
	return msgs
}

func (s *Service) replyMessage(r betting.Reply) Message {
	m := Message{Text: r.Text, Markup: s.kb.Choices(r.Choices)}
	if !r.Table.Empty() {
		m.Text = tableText(r.Text, r.Table)
		m.HTML = true
	}
	return m
}

// tableText renders an optional caption above a pre-formatted table.
func tableText(caption string, t *render.Table) string {
	if caption == "" {
		return t.HTML()
	}
	return html.EscapeString(caption) + "\n" + t.HTML()
}

func (s *Service) text(key string, args ...any) []Message {
	return []Message{{Text: s.tr.Tf(key, args...)}}
}

// setMode switches the user's mode without touching the betting session.
func (s *Service) setMode(ctx context.Context, userID int64, mode state.Mode) error {
	_, err := s.store.Update(ctx, userID, func(st *state.UserState) error {
		st.Mode = mode
		return nil
	})
	return err
}

// inProgress reports whether the engine is waiting on the user.
func inProgress(p betting.Phase) bool {
	return p == betting.PhaseAwaitingField || p == betting.PhaseAwaitingWagerAmount
}
