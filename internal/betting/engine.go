package betting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/strike-bot/internal/dataset"
	"github.com/Proton-105/strike-bot/internal/fuzzy"
	"github.com/Proton-105/strike-bot/internal/i18n"
	"github.com/Proton-105/strike-bot/internal/render"
	"github.com/Proton-105/strike-bot/internal/resolver"
	"github.com/Proton-105/strike-bot/pkg/metrics"
)

// InputKind identifies what the user did.
type InputKind string

const (
	InputDescribe     InputKind = "describe"
	InputAddBet       InputKind = "add_bet"
	InputAnswer       InputKind = "answer"
	InputSubmitAmount InputKind = "submit_amount"
	InputCancel       InputKind = "cancel"
	InputClearCart    InputKind = "clear_cart"
	InputViewCart     InputKind = "view_cart"
	InputConfirmCart  InputKind = "confirm_cart"
)

// Input is one event delivered to the engine.
type Input struct {
	Kind InputKind
	Text string
	Flow Flow
}

func Describe(text string, flow Flow) Input { return Input{Kind: InputDescribe, Text: text, Flow: flow} }
func AddBet(flow Flow) Input                { return Input{Kind: InputAddBet, Flow: flow} }
func Answer(text string) Input              { return Input{Kind: InputAnswer, Text: text} }
func SubmitAmount(text string) Input        { return Input{Kind: InputSubmitAmount, Text: text} }
func Cancel() Input                         { return Input{Kind: InputCancel} }
func ClearCart() Input                      { return Input{Kind: InputClearCart} }
func ViewCart() Input                       { return Input{Kind: InputViewCart} }
func ConfirmCart(flow Flow) Input           { return Input{Kind: InputConfirmCart, Flow: flow} }

// ChoiceAction tells the transport how to route a choice back to the engine.
type ChoiceAction string

const (
	// ActionPick answers the pending field with Value.
	ActionPick ChoiceAction = "pick"
	// ActionCart runs a cart command: confirm, clear or add.
	ActionCart ChoiceAction = "cart"
	// ActionAmount submits Value as the wager amount.
	ActionAmount ChoiceAction = "amt"
)

// Cart command values carried by ActionCart choices.
const (
	CartConfirm = "confirm"
	CartClear   = "clear"
	CartAdd     = "add"
)

type Choice struct {
	Label  string
	Action ChoiceAction
	Value  string
}

// Reply is one message for the transport to render.
type Reply struct {
	Text    string
	Choices []Choice
	Table   *render.Table
}

// Step is the outcome of handling one input.
type Step struct {
	From       Phase
	To         Phase
	Replies    []Reply
	Submission *Submission
	Rejection  error
	LinesAdded int
}

func (s *Step) say(r Reply) {
	s.Replies = append(s.Replies, r)
}

func (s *Step) reject(err error, r Reply) {
	s.Rejection = err
	s.say(r)
}

// Engine runs the bet assembly state machine. It holds no per-user state;
// everything lives in the Session passed to Handle.
type Engine struct {
	catalog  dataset.Catalog
	resolver resolver.Resolver
	tr       i18n.Translator
	log      *slog.Logger
	presets  []decimal.Decimal
}

// CustomAmount is the amount button value that asks the user to type one.
const CustomAmount = "custom"

type Option func(*Engine)

// WithAmountPresets sets the quick amount buttons offered when asking for a wager.
func WithAmountPresets(presets []decimal.Decimal) Option {
	return func(e *Engine) {
		e.presets = presets
	}
}

func NewEngine(catalog dataset.Catalog, res resolver.Resolver, tr i18n.Translator, log *slog.Logger, opts ...Option) *Engine {
	if tr == nil {
		tr = i18n.Default()
	}
	if log == nil {
		log = slog.Default()
	}

	e := &Engine{
		catalog:  catalog,
		resolver: res,
		tr:       tr,
		log:      log.With(slog.String("component", "betting")),
		presets: []decimal.Decimal{
			decimal.NewFromInt(10), decimal.NewFromInt(20), decimal.NewFromInt(50), decimal.NewFromInt(100),
		},
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Handle applies one input to the session and returns what to show the user.
// The session is mutated in place; callers persist it only when they accept
// the step.
func (e *Engine) Handle(ctx context.Context, s *Session, in Input) Step {
	if ctx == nil {
		ctx = context.Background()
	}

	step := Step{From: s.CurrentPhase()}

	switch in.Kind {
	case InputCancel:
		e.cancel(s, &step)
	case InputClearCart:
		e.clearCart(s, &step)
	case InputViewCart:
		e.viewCart(s, &step)
	case InputConfirmCart:
		e.confirmCart(ctx, s, in.Flow, &step)
	default:
		switch step.From {
		case PhaseAwaitingField:
			e.onAwaitingField(ctx, s, in, &step)
		case PhaseAwaitingWagerAmount:
			e.onAwaitingAmount(ctx, s, in, &step)
		default:
			e.onIdle(ctx, s, in, &step)
		}
	}

	step.To = s.CurrentPhase()
	e.observe(ctx, s, in, &step)

	return step
}

func (e *Engine) observe(ctx context.Context, s *Session, in Input, step *Step) {
	if step.From != step.To {
		if !IsTransitionAllowed(step.From, step.To) {
			e.log.WarnContext(ctx, "unexpected phase transition",
				slog.Int64("user_id", s.UserID),
				slog.String("from", string(step.From)),
				slog.String("to", string(step.To)),
				slog.String("input", string(in.Kind)),
			)
		}
		transitionRecorder(string(step.From), string(step.To))
	}

	if step.Rejection != nil {
		kind := RejectionKind(step.Rejection)
		metrics.RecordRejection(kind)
		e.log.DebugContext(ctx, "input rejected",
			slog.Int64("user_id", s.UserID),
			slog.String("kind", kind),
			slog.String("phase", string(step.To)),
		)
	}
}

// onIdle also serves the complete and cancelled phases.
func (e *Engine) onIdle(ctx context.Context, s *Session, in Input, step *Step) {
	switch in.Kind {
	case InputDescribe:
		e.describe(ctx, s, in, step)
	case InputAddBet:
		e.startEmpty(ctx, s, in.Flow, step)
	default:
		step.reject(ErrUnexpectedInput, Reply{Text: e.tr.T("bet.start_hint")})
	}
}

func (e *Engine) onAwaitingField(ctx context.Context, s *Session, in Input, step *Step) {
	switch in.Kind {
	case InputAnswer:
		e.answer(ctx, s, in.Text, step)
	case InputDescribe:
		e.describe(ctx, s, in, step)
	case InputAddBet:
		e.startEmpty(ctx, s, in.Flow, step)
	default:
		step.reject(ErrUnexpectedInput, e.fieldPrompt(s.Conversation.Draft, s.Conversation.PendingField))
	}
}

func (e *Engine) onAwaitingAmount(ctx context.Context, s *Session, in Input, step *Step) {
	switch in.Kind {
	case InputSubmitAmount, InputAnswer:
		if in.Kind == InputSubmitAmount && in.Text == CustomAmount {
			step.say(Reply{Text: e.tr.T("amount.custom")})
			return
		}
		e.submitAmount(ctx, s, in.Text, step)
	case InputDescribe:
		e.describe(ctx, s, in, step)
	case InputAddBet:
		e.startEmpty(ctx, s, in.Flow, step)
	default:
		step.reject(ErrUnexpectedInput, e.amountPrompt(&s.Cart))
	}
}

// describe resolves free text into drafts. Any failure leaves the session untouched.
func (e *Engine) describe(ctx context.Context, s *Session, in Input, step *Step) {
	res, err := e.resolver.ResolveBet(ctx, in.Text)
	if err != nil {
		e.log.WarnContext(ctx, "bet description not resolved",
			slog.Int64("user_id", s.UserID),
			slog.String("error", err.Error()),
		)
		step.reject(ErrResolverUnavailable, Reply{Text: e.tr.T("bet.resolver_unavailable")})
		return
	}

	if res == nil {
		res = &resolver.BetResolution{}
	}

	if len(res.InvalidPlayerTokens) > 0 {
		text := e.tr.Tf("bet.invalid_players", strings.Join(res.InvalidPlayerTokens, ", "))
		suggestions := fuzzy.Suggestions(res.InvalidPlayerTokens, e.catalog.PlayerNames())
		if len(suggestions) > 0 {
			text += "\n" + e.tr.Tf("bet.suggestions", strings.Join(suggestions, ", "))
		}
		step.reject(ErrInvalidPlayers, Reply{Text: text})
		return
	}

	if len(res.Lines) == 0 {
		step.reject(ErrNoPlayers, Reply{Text: e.tr.T("bet.no_players")})
		return
	}

	drafts := make([]Draft, 0, len(res.Lines))
	for _, h := range res.Lines {
		drafts = append(drafts, Draft{Hint: Hint{
			PlayerName: h.Name,
			StatType:   h.StatType,
			LineValue:  h.LineValue,
			Side:       h.Side,
		}})
	}

	conv := Conversation{
		Phase:     PhaseIdle,
		Draft:     &drafts[0],
		Remaining: drafts[1:],
		Flow:      in.Flow,
	}
	if res.EntryFee.Valid && res.EntryFee.Decimal.IsPositive() {
		conv.WagerAmount = res.EntryFee
	}
	s.Conversation = conv

	e.advance(ctx, s, step)
}

func (e *Engine) startEmpty(ctx context.Context, s *Session, flow Flow, step *Step) {
	s.Conversation = Conversation{
		Phase: PhaseIdle,
		Draft: &Draft{},
		Flow:  flow,
	}
	e.advance(ctx, s, step)
}

// advance validates drafts until one needs user input or all are in the cart.
func (e *Engine) advance(ctx context.Context, s *Session, step *Step) {
	conv := &s.Conversation

	for {
		if conv.Draft == nil {
			if len(conv.Remaining) == 0 {
				e.finishDrafts(ctx, s, step)
				return
			}
			next := conv.Remaining[0]
			conv.Draft = &next
			conv.Remaining = conv.Remaining[1:]
			if len(conv.Remaining) == 0 {
				conv.Remaining = nil
			}
		}

		field, note, ok := e.confirmHints(conv.Draft)
		if !ok {
			conv.Phase = PhaseAwaitingField
			conv.PendingField = field
			prompt := e.fieldPrompt(conv.Draft, field)
			if note != "" {
				prompt.Text = note + "\n" + prompt.Text
			}
			step.say(prompt)
			return
		}

		line := Line{
			PlayerName: conv.Draft.PlayerName,
			StatType:   conv.Draft.StatType,
			LineValue:  conv.Draft.LineValue.Decimal,
			Side:       conv.Draft.Side,
		}
		s.Cart.Lines = append(s.Cart.Lines, line)
		step.LinesAdded++
		metrics.RecordBetAdded()
		step.say(Reply{Text: e.tr.Tf("bet.added", line.String())})

		conv.Draft = nil
		conv.PendingField = ""
	}
}

// confirmHints walks fields in order, promoting hints that pass validation.
// It returns the first field that still needs an answer and, when a hint was
// rejected, a note explaining why.
func (e *Engine) confirmHints(d *Draft) (Field, string, bool) {
	for _, f := range Fields {
		if d.has(f) {
			continue
		}

		var err error
		var note string
		switch f {
		case FieldPlayer:
			hint := d.Hint.PlayerName
			d.Hint.PlayerName = ""
			if hint == "" {
				return f, "", false
			}
			if err = e.acceptPlayer(d, hint); err != nil {
				note = e.tr.Tf("invalid.player", hint)
			}
		case FieldStat:
			hint := d.Hint.StatType
			d.Hint.StatType = ""
			if hint == "" {
				return f, "", false
			}
			if err = e.acceptStat(d, hint); err != nil {
				note = e.tr.Tf("invalid.stat", d.PlayerName, hint)
			}
		case FieldLine:
			hint := d.Hint.LineValue
			d.Hint.LineValue = decimal.NullDecimal{}
			if !hint.Valid {
				return f, "", false
			}
			if err = e.acceptLine(d, hint.Decimal); err != nil {
				note = e.lineMiss(d, hint.Decimal)
			}
		case FieldSide:
			hint := d.Hint.Side
			d.Hint.Side = ""
			if hint == "" {
				return f, "", false
			}
			if err = e.acceptSide(d, hint); err != nil {
				note = e.tr.T("invalid.side")
			}
		}

		if err != nil {
			return f, note, false
		}
	}

	return "", "", true
}

// answer applies free text to the pending field.
func (e *Engine) answer(ctx context.Context, s *Session, text string, step *Step) {
	conv := &s.Conversation
	d := conv.Draft
	field := conv.PendingField
	if d == nil || field == "" {
		conv.Reset()
		step.reject(ErrUnexpectedInput, Reply{Text: e.tr.T("bet.start_hint")})
		return
	}

	text = strings.TrimSpace(text)

	var err error
	var note string
	switch field {
	case FieldPlayer:
		if err = e.answerPlayer(ctx, d, text); err != nil {
			note = e.tr.Tf("invalid.player", text)
			if sugg := fuzzy.Suggestions([]string{text}, e.catalog.PlayerNames()); len(sugg) > 0 {
				note += "\n" + e.tr.Tf("bet.suggestions", strings.Join(sugg, ", "))
			}
		}
	case FieldStat:
		if err = e.acceptStat(d, text); err != nil {
			note = e.tr.Tf("invalid.stat", d.PlayerName, text)
		}
	case FieldLine:
		v, perr := decimal.NewFromString(strings.TrimSpace(text))
		if perr != nil {
			err = ErrUnknownLine
			note = e.tr.Tf("invalid.line_nan", text)
		} else if err = e.acceptLine(d, v); err != nil {
			note = e.lineMiss(d, v)
		}
	case FieldSide:
		if err = e.acceptSide(d, text); err != nil {
			note = e.tr.T("invalid.side")
		}
	}

	if err != nil {
		prompt := e.fieldPrompt(d, field)
		prompt.Text = note + "\n" + prompt.Text
		step.reject(err, prompt)
		return
	}

	conv.PendingField = ""
	conv.Phase = PhaseIdle
	e.advance(ctx, s, step)
}

// finishDrafts runs once every draft of the current description is in the cart.
func (e *Engine) finishDrafts(_ context.Context, s *Session, step *Step) {
	conv := &s.Conversation
	if conv.WagerAmount.Valid && conv.WagerAmount.Decimal.IsPositive() {
		s.Cart.EntryFee = conv.WagerAmount
	}
	flow := conv.Flow

	if flow.RequireExplicitAmount {
		*conv = Conversation{Phase: PhaseAwaitingWagerAmount, Flow: flow}
		step.say(e.cartReply(&s.Cart))
		step.say(e.amountPrompt(&s.Cart))
		return
	}

	conv.Reset()
	step.say(e.cartReply(&s.Cart))
	step.say(e.confirmPrompt())
}

func (e *Engine) submitAmount(ctx context.Context, s *Session, text string, step *Step) {
	if s.Cart.Empty() {
		s.Conversation.Reset()
		step.reject(ErrEmptyCart, Reply{Text: e.tr.T("cart.empty")})
		return
	}

	amount, err := ParseAmount(text)
	if err != nil {
		prompt := e.amountPrompt(&s.Cart)
		prompt.Text = e.tr.T("amount.invalid") + "\n" + prompt.Text
		step.reject(err, prompt)
		return
	}

	s.Cart.EntryFee = decimal.NewNullDecimal(amount)
	e.finalize(ctx, s, amount, step)
}

func (e *Engine) confirmCart(ctx context.Context, s *Session, flow Flow, step *Step) {
	if s.Cart.Empty() {
		step.reject(ErrEmptyCart, Reply{Text: e.tr.T("cart.empty")})
		return
	}

	fee := s.Cart.EntryFee
	if !flow.RequireExplicitAmount && fee.Valid && fee.Decimal.IsPositive() {
		e.finalize(ctx, s, fee.Decimal, step)
		return
	}

	s.Conversation = Conversation{Phase: PhaseAwaitingWagerAmount, Flow: flow}
	step.say(e.amountPrompt(&s.Cart))
}

// finalize re-checks every cart line and builds the submission. Nothing is
// submitted when any line fails the check.
func (e *Engine) finalize(ctx context.Context, s *Session, amount decimal.Decimal, step *Step) {
	var stale []Line
	for _, l := range s.Cart.Lines {
		if !e.catalog.HasLine(l.PlayerName, l.StatType, l.LineValue) {
			stale = append(stale, l)
		}
	}

	if len(stale) > 0 {
		s.Conversation.Reset()
		items := make([]string, 0, len(stale))
		for _, l := range stale {
			items = append(items, "- "+l.String())
		}
		step.reject(&StaleLinesError{Lines: stale}, Reply{
			Text:    e.tr.Tf("finalize.stale", strings.Join(items, "\n")),
			Choices: e.cartChoices(),
		})
		return
	}

	sub, err := BuildSubmission(ctx, s.UserID, amount, s.Cart.Lines, e.catalog, e.log)
	if err != nil {
		s.Conversation.Reset()
		step.reject(err, Reply{Text: e.tr.T("cart.empty")})
		return
	}

	table := e.cartTable(&s.Cart)
	count := len(s.Cart.Lines)

	step.Submission = sub
	s.Cart.Clear()
	s.Conversation = Conversation{Phase: PhaseComplete}

	step.say(Reply{
		Text:  e.tr.Tf("finalize.success", amount.StringFixed(2), count),
		Table: table,
		Choices: []Choice{
			{Label: e.tr.T("buttons.add_bet"), Action: ActionCart, Value: CartAdd},
		},
	})
}

// cancel drops any in-progress drafts and keeps the cart.
func (e *Engine) cancel(s *Session, step *Step) {
	s.Conversation = Conversation{Phase: PhaseCancelled}
	step.say(Reply{Text: e.tr.T("cancel.done")})
}

func (e *Engine) clearCart(s *Session, step *Step) {
	s.Cart.Clear()
	s.Conversation.Reset()
	step.say(Reply{Text: e.tr.T("cart.cleared")})
}

func (e *Engine) viewCart(s *Session, step *Step) {
	if s.Cart.Empty() {
		step.reject(ErrEmptyCart, Reply{Text: e.tr.T("cart.empty")})
		return
	}
	step.say(e.cartReply(&s.Cart))
	step.say(e.confirmPrompt())
}

func (e *Engine) cartTable(c *Cart) *render.Table {
	t := &render.Table{
		Title:   e.tr.T("cart.title"),
		Headers: []string{"#", "Player", "Stat", "Side", "Line"},
	}
	for i, l := range c.Lines {
		t.Rows = append(t.Rows, []string{
			fmt.Sprintf("%d", i+1), l.PlayerName, l.StatType, string(l.Side), l.LineValue.String(),
		})
	}
	return t
}

func (e *Engine) cartReply(c *Cart) Reply {
	text := e.tr.Tf("cart.summary", len(c.Lines))
	if c.EntryFee.Valid {
		text += "\n" + e.tr.Tf("cart.fee", c.EntryFee.Decimal.StringFixed(2))
	}
	return Reply{Text: text, Table: e.cartTable(c)}
}

func (e *Engine) cartChoices() []Choice {
	return []Choice{
		{Label: e.tr.T("buttons.confirm_cart"), Action: ActionCart, Value: CartConfirm},
		{Label: e.tr.T("buttons.add_bet"), Action: ActionCart, Value: CartAdd},
		{Label: e.tr.T("buttons.clear_cart"), Action: ActionCart, Value: CartClear},
	}
}

func (e *Engine) confirmPrompt() Reply {
	return Reply{Text: e.tr.T("cart.confirm_prompt"), Choices: e.cartChoices()}
}

func (e *Engine) amountPrompt(c *Cart) Reply {
	choices := make([]Choice, 0, len(e.presets))
	for _, p := range e.presets {
		choices = append(choices, Choice{Label: "$" + p.String(), Action: ActionAmount, Value: p.String()})
	}
	choices = append(choices, Choice{Label: e.tr.T("buttons.custom_amount"), Action: ActionAmount, Value: CustomAmount})
	return Reply{Text: e.tr.Tf("amount.prompt", len(c.Lines)), Choices: choices}
}

func (e *Engine) fieldPrompt(d *Draft, f Field) Reply {
	if d == nil {
		return Reply{Text: e.tr.T("bet.start_hint")}
	}

	switch f {
	case FieldPlayer:
		return Reply{Text: e.tr.T("prompt.player")}
	case FieldStat:
		stats := e.catalog.StatTypes(d.PlayerName)
		return Reply{
			Text:    e.tr.Tf("prompt.stat", d.PlayerName, strings.Join(stats, ", ")),
			Choices: pickChoices(stats),
		}
	case FieldLine:
		var values []string
		for _, v := range e.catalog.LineValues(d.PlayerName, d.StatType) {
			values = append(values, v.String())
		}
		return Reply{
			Text:    e.tr.Tf("prompt.line", d.PlayerName, d.StatType, strings.Join(values, ", ")),
			Choices: pickChoices(values),
		}
	case FieldSide:
		return Reply{
			Text: e.tr.Tf("prompt.side", d.LineValue.Decimal.String(), d.StatType, d.PlayerName),
			Choices: []Choice{
				{Label: e.tr.T("buttons.over"), Action: ActionPick, Value: string(SideOver)},
				{Label: e.tr.T("buttons.under"), Action: ActionPick, Value: string(SideUnder)},
			},
		}
	}

	return Reply{Text: e.tr.T("bet.start_hint")}
}

func (e *Engine) lineMiss(d *Draft, v decimal.Decimal) string {
	note := e.tr.Tf("invalid.line", v.String(), d.PlayerName, d.StatType)
	if closest, ok := e.catalog.ClosestLine(d.PlayerName, d.StatType, v); ok {
		note += "\n" + e.tr.Tf("invalid.line_closest", closest.String())
	}
	return note
}

func pickChoices(values []string) []Choice {
	out := make([]Choice, 0, len(values))
	for _, v := range values {
		out = append(out, Choice{Label: v, Action: ActionPick, Value: v})
	}
	return out
}

// IsRejection reports whether err is one of the engine's domain rejections.
func IsRejection(err error) bool {
	return err != nil && RejectionKind(err) != "other"
}
