package betting

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/strike-bot/internal/i18n"
	"github.com/Proton-105/strike-bot/internal/resolver"
	"github.com/Proton-105/strike-bot/internal/testutil"
)

type failingResolver struct{}

func (failingResolver) ResolveBet(context.Context, string) (*resolver.BetResolution, error) {
	return nil, resolver.ErrUnavailable
}

func (failingResolver) ResolvePlayer(context.Context, string) (string, error) {
	return "", resolver.ErrUnavailable
}

func (failingResolver) ResolveTeam(context.Context, string) (*resolver.TeamRoster, error) {
	return nil, resolver.ErrUnavailable
}

func (failingResolver) ClassifyIsSearch(context.Context, string) (bool, error) {
	return false, resolver.ErrUnavailable
}

type stubResolver struct {
	bet *resolver.BetResolution
}

func (r *stubResolver) ResolveBet(context.Context, string) (*resolver.BetResolution, error) {
	return r.bet, nil
}

func (r *stubResolver) ResolvePlayer(context.Context, string) (string, error) { return "", nil }

func (r *stubResolver) ResolveTeam(context.Context, string) (*resolver.TeamRoster, error) {
	return nil, nil
}

func (r *stubResolver) ClassifyIsSearch(context.Context, string) (bool, error) { return false, nil }

func decimalOf(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(testutil.Dec(s))
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	ds := testutil.SampleDataset()
	return NewEngine(ds, resolver.NewLocal(ds), i18n.Default(), testutil.Logger())
}

func newSession() *Session {
	s := NewSession(42)
	return &s
}

func allText(step Step) string {
	parts := make([]string, 0, len(step.Replies))
	for _, r := range step.Replies {
		parts = append(parts, r.Text)
	}
	return strings.Join(parts, "\n")
}

func TestDescribe_CompleteLineGoesToCart(t *testing.T) {
	e := newTestEngine(t)
	s := newSession()

	step := e.Handle(context.Background(), s, Describe("LeBron over 25.5 points", QuickFlow))

	require.NoError(t, step.Rejection)
	assert.Equal(t, PhaseIdle, step.To)
	assert.Equal(t, 1, step.LinesAdded)
	require.Len(t, s.Cart.Lines, 1)

	line := s.Cart.Lines[0]
	assert.Equal(t, "LeBron James", line.PlayerName)
	assert.Equal(t, "points", line.StatType)
	assert.True(t, line.LineValue.Equal(testutil.Dec("25.5")))
	assert.Equal(t, SideOver, line.Side)
	assert.False(t, s.Cart.EntryFee.Valid)
	assert.Nil(t, s.Conversation.Draft)
	assert.Empty(t, s.Conversation.PendingField)

	last := step.Replies[len(step.Replies)-1]
	require.Len(t, last.Choices, 3)
	assert.Equal(t, ActionCart, last.Choices[0].Action)
	assert.Equal(t, CartConfirm, last.Choices[0].Value)
}

func TestDescribe_UnknownPlayerRejectsWholeInput(t *testing.T) {
	e := newTestEngine(t)
	s := newSession()
	s.Cart.Lines = []Line{{PlayerName: "Jayson Tatum", StatType: "points", LineValue: testutil.Dec("27.5"), Side: SideOver}}
	before := *s

	step := e.Handle(context.Background(), s, Describe("LeBron over 25.5 points and Gronk over 10 points", QuickFlow))

	assert.ErrorIs(t, step.Rejection, ErrInvalidPlayers)
	assert.Equal(t, PhaseIdle, step.To)
	assert.Equal(t, before, *s)
	assert.Contains(t, allText(step), "Gronk")
}

func TestDescribe_SuggestsClosePlayers(t *testing.T) {
	ds := testutil.SampleDataset()
	stub := &stubResolver{bet: &resolver.BetResolution{InvalidPlayerTokens: []string{"Stephen Cury"}}}
	e := NewEngine(ds, stub, i18n.Default(), testutil.Logger())

	step := e.Handle(context.Background(), newSession(), Describe("steph", QuickFlow))

	assert.ErrorIs(t, step.Rejection, ErrInvalidPlayers)
	assert.Contains(t, allText(step), "Did you mean: Stephen Curry?")
}

func TestDescribe_ResolverUnavailableLeavesStateUnchanged(t *testing.T) {
	ds := testutil.SampleDataset()
	e := NewEngine(ds, failingResolver{}, i18n.Default(), testutil.Logger())

	s := newSession()
	s.Conversation = Conversation{Phase: PhaseAwaitingField, PendingField: FieldSide, Draft: &Draft{
		PlayerName: "LeBron James", StatType: "points", LineValue: decimalOf("25.5"),
	}}
	before := *s
	draftBefore := *s.Conversation.Draft

	step := e.Handle(context.Background(), s, Describe("something new", QuickFlow))

	assert.ErrorIs(t, step.Rejection, ErrResolverUnavailable)
	assert.Equal(t, PhaseAwaitingField, step.To)
	assert.Equal(t, before.Conversation.PendingField, s.Conversation.PendingField)
	assert.Equal(t, draftBefore, *s.Conversation.Draft)
	assert.Contains(t, allText(step), "couldn't understand your bet")
}

func TestDescribe_NoPlayers(t *testing.T) {
	e := newTestEngine(t)
	s := newSession()

	step := e.Handle(context.Background(), s, Describe("over 25.5", QuickFlow))

	assert.ErrorIs(t, step.Rejection, ErrNoPlayers)
	assert.Equal(t, PhaseIdle, step.To)
}

func TestDescribe_InvalidHintIsNotTrusted(t *testing.T) {
	e := newTestEngine(t)
	s := newSession()

	step := e.Handle(context.Background(), s, Describe("LeBron over 26 points", QuickFlow))

	require.NoError(t, step.Rejection)
	assert.Equal(t, PhaseAwaitingField, step.To)
	assert.Equal(t, FieldLine, s.Conversation.PendingField)
	assert.False(t, s.Conversation.Draft.LineValue.Valid)
	assert.False(t, s.Conversation.Draft.Hint.LineValue.Valid)
	assert.Equal(t, "over", s.Conversation.Draft.Hint.Side)
	assert.Contains(t, allText(step), "Closest available line: 25.5")
	assert.Empty(t, s.Cart.Lines)
}

func TestAnswer_LineSuggestsClosestWithoutAccepting(t *testing.T) {
	e := newTestEngine(t)
	s := newSession()
	ctx := context.Background()

	step := e.Handle(ctx, s, Describe("LeBron points", QuickFlow))
	require.Equal(t, PhaseAwaitingField, step.To)
	require.Equal(t, FieldLine, s.Conversation.PendingField)
	require.Len(t, step.Replies, 1)
	assert.Len(t, step.Replies[0].Choices, 2)

	step = e.Handle(ctx, s, Answer("26"))
	assert.ErrorIs(t, step.Rejection, ErrUnknownLine)
	assert.Equal(t, FieldLine, s.Conversation.PendingField)
	assert.False(t, s.Conversation.Draft.LineValue.Valid)
	assert.Contains(t, allText(step), "Closest available line: 25.5")

	step = e.Handle(ctx, s, Answer("abc"))
	assert.ErrorIs(t, step.Rejection, ErrUnknownLine)
	assert.Contains(t, allText(step), "is not a number")

	step = e.Handle(ctx, s, Answer("25.5"))
	require.NoError(t, step.Rejection)
	assert.Equal(t, FieldSide, s.Conversation.PendingField)

	step = e.Handle(ctx, s, Answer("sideways"))
	assert.ErrorIs(t, step.Rejection, ErrInvalidSide)
	assert.Equal(t, FieldSide, s.Conversation.PendingField)

	step = e.Handle(ctx, s, Answer(" Under "))
	require.NoError(t, step.Rejection)
	assert.Equal(t, PhaseIdle, step.To)
	require.Len(t, s.Cart.Lines, 1)
	assert.Equal(t, SideUnder, s.Cart.Lines[0].Side)
}

func TestGuidedFlow_FieldByField(t *testing.T) {
	e := newTestEngine(t)
	s := newSession()
	ctx := context.Background()

	step := e.Handle(ctx, s, AddBet(GuidedFlow))
	assert.Equal(t, PhaseAwaitingField, step.To)
	assert.Equal(t, FieldPlayer, s.Conversation.PendingField)

	step = e.Handle(ctx, s, Answer("Gronk"))
	assert.ErrorIs(t, step.Rejection, ErrUnknownPlayer)
	assert.Equal(t, FieldPlayer, s.Conversation.PendingField)

	step = e.Handle(ctx, s, Answer("lebron"))
	require.NoError(t, step.Rejection)
	assert.Equal(t, "LeBron James", s.Conversation.Draft.PlayerName)
	assert.Equal(t, FieldStat, s.Conversation.PendingField)
	require.Len(t, step.Replies, 1)
	assert.Len(t, step.Replies[0].Choices, 3)

	step = e.Handle(ctx, s, Answer("steals"))
	assert.ErrorIs(t, step.Rejection, ErrUnknownStat)

	step = e.Handle(ctx, s, Answer("Points"))
	require.NoError(t, step.Rejection)
	assert.Equal(t, "points", s.Conversation.Draft.StatType)

	e.Handle(ctx, s, Answer("27.5"))
	step = e.Handle(ctx, s, Answer("over"))
	require.NoError(t, step.Rejection)
	assert.Equal(t, PhaseAwaitingWagerAmount, step.To)
	require.Len(t, s.Cart.Lines, 1)

	amountPrompt := step.Replies[len(step.Replies)-1]
	require.NotEmpty(t, amountPrompt.Choices)
	assert.Equal(t, ActionAmount, amountPrompt.Choices[0].Action)

	step = e.Handle(ctx, s, SubmitAmount("-5"))
	assert.ErrorIs(t, step.Rejection, ErrNonPositiveAmount)
	assert.Equal(t, PhaseAwaitingWagerAmount, step.To)
	assert.Len(t, s.Cart.Lines, 1)

	step = e.Handle(ctx, s, SubmitAmount("$20"))
	require.NoError(t, step.Rejection)
	assert.Equal(t, PhaseComplete, step.To)
	require.NotNil(t, step.Submission)
	assert.Equal(t, "20", step.Submission.EntryFee.String())
	assert.Empty(t, s.Cart.Lines)
}

func TestFinalize_TwoLines(t *testing.T) {
	e := newTestEngine(t)
	s := newSession()
	ctx := context.Background()

	step := e.Handle(ctx, s, Describe("LeBron over 25.5 points and Tatum under 27.5 points", GuidedFlow))
	require.NoError(t, step.Rejection)
	require.Equal(t, PhaseAwaitingWagerAmount, step.To)
	require.Len(t, s.Cart.Lines, 2)

	step = e.Handle(ctx, s, SubmitAmount("25"))
	require.NoError(t, step.Rejection)
	assert.Equal(t, PhaseComplete, step.To)

	sub := step.Submission
	require.NotNil(t, sub)
	assert.Equal(t, int64(42), sub.UserID)
	assert.Equal(t, "25", sub.EntryFee.String())
	require.Len(t, sub.Bets, 2)
	require.NotNil(t, sub.Bets[0].EventID)
	assert.Equal(t, "evt-1", *sub.Bets[0].EventID)
	assert.Equal(t, SideOver, sub.Bets[0].BetSide)
	assert.Equal(t, "25.5", sub.Bets[0].LineValue.String())
	require.NotNil(t, sub.Bets[1].EventID)
	assert.Equal(t, "evt-9", *sub.Bets[1].EventID)
	assert.Equal(t, SideUnder, sub.Bets[1].BetSide)

	assert.Empty(t, s.Cart.Lines)
	assert.False(t, s.Cart.EntryFee.Valid)
}

func TestFinalize_AbortsOnStaleLine(t *testing.T) {
	e := newTestEngine(t)
	s := newSession()
	s.Cart = Cart{
		Lines: []Line{
			{PlayerName: "LeBron James", StatType: "points", LineValue: testutil.Dec("25.5"), Side: SideOver},
			{PlayerName: "LeBron James", StatType: "points", LineValue: testutil.Dec("99.5"), Side: SideOver},
		},
		EntryFee: decimalOf("10"),
	}
	s.Conversation = Conversation{Phase: PhaseAwaitingWagerAmount}

	step := e.Handle(context.Background(), s, SubmitAmount("10"))

	assert.ErrorIs(t, step.Rejection, ErrStaleLineMismatch)
	var stale *StaleLinesError
	require.True(t, errors.As(step.Rejection, &stale))
	require.Len(t, stale.Lines, 1)
	assert.True(t, stale.Lines[0].LineValue.Equal(testutil.Dec("99.5")))

	assert.Nil(t, step.Submission)
	assert.Equal(t, PhaseIdle, step.To)
	assert.Len(t, s.Cart.Lines, 2)
	assert.Contains(t, allText(step), "99.5")
}

func TestConfirmCart(t *testing.T) {
	ctx := context.Background()

	t.Run("empty cart", func(t *testing.T) {
		e := newTestEngine(t)
		s := newSession()

		step := e.Handle(ctx, s, ConfirmCart(QuickFlow))
		assert.ErrorIs(t, step.Rejection, ErrEmptyCart)
		assert.Equal(t, PhaseIdle, step.To)
	})

	t.Run("quick confirm with known fee finalizes", func(t *testing.T) {
		e := newTestEngine(t)
		s := newSession()

		e.Handle(ctx, s, Describe("$20 on LeBron over 25.5 points", QuickFlow))
		require.True(t, s.Cart.EntryFee.Valid)

		step := e.Handle(ctx, s, ConfirmCart(QuickFlow))
		require.NoError(t, step.Rejection)
		require.NotNil(t, step.Submission)
		assert.Equal(t, "20", step.Submission.EntryFee.String())
		assert.Equal(t, PhaseComplete, step.To)
	})

	t.Run("quick confirm without fee asks for amount", func(t *testing.T) {
		e := newTestEngine(t)
		s := newSession()

		e.Handle(ctx, s, Describe("LeBron over 25.5 points", QuickFlow))
		step := e.Handle(ctx, s, ConfirmCart(QuickFlow))
		assert.Nil(t, step.Submission)
		assert.Equal(t, PhaseAwaitingWagerAmount, step.To)
	})

	t.Run("guided confirm always asks", func(t *testing.T) {
		e := newTestEngine(t)
		s := newSession()

		e.Handle(ctx, s, Describe("$20 on LeBron over 25.5 points", QuickFlow))
		step := e.Handle(ctx, s, ConfirmCart(GuidedFlow))
		assert.Nil(t, step.Submission)
		assert.Equal(t, PhaseAwaitingWagerAmount, step.To)
	})
}

func TestCancel_IsIdempotentAndKeepsCart(t *testing.T) {
	e := newTestEngine(t)
	s := newSession()
	ctx := context.Background()

	e.Handle(ctx, s, Describe("Curry under 4.5 threes", QuickFlow))
	require.Len(t, s.Cart.Lines, 1)

	e.Handle(ctx, s, Describe("LeBron points", QuickFlow))
	require.Equal(t, PhaseAwaitingField, s.CurrentPhase())
	first := s.Conversation

	step := e.Handle(ctx, s, Cancel())
	assert.Equal(t, PhaseCancelled, step.To)
	assert.Nil(t, s.Conversation.Draft)
	assert.Empty(t, s.Conversation.PendingField)
	assert.Len(t, s.Cart.Lines, 1)

	step = e.Handle(ctx, s, Cancel())
	assert.Equal(t, PhaseCancelled, step.From)
	assert.Equal(t, PhaseCancelled, step.To)

	e.Handle(ctx, s, Describe("LeBron points", QuickFlow))
	assert.Equal(t, first, s.Conversation)
}

func TestClearAndViewCart(t *testing.T) {
	e := newTestEngine(t)
	s := newSession()
	ctx := context.Background()

	step := e.Handle(ctx, s, ViewCart())
	assert.ErrorIs(t, step.Rejection, ErrEmptyCart)

	e.Handle(ctx, s, Describe("$15 on Brunson over 6.5 assists", QuickFlow))
	step = e.Handle(ctx, s, ViewCart())
	require.NoError(t, step.Rejection)
	require.NotNil(t, step.Replies[0].Table)
	assert.Equal(t, []string{"1", "Jalen Brunson", "assists", "over", "6.5"}, step.Replies[0].Table.Rows[0])
	assert.Contains(t, step.Replies[0].Text, "Entry fee: $15.00")

	step = e.Handle(ctx, s, ClearCart())
	assert.Equal(t, PhaseIdle, step.To)
	assert.True(t, s.Cart.Empty())
	assert.False(t, s.Cart.EntryFee.Valid)
}

func TestMultiLineDescribe_ContinuesWithRemaining(t *testing.T) {
	e := newTestEngine(t)
	s := newSession()
	ctx := context.Background()

	step := e.Handle(ctx, s, Describe("curry under 4.5 threes and tatum over 27 points", QuickFlow))
	require.NoError(t, step.Rejection)
	assert.Equal(t, 1, step.LinesAdded)
	assert.Equal(t, FieldLine, s.Conversation.PendingField)
	assert.Equal(t, "Jayson Tatum", s.Conversation.Draft.PlayerName)
	assert.Empty(t, s.Conversation.Remaining)

	step = e.Handle(ctx, s, Answer("27.5"))
	require.NoError(t, step.Rejection)
	assert.Equal(t, PhaseIdle, step.To)
	assert.Len(t, s.Cart.Lines, 2)
	assert.Equal(t, SideOver, s.Cart.Lines[1].Side)
}

func TestUnexpectedInput(t *testing.T) {
	e := newTestEngine(t)
	s := newSession()

	step := e.Handle(context.Background(), s, Answer("over"))
	assert.ErrorIs(t, step.Rejection, ErrUnexpectedInput)
	assert.Equal(t, PhaseIdle, step.To)
}

func TestAwaitingAmount_PromptsAgain(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		in     Input
		reject error
		text   string
	}{
		{name: "custom amount button", in: SubmitAmount(CustomAmount), text: "Type the amount you want to wager"},
		{name: "unknown input", in: Input{Kind: "sticker"}, reject: ErrUnexpectedInput, text: "How much would you like to wager"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			s := newSession()
			s.Cart = Cart{Lines: []Line{
				{PlayerName: "LeBron James", StatType: "points", LineValue: testutil.Dec("25.5"), Side: SideOver},
			}}
			s.Conversation = Conversation{Phase: PhaseAwaitingWagerAmount}

			step := e.Handle(ctx, s, tc.in)
			if tc.reject != nil {
				assert.ErrorIs(t, step.Rejection, tc.reject)
			} else {
				assert.NoError(t, step.Rejection)
			}
			assert.Equal(t, PhaseAwaitingWagerAmount, step.To)
			assert.Contains(t, allText(step), tc.text)
			assert.Nil(t, step.Submission)
			assert.False(t, s.Cart.EntryFee.Valid)
		})
	}
}

func TestAmountPrompt_PresetsAndCustom(t *testing.T) {
	e := newTestEngine(t)
	s := newSession()
	s.Cart = Cart{Lines: []Line{
		{PlayerName: "LeBron James", StatType: "points", LineValue: testutil.Dec("25.5"), Side: SideOver},
	}}

	step := e.Handle(context.Background(), s, ConfirmCart(GuidedFlow))
	require.Equal(t, PhaseAwaitingWagerAmount, step.To)

	prompt := step.Replies[len(step.Replies)-1]
	values := make([]string, 0, len(prompt.Choices))
	for _, c := range prompt.Choices {
		assert.Equal(t, ActionAmount, c.Action)
		values = append(values, c.Value)
	}
	assert.Equal(t, []string{"10", "20", "50", "100", CustomAmount}, values)
}

// Every stat offered for a player is accepted when typed back.
func TestStatValidationAcceptsDatasetStats(t *testing.T) {
	ds := testutil.SampleDataset()
	e := newTestEngine(t)

	for _, player := range ds.PlayerNames() {
		for _, stat := range ds.StatTypes(player) {
			d := &Draft{PlayerName: player}
			require.NoError(t, e.acceptStat(d, stat), "%s %s", player, stat)
			assert.Equal(t, stat, d.StatType)
		}
	}
}

// Existing lines are accepted on the first try; anything else is rejected.
func TestLineValidation(t *testing.T) {
	ds := testutil.SampleDataset()
	e := newTestEngine(t)

	for _, player := range ds.PlayerNames() {
		for _, stat := range ds.StatTypes(player) {
			for _, v := range ds.LineValues(player, stat) {
				d := &Draft{PlayerName: player, StatType: stat}
				require.NoError(t, e.acceptLine(d, v))

				off := v.Add(testutil.Dec("0.25"))
				assert.ErrorIs(t, e.acceptLine(&Draft{PlayerName: player, StatType: stat}, off), ErrUnknownLine)
			}
		}
	}
}

func TestTransitionRecorder(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	RegisterTransitionRecorder(func(from, to string) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, from+">"+to)
	})
	t.Cleanup(func() { RegisterTransitionRecorder(nil) })

	e := newTestEngine(t)
	s := newSession()
	ctx := context.Background()

	e.Handle(ctx, s, Describe("LeBron points", GuidedFlow))
	e.Handle(ctx, s, Answer("25.5"))
	e.Handle(ctx, s, Answer("over"))
	e.Handle(ctx, s, SubmitAmount("5"))

	assert.Equal(t, []string{
		"idle>awaiting_field",
		"awaiting_field>awaiting_wager_amount",
		"awaiting_wager_amount>complete",
	}, seen)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"25", "25", false},
		{" $12.50 ", "12.5", false},
		{"$ 7", "7", false},
		{"0", "", true},
		{"-5", "", true},
		{"ten", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseAmount(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrNonPositiveAmount)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(testutil.Dec(tc.want)))
		})
	}
}

func TestIsTransitionAllowed(t *testing.T) {
	tests := []struct {
		from, to Phase
		want     bool
	}{
		{PhaseIdle, PhaseAwaitingField, true},
		{PhaseAwaitingField, PhaseAwaitingWagerAmount, true},
		{PhaseAwaitingWagerAmount, PhaseComplete, true},
		{PhaseAwaitingField, PhaseCancelled, true},
		{PhaseComplete, PhaseIdle, true},
		{PhaseCancelled, PhaseCancelled, true},
		{PhaseAwaitingWagerAmount, PhaseAwaitingWagerAmount, true},
		{Phase("unknown"), PhaseComplete, false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(string(tc.from)+"_"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransitionAllowed(tc.from, tc.to))
		})
	}
}
