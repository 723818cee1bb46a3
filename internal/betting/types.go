// Package betting drives the per-user conversation that turns free-form bet
// descriptions into validated cart lines and, on confirmation, a submission.
package betting

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Field names one slot of a bet line. Fields are always filled in Fields order.
type Field string

const (
	FieldPlayer Field = "player"
	FieldStat   Field = "stat"
	FieldLine   Field = "line"
	FieldSide   Field = "side"
)

// Fields is the fixed validation order.
var Fields = []Field{FieldPlayer, FieldStat, FieldLine, FieldSide}

type Side string

const (
	SideOver  Side = "over"
	SideUnder Side = "under"
)

// ParseSide accepts "over" or "under" in any case.
func ParseSide(s string) (Side, bool) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideOver:
		return SideOver, true
	case SideUnder:
		return SideUnder, true
	}
	return "", false
}

// Phase is the conversation state.
type Phase string

const (
	PhaseIdle                Phase = "idle"
	PhaseAwaitingField       Phase = "awaiting_field"
	PhaseAwaitingWagerAmount Phase = "awaiting_wager_amount"
	PhaseComplete            Phase = "complete"
	PhaseCancelled           Phase = "cancelled"
)

// Hint holds resolver guesses that have not been checked against the dataset.
type Hint struct {
	PlayerName string              `json:"player_name,omitempty"`
	StatType   string              `json:"stat_type,omitempty"`
	LineValue  decimal.NullDecimal `json:"line_value"`
	Side       string              `json:"side,omitempty"`
}

// Draft is a bet line being assembled. Confirmed fields always exist in the
// dataset, scoped by the fields before them.
type Draft struct {
	PlayerName string              `json:"player_name,omitempty"`
	StatType   string              `json:"stat_type,omitempty"`
	LineValue  decimal.NullDecimal `json:"line_value"`
	Side       Side                `json:"side,omitempty"`
	Hint       Hint                `json:"hint"`
}

func (d *Draft) has(f Field) bool {
	switch f {
	case FieldPlayer:
		return d.PlayerName != ""
	case FieldStat:
		return d.StatType != ""
	case FieldLine:
		return d.LineValue.Valid
	case FieldSide:
		return d.Side != ""
	}
	return false
}

// Complete reports whether every field is confirmed.
func (d *Draft) Complete() bool {
	for _, f := range Fields {
		if !d.has(f) {
			return false
		}
	}
	return true
}

// Line is a fully resolved bet.
type Line struct {
	PlayerName string          `json:"player_name"`
	StatType   string          `json:"stat_type"`
	LineValue  decimal.Decimal `json:"line_value"`
	Side       Side            `json:"side"`
}

// String formats the line for user-facing lists.
func (l Line) String() string {
	return l.PlayerName + " " + string(l.Side) + " " + l.LineValue.String() + " " + l.StatType
}

// Cart is the ordered list of lines awaiting submission.
type Cart struct {
	Lines    []Line              `json:"lines"`
	EntryFee decimal.NullDecimal `json:"entry_fee"`
}

func (c *Cart) Empty() bool {
	return len(c.Lines) == 0
}

// Clear drops every line and the shared entry fee.
func (c *Cart) Clear() {
	c.Lines = nil
	c.EntryFee = decimal.NullDecimal{}
}

// Flow configures an entry path into the conversation.
type Flow struct {
	RequireExplicitAmount bool `json:"require_explicit_amount"`
}

var (
	// GuidedFlow always asks for a wager amount before finalizing.
	GuidedFlow = Flow{RequireExplicitAmount: true}
	// QuickFlow finalizes with a known entry fee without asking again.
	QuickFlow = Flow{RequireExplicitAmount: false}
)

// Conversation tracks the draft currently being filled. PendingField is set
// exactly when Phase is PhaseAwaitingField.
type Conversation struct {
	Phase        Phase               `json:"phase"`
	PendingField Field               `json:"pending_field,omitempty"`
	Draft        *Draft              `json:"draft,omitempty"`
	Remaining    []Draft             `json:"remaining,omitempty"`
	WagerAmount  decimal.NullDecimal `json:"wager_amount"`
	Flow         Flow                `json:"flow"`
}

// Reset returns the conversation to idle, dropping all drafts.
func (c *Conversation) Reset() {
	*c = Conversation{Phase: PhaseIdle}
}

// Session is everything the engine owns for one user.
type Session struct {
	UserID       int64        `json:"user_id"`
	Conversation Conversation `json:"conversation"`
	Cart         Cart         `json:"cart"`
}

// NewSession returns an idle session with an empty cart.
func NewSession(userID int64) Session {
	return Session{UserID: userID, Conversation: Conversation{Phase: PhaseIdle}}
}

// Clone returns a copy that shares no slices or drafts with s.
func (s Session) Clone() Session {
	out := s
	out.Cart.Lines = append([]Line(nil), s.Cart.Lines...)
	out.Conversation.Remaining = append([]Draft(nil), s.Conversation.Remaining...)
	if s.Conversation.Draft != nil {
		d := *s.Conversation.Draft
		out.Conversation.Draft = &d
	}
	return out
}

// CurrentPhase treats an unset phase as idle.
func (s *Session) CurrentPhase() Phase {
	if s.Conversation.Phase == "" {
		return PhaseIdle
	}
	return s.Conversation.Phase
}
