package handlers

import (
	"context"
	"log/slog"

	"github.com/Proton-105/strike-bot/internal/betting"
	"github.com/Proton-105/strike-bot/internal/ratelimit"
	"github.com/Proton-105/strike-bot/internal/state"
)

// EnterBetting switches to betting mode. Text after the command is treated
// as a bet description right away.
func (s *Service) EnterBetting(ctx context.Context, userID int64, arg string) ([]Message, error) {
	if arg != "" {
		return s.BettingText(ctx, userID, arg)
	}

	if err := s.setMode(ctx, userID, state.ModeBetting); err != nil {
		return nil, err
	}

	return []Message{{
		Text: s.tr.T("betting.enter"),
		Markup: s.kb.Choices([]betting.Choice{
			{Label: s.tr.T("buttons.add_bet"), Action: betting.ActionCart, Value: betting.CartAdd},
			{Label: s.tr.T("buttons.confirm_cart"), Action: betting.ActionCart, Value: betting.CartConfirm},
		}),
	}}, nil
}

// AddBet starts the guided field-by-field flow with an empty draft.
func (s *Service) AddBet(ctx context.Context, userID int64, _ string) ([]Message, error) {
	return s.runEngine(ctx, userID, betting.AddBet(s.flows.Guided))
}

// BettingText feeds free text to the engine: as an answer while a field is
// pending, as an amount while a wager is pending, otherwise as a new bet
// description.
func (s *Service) BettingText(ctx context.Context, userID int64, text string) ([]Message, error) {
	current, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !inProgress(current.Session.CurrentPhase()) {
		if err := s.allow(ctx, userID, ratelimit.ActionDescribe); err != nil {
			return nil, err
		}
	}

	return s.runEngineWith(ctx, userID, func(sess *betting.Session) betting.Input {
		switch sess.CurrentPhase() {
		case betting.PhaseAwaitingField:
			return betting.Answer(text)
		case betting.PhaseAwaitingWagerAmount:
			return betting.SubmitAmount(text)
		default:
			return betting.Describe(text, s.flows.Quick)
		}
	})
}

// MenuText decides whether text typed at the menu is a search or a bet.
func (s *Service) MenuText(ctx context.Context, userID int64, text string) ([]Message, error) {
	if s.resolver != nil {
		isSearch, err := s.resolver.ClassifyIsSearch(ctx, text)
		if err != nil {
			s.log.WarnContext(ctx, "classification failed, treating text as a bet", slog.Any("error", err))
		} else if isSearch {
			return s.SearchText(ctx, userID, text)
		}
	}

	return s.BettingText(ctx, userID, text)
}

// Pick answers the pending field with a tapped choice.
func (s *Service) Pick(ctx context.Context, userID int64, value string) ([]Message, error) {
	return s.runEngine(ctx, userID, betting.Answer(value))
}

// Amount submits a quick amount button.
func (s *Service) Amount(ctx context.Context, userID int64, value string) ([]Message, error) {
	return s.runEngine(ctx, userID, betting.SubmitAmount(value))
}
