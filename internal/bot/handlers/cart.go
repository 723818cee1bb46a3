package handlers

import (
	"context"

	"github.com/Proton-105/strike-bot/internal/betting"
	"github.com/Proton-105/strike-bot/internal/ratelimit"
)

// CartCommand routes cart: callbacks.
func (s *Service) CartCommand(ctx context.Context, userID int64, cmd string) ([]Message, error) {
	switch cmd {
	case betting.CartConfirm:
		return s.Confirm(ctx, userID, "")
	case betting.CartClear:
		return s.Clear(ctx, userID, "")
	case betting.CartAdd:
		return s.AddBet(ctx, userID, "")
	default:
		return s.ViewCart(ctx, userID, "")
	}
}

// ViewCart shows the cart with confirm, add and clear buttons.
func (s *Service) ViewCart(ctx context.Context, userID int64, _ string) ([]Message, error) {
	return s.runEngine(ctx, userID, betting.ViewCart())
}

// Confirm finalizes the cart, or asks for a wager amount first.
func (s *Service) Confirm(ctx context.Context, userID int64, _ string) ([]Message, error) {
	if err := s.allow(ctx, userID, ratelimit.ActionConfirm); err != nil {
		return nil, err
	}
	return s.runEngine(ctx, userID, betting.ConfirmCart(s.flows.Quick))
}

// Clear empties the cart and drops any bet in progress.
func (s *Service) Clear(ctx context.Context, userID int64, _ string) ([]Message, error) {
	return s.runEngine(ctx, userID, betting.ClearCart())
}
