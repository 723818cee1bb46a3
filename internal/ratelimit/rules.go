package ratelimit

import (
	"errors"
	"fmt"
	"time"

	"github.com/Proton-105/strike-bot/pkg/config"
)

// Actions with their own limits on top of the per-user rule.
const (
	ActionDescribe = "describe"
	ActionSearch   = "search"
	ActionConfirm  = "confirm"
)

// ErrUnknownAction is returned for actions without a configured rule.
var ErrUnknownAction = errors.New("unsupported rate limit action")

// Rules encapsulates configured rate limits and helper methods.
type Rules struct {
	config config.RateLimitConfig
}

// NewRules constructs rate limiting rules from configuration settings.
func NewRules(cfg config.RateLimitConfig) *Rules {
	return &Rules{config: cfg}
}

// IsWhitelisted returns true if the userID bypasses rate limits.
func (r *Rules) IsWhitelisted(userID int64) bool {
	for _, id := range r.config.Whitelist {
		if id == userID {
			return true
		}
	}
	return false
}

// GetActionLimit returns the limit and window for one of the Action constants.
func (r *Rules) GetActionLimit(action string) (int, time.Duration, error) {
	switch action {
	case ActionDescribe:
		return parseRule(r.config.Commands.Describe)
	case ActionSearch:
		return parseRule(r.config.Commands.Search)
	case ActionConfirm:
		return parseRule(r.config.Commands.Confirm)
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

// GetGlobalLimit returns the global rate limiting rule.
func (r *Rules) GetGlobalLimit() (int, time.Duration, error) {
	return parseRule(r.config.Global)
}

// GetPerUserLimit returns the per-user rate limiting rule.
func (r *Rules) GetPerUserLimit() (int, time.Duration, error) {
	return parseRule(r.config.PerUser)
}

func parseRule(rule config.RateLimitRule) (int, time.Duration, error) {
	if rule.Window == "" {
		return rule.Limit, 0, errors.New("window duration is not set")
	}
	window, err := time.ParseDuration(rule.Window)
	if err != nil {
		return 0, 0, err
	}
	if window <= 0 {
		return 0, 0, fmt.Errorf("window must be positive, got %s", window)
	}
	return rule.Limit, window, nil
}
