// Package handlers implements the bot's commands, free-text modes and
// callbacks on top of the betting engine, the session store and search.
package handlers

import (
	"context"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/strike-bot/internal/bot/keyboard"
)

const requestContextKey = "request_ctx"

// Handler processes bot commands.
type Handler func(c telebot.Context) error

// CallbackHandler processes inline callback events.
type CallbackHandler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// Message is one outgoing chat message.
type Message struct {
	Text   string
	Markup *telebot.ReplyMarkup
	HTML   bool
}

// Action handles one update for a user. arg is the free text or the
// callback payload, depending on how the action is routed.
type Action func(ctx context.Context, userID int64, arg string) ([]Message, error)

// ArgFunc extracts the Action argument from an update.
type ArgFunc func(c telebot.Context) string

// WithRequestContext attaches ctx to the update for the handlers downstream.
func WithRequestContext(c telebot.Context, ctx context.Context) {
	c.Set(requestContextKey, ctx)
}

// RequestContext returns the context attached by WithRequestContext, or Background.
func RequestContext(c telebot.Context) context.Context {
	if c != nil {
		if ctx, ok := c.Get(requestContextKey).(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// Text returns the trimmed message text.
func Text(c telebot.Context) string {
	return strings.TrimSpace(c.Text())
}

// CommandArgs returns the text after a leading slash command. Keyword
// triggers such as menu button labels carry no arguments.
func CommandArgs(c telebot.Context) string {
	text := Text(c)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	if idx := strings.IndexAny(text, " \n"); idx > 0 {
		return strings.TrimSpace(text[idx+1:])
	}
	return ""
}

// CallbackData returns the payload after the callback action.
func CallbackData(c telebot.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	_, data, err := keyboard.DecodeCallback(cb.Data)
	if err != nil {
		return ""
	}
	return data
}

// NoArg ignores the update content.
func NoArg(telebot.Context) string { return "" }

// Adapt turns an Action into a Handler that sends the produced messages.
// Callbacks are always answered so the client stops its spinner.
func Adapt(a Action, arg ArgFunc) Handler {
	if arg == nil {
		arg = NoArg
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}
		if c.Callback() != nil {
			defer func() { _ = c.Respond() }()
		}

		msgs, err := a(RequestContext(c), c.Sender().ID, arg(c))
		if err != nil {
			return err
		}

		return Send(c, msgs)
	}
}

// Send delivers messages in order, stopping at the first failure.
func Send(c telebot.Context, msgs []Message) error {
	for _, m := range msgs {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}

		opts := make([]interface{}, 0, 2)
		if m.HTML {
			opts = append(opts, telebot.ModeHTML)
		}
		if m.Markup != nil {
			opts = append(opts, m.Markup)
		}

		if err := c.Send(m.Text, opts...); err != nil {
			return err
		}
	}
	return nil
}

// ActionLabel names an update for logs and metrics without leaking free text:
// the slash command, "cb:<action>" for callbacks, or "text".
func ActionLabel(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}
	if cb := c.Callback(); cb != nil {
		if action, _, err := keyboard.DecodeCallback(cb.Data); err == nil {
			return "cb:" + action
		}
		return "callback"
	}

	text := Text(c)
	if !strings.HasPrefix(text, "/") {
		return "text"
	}
	if idx := strings.IndexAny(text, " \n@"); idx > 0 {
		text = text[:idx]
	}
	return strings.ToLower(text)
}
