package bot

import (
	"log/slog"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/strike-bot/internal/bot/handlers"
	"github.com/Proton-105/strike-bot/internal/state"
)

// Dispatcher routes free text to the handler registered for the user's mode.
type Dispatcher struct {
	store        state.Store
	modeHandlers map[state.Mode]handlers.Handler
	log          *slog.Logger
	mu           sync.RWMutex
}

// NewDispatcher creates a Dispatcher with an empty handlers registry.
func NewDispatcher(store state.Store, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		store:        store,
		modeHandlers: make(map[state.Mode]handlers.Handler),
		log:          log,
	}
}

// RegisterModeHandler registers a handler for the provided mode.
func (d *Dispatcher) RegisterModeHandler(m state.Mode, h handlers.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modeHandlers[m] = h
}

// Dispatch runs the handler for the user's current mode, falling back to
// the menu handler.
func (d *Dispatcher) Dispatch(c telebot.Context) error {
	if c == nil || c.Sender() == nil {
		d.log.Warn("cannot dispatch without sender information")
		return nil
	}

	userID := c.Sender().ID
	st, err := d.store.Load(handlers.RequestContext(c), userID)
	if err != nil {
		return err
	}

	mode := st.CurrentMode()
	handler := d.getHandler(mode)
	if handler == nil {
		handler = d.getHandler(state.ModeMenu)
	}
	if handler == nil {
		d.log.Info("no handler registered for mode", slog.String("mode", string(mode)), slog.Int64("user_id", userID))
		return nil
	}

	return handler(c)
}

func (d *Dispatcher) getHandler(m state.Mode) handlers.Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.modeHandlers[m]
}
