package bot

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/strike-bot/internal/bot/handlers"
	"github.com/Proton-105/strike-bot/internal/bot/keyboard"
	errors "github.com/Proton-105/strike-bot/internal/errors"
	"github.com/Proton-105/strike-bot/internal/i18n"
	"github.com/Proton-105/strike-bot/internal/idempotency"
	"github.com/Proton-105/strike-bot/internal/middleware"
	"github.com/Proton-105/strike-bot/internal/state"
	"github.com/Proton-105/strike-bot/pkg/config"
)

// Deps groups the collaborators the bot wires into its router.
type Deps struct {
	Service     *handlers.Service
	Store       state.Store
	Translator  i18n.Translator
	Idempotency idempotency.Manager
	RateLimit   *middleware.RateLimitMiddleware
	Errors      *errors.Handler
}

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot     *telebot.Bot
	log         *slog.Logger
	cfg         config.Config
	deps        Deps
	router      *Router
	dispatcher  *Dispatcher
	rateLimitMw *middleware.RateLimitMiddleware
}

// New builds a telegram bot instance configured according to the application settings.
func New(cfg config.Config, log *slog.Logger, deps Deps) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}
	if deps.Service == nil || deps.Store == nil {
		return nil, fmt.Errorf("bot requires a handler service and a state store")
	}

	tb, err := telebot.NewBot(settings(cfg))
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	return newBot(tb, cfg, log, deps), nil
}

func settings(cfg config.Config) telebot.Settings {
	s := telebot.Settings{
		Token: cfg.Bot.Token,
	}

	if cfg.Bot.Mode == "webhook" {
		s.Poller = &telebot.Webhook{
			Listen:   cfg.Bot.Listen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.Bot.WebhookURL},
		}
	} else {
		s.Poller = &telebot.LongPoller{
			Timeout: cfg.Bot.Timeout,
		}
	}

	return s
}

func newBot(tb *telebot.Bot, cfg config.Config, log *slog.Logger, deps Deps) *Bot {
	if deps.Translator == nil {
		deps.Translator = i18n.Default()
	}
	if deps.Errors == nil {
		deps.Errors = errors.NewHandler(log, cfg.Sentry.Enabled)
	}

	dispatcher := NewDispatcher(deps.Store, log)
	b := &Bot{
		telebot:     tb,
		log:         log,
		cfg:         cfg,
		deps:        deps,
		router:      NewRouter(dispatcher, log),
		dispatcher:  dispatcher,
		rateLimitMw: deps.RateLimit,
	}

	b.setupRouter()

	if b.telebot != nil {
		if b.rateLimitMw != nil {
			b.telebot.Use(b.rateLimitMw.Handle)
		}
		b.registerTelebotHandlers()
	}

	return b
}

// Start publishes the command menu and runs the telegram bot event loop.
func (b *Bot) Start() {
	if b.telebot == nil {
		return
	}

	if err := b.telebot.SetCommands(commandList); err != nil {
		b.log.Warn("failed to publish bot commands", slog.Any("error", err))
	}

	b.telebot.Start()
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

func (b *Bot) setupRouter() {
	svc := b.deps.Service
	tr := b.deps.Translator

	b.router.Use(RecoveryMiddleware(b.log, b.deps.Errors, tr))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(middleware.Idempotency(b.deps.Idempotency, 0, b.log))
	b.router.Use(ErrorHandlingMiddleware(b.deps.Errors, tr, b.log))
	b.router.Use(middleware.Metrics)

	b.router.RegisterCommand(CommandStart, handlers.Adapt(svc.Start, handlers.NoArg))
	b.router.RegisterCommand(CommandBet, handlers.Adapt(svc.EnterBetting, handlers.CommandArgs))
	b.router.RegisterCommand(CommandAdd, handlers.Adapt(svc.AddBet, handlers.NoArg))
	b.router.RegisterCommand(CommandCart, handlers.Adapt(svc.ViewCart, handlers.NoArg))
	b.router.RegisterCommand(CommandConfirm, handlers.Adapt(svc.Confirm, handlers.NoArg))
	b.router.RegisterCommand(CommandClear, handlers.Adapt(svc.Clear, handlers.NoArg))
	b.router.RegisterCommand(CommandCancel, handlers.Adapt(svc.Cancel, handlers.NoArg))
	b.router.RegisterCommand(CommandSearch, handlers.Adapt(svc.EnterSearch, handlers.CommandArgs))
	b.router.RegisterCommand(CommandBrowse, handlers.Adapt(svc.Browse, handlers.NoArg))

	callbacks := map[string]handlers.Action{
		keyboard.ActionPick:        svc.Pick,
		keyboard.ActionCart:        svc.CartCommand,
		keyboard.ActionAmount:      svc.Amount,
		keyboard.ActionBrowse:      svc.BrowseKind,
		keyboard.ActionPlayersPage: svc.BrowsePlayers,
		keyboard.ActionLines:       svc.Lines,
		keyboard.ActionMenu:        svc.Menu,
	}
	for action, fn := range callbacks {
		b.router.RegisterCallback(action, handlers.CallbackHandler(handlers.Adapt(fn, handlers.CallbackData)))
	}

	b.dispatcher.RegisterModeHandler(state.ModeMenu, handlers.Adapt(svc.MenuText, handlers.Text))
	b.dispatcher.RegisterModeHandler(state.ModeBetting, handlers.Adapt(svc.BettingText, handlers.Text))
	b.dispatcher.RegisterModeHandler(state.ModeSearch, handlers.Adapt(svc.SearchText, handlers.Text))
}

func (b *Bot) registerTelebotHandlers() {
	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
}
