package keyboard

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/strike-bot/internal/betting"
	"github.com/Proton-105/strike-bot/internal/i18n"
	"github.com/Proton-105/strike-bot/internal/search"
)

const (
	choicesPerRow = 3
	listPerRow    = 2
)

// Builder creates the bot's keyboards from translated labels.
type Builder struct {
	tr  i18n.Translator
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(tr i18n.Translator, log *slog.Logger) *Builder {
	if tr == nil {
		tr = i18n.Default()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Builder{tr: tr, log: log}
}

// MainMenu builds the persistent reply keyboard.
func (b *Builder) MainMenu() *telebot.ReplyMarkup {
	return MainMenu(b.tr)
}

// Choices renders engine choices as inline buttons. It returns nil when
// there is nothing to show or a choice does not fit in callback data; the
// reply text still lists the options in that case.
func (b *Builder) Choices(choices []betting.Choice) *telebot.ReplyMarkup {
	if len(choices) == 0 {
		return nil
	}

	buttons := make([]InlineButton, 0, len(choices))
	for _, c := range choices {
		buttons = append(buttons, InlineButton{Text: c.Label, Action: string(c.Action), Data: c.Value})
	}

	perRow := choicesPerRow
	if len(buttons) <= 4 {
		perRow = len(buttons)
	}

	return b.build(NewInlineKeyboard().AddGrid(buttons, perRow))
}

// BrowseMenu offers the browse dimensions.
func (b *Builder) BrowseMenu() *telebot.ReplyMarkup {
	kb := NewInlineKeyboard().
		AddRow(
			InlineButton{Text: b.tr.T("browse.player"), Action: ActionBrowse, Data: string(search.KindPlayer)},
			InlineButton{Text: b.tr.T("browse.stat"), Action: ActionBrowse, Data: string(search.KindStat)},
		).
		AddRow(
			InlineButton{Text: b.tr.T("browse.opponent"), Action: ActionBrowse, Data: string(search.KindOpponent)},
			InlineButton{Text: b.tr.T("browse.popular"), Action: ActionBrowse, Data: "popular"},
		)
	return b.build(kb)
}

// Players lists one page of players followed by pagination controls.
func (b *Builder) Players(names []string, page, pages int) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard().AddGrid(b.lineButtons(search.KindPlayer, names), listPerRow)
	if pages > 1 {
		kb.AddRow(PaginationButtons(b.tr, ActionPlayersPage, page, pages)...)
	}
	kb.AddRow(b.backButton())
	return b.build(kb)
}

// Values lists stat types or opponents, each opening its lines.
func (b *Builder) Values(kind search.Kind, values []string) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard().AddGrid(b.lineButtons(kind, values), listPerRow)
	kb.AddRow(b.backButton())
	return b.build(kb)
}

// Popular lists the most listed players and stat types.
func (b *Builder) Popular(players, stats []string) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard().
		AddGrid(b.lineButtons(search.KindPlayer, players), listPerRow).
		AddGrid(b.lineButtons(search.KindStat, stats), listPerRow).
		AddRow(b.backButton())
	return b.build(kb)
}

// BetActions follows a lines listing with shortcuts into betting.
func (b *Builder) BetActions() *telebot.ReplyMarkup {
	kb := NewInlineKeyboard().AddRow(
		InlineButton{Text: b.tr.T("buttons.add_bet"), Action: ActionCart, Data: betting.CartAdd},
		b.backButton(),
	)
	return b.build(kb)
}

func (b *Builder) lineButtons(kind search.Kind, values []string) []InlineButton {
	buttons := make([]InlineButton, 0, len(values))
	for _, v := range values {
		data := string(kind) + CallbackDataSeparator + v
		if len(ActionLines)+len(CallbackDataSeparator)+len(data) > CallbackDataLimitBytes {
			b.log.Warn("browse value too long for callback data", slog.String("value", v))
			continue
		}
		buttons = append(buttons, InlineButton{Text: v, Action: ActionLines, Data: data})
	}
	return buttons
}

func (b *Builder) backButton() InlineButton {
	return InlineButton{Text: b.tr.T("buttons.back"), Action: ActionMenu, Data: "browse"}
}

func (b *Builder) build(kb *InlineKeyboardBuilder) *telebot.ReplyMarkup {
	if kb.Empty() {
		return nil
	}
	markup, err := kb.Build()
	if err != nil {
		b.log.Warn("inline keyboard dropped", slog.Any("error", err))
		return nil
	}
	return markup
}
