package keyboard

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/strike-bot/internal/i18n"
)

// MainMenu builds the persistent reply keyboard. Button labels double as
// text keywords, so tapping one routes like typing it.
func MainMenu(t i18n.Translator) *telebot.ReplyMarkup {
	if t == nil {
		t = i18n.Default()
	}

	markup := &telebot.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: false,
	}

	placeBtn := markup.Text(t.T("menu.place_bets"))
	searchBtn := markup.Text(t.T("menu.search"))
	browseBtn := markup.Text(t.T("menu.browse"))
	cartBtn := markup.Text(t.T("menu.cart"))

	markup.Reply(
		markup.Row(placeBtn, searchBtn),
		markup.Row(browseBtn, cartBtn),
	)

	return markup
}
