package bot

import (
	telebot "gopkg.in/telebot.v3"
)

// Command constants for Telegram bot commands.
const (
	CommandStart   = "/start"
	CommandBet     = "/bet"
	CommandAdd     = "/add"
	CommandCart    = "/cart"
	CommandConfirm = "/confirm"
	CommandClear   = "/clear"
	CommandCancel  = "/cancel"
	CommandSearch  = "/search"
	CommandBrowse  = "/browse"
)

// keywords maps typed phrases, including the main menu button labels, to
// the command they stand for.
var keywords = map[string]string{
	"start":        CommandStart,
	"menu":         CommandStart,
	"main menu":    CommandStart,
	"place bets":   CommandBet,
	"add bet":      CommandAdd,
	"view cart":    CommandCart,
	"cart":         CommandCart,
	"confirm cart": CommandConfirm,
	"clear cart":   CommandClear,
	"exit":         CommandCancel,
	"cancel":       CommandCancel,
	"search":       CommandSearch,
	"browse":       CommandBrowse,
	"browse lines": CommandBrowse,
}

// commandList is published to Telegram for the client's command menu.
var commandList = []telebot.Command{
	{Text: "start", Description: "Main menu"},
	{Text: "bet", Description: "Describe bets in plain text"},
	{Text: "add", Description: "Build a bet step by step"},
	{Text: "cart", Description: "Show your cart"},
	{Text: "confirm", Description: "Confirm your cart"},
	{Text: "clear", Description: "Clear your cart"},
	{Text: "cancel", Description: "Cancel and return to the menu"},
	{Text: "search", Description: "Search lines"},
	{Text: "browse", Description: "Browse lines"},
}
