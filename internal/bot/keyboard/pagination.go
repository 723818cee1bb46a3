package keyboard

import (
	"strconv"

	"github.com/Proton-105/strike-bot/internal/i18n"
)

// PaginationButtons returns up to three inline buttons (prev, current page, next)
// for a zero-based page. Callback data carries the target page index.
func PaginationButtons(t i18n.Translator, action string, page, totalPages int) []InlineButton {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 0 {
		page = 0
	}
	if page >= totalPages {
		page = totalPages - 1
	}
	if t == nil {
		t = i18n.Default()
	}

	buttons := make([]InlineButton, 0, 3)

	if page > 0 {
		buttons = append(buttons, InlineButton{
			Text:   t.T("buttons.prev"),
			Action: action,
			Data:   strconv.Itoa(page - 1),
		})
	}

	buttons = append(buttons, InlineButton{
		Text:   t.Tf("buttons.page", page+1, totalPages),
		Action: action,
		Data:   strconv.Itoa(page),
	})

	if page < totalPages-1 {
		buttons = append(buttons, InlineButton{
			Text:   t.T("buttons.next"),
			Action: action,
			Data:   strconv.Itoa(page + 1),
		})
	}

	return buttons
}
