package keyboard

import (
	telebot "gopkg.in/telebot.v3"
)

// InlineButton is a button definition; Action and Data become the callback data.
type InlineButton struct {
	Text   string
	Action string
	Data   string
}

// InlineKeyboardBuilder accumulates rows of InlineButton definitions before rendering telebot markup.
type InlineKeyboardBuilder struct {
	rows [][]InlineButton
}

// NewInlineKeyboard creates a builder instance backed by inline reply markup.
func NewInlineKeyboard() *InlineKeyboardBuilder {
	return &InlineKeyboardBuilder{rows: make([][]InlineButton, 0)}
}

// AddRow appends a new row made of custom InlineButton definitions.
func (b *InlineKeyboardBuilder) AddRow(buttons ...InlineButton) *InlineKeyboardBuilder {
	if len(buttons) == 0 {
		return b
	}

	row := make([]InlineButton, len(buttons))
	copy(row, buttons)
	b.rows = append(b.rows, row)
	return b
}

// AddGrid lays buttons out perRow at a time.
func (b *InlineKeyboardBuilder) AddGrid(buttons []InlineButton, perRow int) *InlineKeyboardBuilder {
	if perRow <= 0 {
		perRow = len(buttons)
	}
	for start := 0; start < len(buttons); start += perRow {
		end := start + perRow
		if end > len(buttons) {
			end = len(buttons)
		}
		b.AddRow(buttons[start:end]...)
	}
	return b
}

// Empty reports whether no rows were added.
func (b *InlineKeyboardBuilder) Empty() bool {
	return len(b.rows) == 0
}

// Build renders the markup. Buttons carry plain callback data without a
// telebot unique prefix, so every callback reaches the OnCallback route.
func (b *InlineKeyboardBuilder) Build() (*telebot.ReplyMarkup, error) {
	inlineKeyboard := make([][]telebot.InlineButton, len(b.rows))
	for i, row := range b.rows {
		inlineKeyboard[i] = make([]telebot.InlineButton, len(row))
		for j, btn := range row {
			data, err := EncodeCallback(btn.Action, btn.Data)
			if err != nil {
				return nil, err
			}
			inlineKeyboard[i][j] = telebot.InlineButton{
				Text: btn.Text,
				Data: data,
			}
		}
	}

	return &telebot.ReplyMarkup{InlineKeyboard: inlineKeyboard}, nil
}
