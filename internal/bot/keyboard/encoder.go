package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CallbackDataSeparator  = ":"
	CallbackDataLimitBytes = 64
)

// Callback actions. The first three match the engine's choice actions.
const (
	ActionPick        = "pick"
	ActionCart        = "cart"
	ActionAmount      = "amt"
	ActionBrowse      = "browse"
	ActionPlayersPage = "bp"
	ActionLines       = "lines"
	ActionMenu        = "menu"
)

// EncodeCallback joins action and data into callback data within Telegram's limit.
func EncodeCallback(action, data string) (string, error) {
	if action == "" {
		return "", errors.New("callback action is empty")
	}

	payload := action
	if data != "" {
		payload = action + CallbackDataSeparator + data
	}

	if len(payload) > CallbackDataLimitBytes {
		return "", fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackDataLimitBytes, len(payload))
	}

	return payload, nil
}

// DecodeCallback splits callback data at the first separator.
func DecodeCallback(callbackData string) (action, data string, err error) {
	callbackData = strings.TrimPrefix(callbackData, "\f")
	if callbackData == "" {
		return "", "", errors.New("callback data is empty")
	}

	idx := strings.Index(callbackData, CallbackDataSeparator)
	if idx == -1 {
		return callbackData, "", nil
	}

	return callbackData[:idx], callbackData[idx+len(CallbackDataSeparator):], nil
}
