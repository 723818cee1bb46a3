package keyboard_test

import (
	"strings"
	"testing"

	"github.com/Proton-105/strike-bot/internal/bot/keyboard"
)

func TestEncodeCallback(t *testing.T) {
	tests := []struct {
		name      string
		action    string
		data      string
		want      string
		wantError bool
	}{
		{
			name:   "with data",
			action: "pick",
			data:   "25.5",
			want:   "pick:25.5",
		},
		{
			name:   "without data",
			action: "browse",
			data:   "",
			want:   "browse",
		},
		{
			name:      "empty action",
			action:    "",
			data:      "x",
			wantError: true,
		},
		{
			name:      "exceeds limit",
			action:    "lines",
			data:      strings.Repeat("x", keyboard.CallbackDataLimitBytes),
			wantError: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := keyboard.EncodeCallback(tt.action, tt.data)
			if tt.wantError {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got != tt.want {
				t.Errorf("EncodeCallback() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeCallback(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantAction string
		wantData   string
		wantErr    bool
	}{
		{
			name:       "action and data",
			input:      "bp:3",
			wantAction: "bp",
			wantData:   "3",
		},
		{
			name:       "only action",
			input:      "browse",
			wantAction: "browse",
			wantData:   "",
		},
		{
			name:       "multiple separators",
			input:      "lines:player:LeBron James",
			wantAction: "lines",
			wantData:   "player:LeBron James",
		},
		{
			name:       "telebot unique marker",
			input:      "\fcart:confirm",
			wantAction: "cart",
			wantData:   "confirm",
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			action, data, err := keyboard.DecodeCallback(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if action != tt.wantAction || data != tt.wantData {
				t.Errorf("DecodeCallback() = (%q, %q), want (%q, %q)", action, data, tt.wantAction, tt.wantData)
			}
		})
	}
}
