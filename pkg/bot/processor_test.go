package bot

import (
	"errors"
	"strings"
	"testing"

	"github.com/shunichi-ikebuchi/beancount-bot/pkg/extractor"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/telegram"
)

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantCommand string
		wantPayload string
	}{
		{"bare command", "/start", "/start", ""},
		{"command with payload", "/instruction always use USD", "/instruction", "always use USD"},
		{"bot mention stripped", "/accounts@beanbot", "/accounts", ""},
		{"mention with payload", "/instruction@beanbot reset", "/instruction", "reset"},
		{"uppercase normalized", "/START", "/start", ""},
		{"newline separator", "/instruction\nmulti line\ntext", "/instruction", "multi line\ntext"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, payload := splitCommand(tt.text)
			if command != tt.wantCommand {
				t.Errorf("command = %q, want %q", command, tt.wantCommand)
			}
			if payload != tt.wantPayload {
				t.Errorf("payload = %q, want %q", payload, tt.wantPayload)
			}
		})
	}
}

func TestLooksLikeTransaction(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"I spent 13000 KZT on dinner", true},
		{"coffee 4.50", true},
		{"hello there", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := looksLikeTransaction(tt.text); got != tt.want {
			t.Errorf("looksLikeTransaction(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestUserIDOf(t *testing.T) {
	withFrom := &telegram.Message{
		From: &telegram.User{ID: 42},
		Chat: telegram.Chat{ID: 100},
	}
	if got := userIDOf(withFrom); got != "42" {
		t.Errorf("userIDOf = %q, want %q", got, "42")
	}

	channelPost := &telegram.Message{Chat: telegram.Chat{ID: 100}}
	if got := userIDOf(channelPost); got != "100" {
		t.Errorf("userIDOf = %q, want %q", got, "100")
	}
}

func TestParseCallbackData(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		wantAction string
		wantID     int64
		wantOK     bool
	}{
		{"accept", "accept:7", "accept", 7, true},
		{"reject", "reject:123", "reject", 123, true},
		{"autofix", "autofix:1", "autofix", 1, true},
		{"missing separator", "accept", "", 0, false},
		{"non-numeric id", "accept:abc", "", 0, false},
		{"zero id", "accept:0", "", 0, false},
		{"negative id", "reject:-5", "", 0, false},
		{"empty", "", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, id, ok := parseCallbackData(tt.data)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if action != tt.wantAction || id != tt.wantID {
				t.Errorf("got (%q, %d), want (%q, %d)", action, id, tt.wantAction, tt.wantID)
			}
		})
	}
}

func TestReviewKeyboardCallbackData(t *testing.T) {
	markup := reviewKeyboard(42)
	if len(markup.InlineKeyboard) != 1 || len(markup.InlineKeyboard[0]) != 2 {
		t.Fatalf("unexpected keyboard shape: %+v", markup.InlineKeyboard)
	}
	if got := markup.InlineKeyboard[0][0].CallbackData; got != "accept:42" {
		t.Errorf("accept button data = %q", got)
	}
	if got := markup.InlineKeyboard[0][1].CallbackData; got != "reject:42" {
		t.Errorf("reject button data = %q", got)
	}

	errMarkup := errorKeyboard(42)
	if got := errMarkup.InlineKeyboard[0][0].CallbackData; got != "autofix:42" {
		t.Errorf("autofix button data = %q", got)
	}
}

func TestKeyboardsRoundTripThroughParser(t *testing.T) {
	for _, button := range append(reviewKeyboard(9).InlineKeyboard[0], errorKeyboard(9).InlineKeyboard[0]...) {
		action, id, ok := parseCallbackData(button.CallbackData)
		if !ok || id != 9 {
			t.Errorf("button %q did not parse back: action=%q id=%d ok=%v", button.CallbackData, action, id, ok)
		}
	}
}

func TestStatementErrorText(t *testing.T) {
	if got := statementErrorText(extractor.ErrNoAccounts); !strings.Contains(got, "no accounts yet") {
		t.Errorf("ErrNoAccounts text = %q", got)
	}

	disallowed := &extractor.DisallowedAccountsError{Accounts: []string{"Expenses:Unknown"}}
	if got := statementErrorText(disallowed); !strings.Contains(got, "Expenses:Unknown") {
		t.Errorf("disallowed accounts text = %q", got)
	}

	if got := statementErrorText(errors.New("boom")); !strings.Contains(got, "boom") {
		t.Errorf("generic error text = %q", got)
	}
}
