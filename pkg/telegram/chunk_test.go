package telegram

import (
	"strings"
	"testing"
)

func TestChunkText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"empty", "", 10, nil},
		{"whitespace only", "  \n ", 10, nil},
		{"fits in one chunk", "hello", 10, []string{"hello"}},
		{"exactly at limit", "1234567890", 10, []string{"1234567890"}},
		{"splits at newline", "aaaa\nbbbb\ncccc", 10, []string{"aaaa\nbbbb", "cccc"}},
		{"hard split without newline", "abcdefghijkl", 5, []string{"abcde", "fghij", "kl"}},
		{"no limit", "whatever", 0, []string{"whatever"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChunkText(tt.text, tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("ChunkText() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestChunkTextRespectsLimit(t *testing.T) {
	text := strings.Repeat("line of a ledger entry\n", 500)

	for _, chunk := range ChunkText(text, MaxMessageLength) {
		if length := len([]rune(chunk)); length > MaxMessageLength {
			t.Errorf("chunk length %d exceeds limit %d", length, MaxMessageLength)
		}
		if chunk == "" {
			t.Error("empty chunk emitted")
		}
	}
}

func TestChunkTextPreservesContent(t *testing.T) {
	text := "first entry\nsecond entry\nthird entry"

	joined := strings.Join(ChunkText(text, 13), "\n")
	if joined != text {
		t.Errorf("rejoined chunks = %q, want original %q", joined, text)
	}
}
