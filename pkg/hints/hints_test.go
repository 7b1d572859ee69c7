package hints

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleHints = `
hints:
  - keyword: starbucks
    account: Expenses:Food:Coffee
  - keyword: coffee
    account: Expenses:Food
  - keyword: "  "
    account: Expenses:Ignored
  - keyword: rent
    account: ""
`

func TestParse(t *testing.T) {
	mapper, err := Parse([]byte(sampleHints))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if mapper.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (blank keyword and account dropped)", mapper.Len())
	}
}

func TestAccountFor(t *testing.T) {
	mapper, err := Parse([]byte(sampleHints))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	tests := []struct {
		name        string
		description string
		want        string
	}{
		{"case insensitive", "STARBUCKS #1234", "Expenses:Food:Coffee"},
		{"longest keyword wins", "starbucks coffee downtown", "Expenses:Food:Coffee"},
		{"shorter keyword", "Corner Coffee", "Expenses:Food"},
		{"no match", "Utility bill", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapper.AccountFor(tt.description); got != tt.want {
				t.Errorf("AccountFor(%q) = %q, want %q", tt.description, got, tt.want)
			}
		})
	}
}

func TestNewMapper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hints.yaml")
	if err := os.WriteFile(path, []byte(sampleHints), 0644); err != nil {
		t.Fatal(err)
	}

	mapper, err := NewMapper(path)
	if err != nil {
		t.Fatalf("NewMapper() error = %v", err)
	}
	if got := mapper.AccountFor("starbucks"); got != "Expenses:Food:Coffee" {
		t.Errorf("AccountFor() = %q, want Expenses:Food:Coffee", got)
	}
}

func TestNewMapperMissingFile(t *testing.T) {
	if _, err := NewMapper(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("NewMapper() on missing file succeeded, want error")
	}
}

func TestEmptyMapper(t *testing.T) {
	if got := Empty().AccountFor("anything"); got != "" {
		t.Errorf("Empty().AccountFor() = %q, want empty", got)
	}
}
