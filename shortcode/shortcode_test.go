package shortcode

import (
	"strings"
	"testing"
)

func TestGenerate_Length(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{"Default on zero", 0, DefaultLength},
		{"Length 8", 8, 8},
		{"Length 12", 12, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(tt.length)
			code, err := g.Generate()
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if len(code) != tt.want {
				t.Errorf("Generate() length = %d, want %d", len(code), tt.want)
			}
		})
	}
}

func TestGenerate_Charset(t *testing.T) {
	g := NewGenerator(32)
	code, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for _, ch := range code {
		if !strings.ContainsRune(charset, ch) {
			t.Errorf("Invalid character %c in generated code", ch)
		}
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	g := NewGenerator(8)
	generated := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if generated[code] {
			t.Errorf("Duplicate code generated: %s", code)
		}
		generated[code] = true
	}
}
