package runner

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeInput_Limit(t *testing.T) {
	cases := map[string]struct {
		env  string
		size int
		ok   bool
	}{
		"default, one below": {size: DefaultMaxInputSize - 1, ok: true},
		"default, at limit":  {size: DefaultMaxInputSize, ok: true},
		"default, one over":  {size: DefaultMaxInputSize + 1},
		"env limit":          {env: "10", size: 11},
		"env limit, fits":    {env: "10", size: 10, ok: true},
		"env garbage":        {env: "lots", size: DefaultMaxInputSize, ok: true},
		"env zero ignored":   {env: "0", size: 100, ok: true},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if tc.env != "" {
				t.Setenv(EnvMaxInputSize, tc.env)
			}
			got, err := SanitizeInput(strings.Repeat("a", tc.size))
			if tc.ok {
				if err != nil {
					t.Fatalf("size %d rejected: %v", tc.size, err)
				}
				if len(got) != tc.size {
					t.Errorf("size %d came back as %d bytes", tc.size, len(got))
				}
				return
			}
			if !errors.Is(err, ErrInputTooLarge) {
				t.Errorf("size %d: got err %v, want ErrInputTooLarge", tc.size, err)
			}
		})
	}
}

func TestSanitizeInput_StripsControls(t *testing.T) {
	cases := []struct{ in, want string }{
		{"She go to school", "She go to school"},
		{"\x1b[1mI has\x1b[0m a apple", "[1mI has[0m a apple"},
		{"nul\x00 bel\x07 del\x7f", "nul bel del"},
		{"next\u0085line", "nextline"},
		{"Their going.\r\n\nShe go\tevery day.", "Their going.\r\n\nShe go\tevery day."},
		{"café → ok 😊", "café → ok 😊"},
	}
	for _, tc := range cases {
		got, err := SanitizeInput(tc.in)
		if err != nil {
			t.Fatalf("SanitizeInput(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("SanitizeInput(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeInput_RejectsInvalidUTF8(t *testing.T) {
	for _, in := range []string{"\xff", "ok then \xbd\xb2", "\xe2\x8c"} {
		if _, err := SanitizeInput(in); !errors.Is(err, ErrInvalidUTF8) {
			t.Errorf("SanitizeInput(%q): got %v, want ErrInvalidUTF8", in, err)
		}
	}
}
