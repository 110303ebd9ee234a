package logging

import "testing"

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"alice@example.com": "al***@example.com",
		"a@x.com":           "a***@x.com",
		"ab@x.com":          "a***@x.com",
		"no-at-sign":        "***",
		"@x.com":            "***",
	}
	for in, want := range cases {
		if got := MaskEmail(in); got != want {
			t.Fatalf("MaskEmail(%q) = %q, want %q", in, got, want)
		}
	}
}
