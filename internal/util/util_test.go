package util

import "testing"

func TestMaskToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6", "a1b2...c5d6"},
		{"abcdef", "ab...ef"},
		{"abcd", "a...d"},
		{"ab", "ab"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := MaskToken(tc.in); got != tc.want {
			t.Fatalf("MaskToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMaskEmail(t *testing.T) {
	t.Parallel()

	if got := MaskEmail("taro.yamada@example.com"); got != "taro...mada@example.com" {
		t.Fatalf("MaskEmail() = %q", got)
	}
	if got := MaskEmail("not-an-email"); got != "not-...mail" {
		t.Fatalf("MaskEmail(no at) = %q", got)
	}
}
