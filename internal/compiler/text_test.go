package compiler

import (
	"reflect"
	"testing"
)

func TestSanitizeLine(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"“quoted” ‘word’", `"quoted" 'word'`},
		{"a—b–c", "a-b-c"},
		{"wait…", "wait..."},
		{"café \U0001f600 ok", "caf  ok"},
		{"\U0001f600\U0001f600", ""},
		{"  padded  ", "padded"},
	}
	for _, tc := range cases {
		if got := SanitizeLine(tc.in); got != tc.want {
			t.Errorf("SanitizeLine(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEscapeDrawtext(t *testing.T) {
	if got := escapeDrawtext(`10:30, 50% [a;b]`); got != `10\:30\, 50\% \[a\;b\]` {
		t.Errorf("escapeDrawtext = %q", got)
	}
	if got := escapeDrawtext(`it's a \ path`); got != `it\'s a \\ path` {
		t.Errorf("escapeDrawtext = %q", got)
	}
}

func TestLineAdvance(t *testing.T) {
	if got := lineAdvance(40); got != 48 {
		t.Errorf("lineAdvance(40) = %d, want 48", got)
	}
	if got := lineAdvance(33); got != 40 {
		t.Errorf("lineAdvance(33) = %d, want 40", got)
	}
}

func TestSplitLines(t *testing.T) {
	got := splitLines("one\r\ntwo\nthree")
	if !reflect.DeepEqual(got, []string{"one", "two", "three"}) {
		t.Errorf("splitLines = %v", got)
	}
}
