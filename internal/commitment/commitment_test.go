package commitment

import (
	"strings"
	"testing"
)

func TestComputeGolden(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://api.example.com/x", "c5d178f6a6b376a7460ce097e37bfec8cf35e251bcf917eb14f583af0e69ad82"},
		{"https://api.example.com/y", "0d956d2c8d54b3af4e248a9fe9db5e51f49b6c033bc87d4654fadb298d625dd1"},
		{"", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
	}

	for _, tt := range tests {
		if got := Compute(tt.in); got != tt.want {
			t.Errorf("Compute(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestComputeDeterministic(t *testing.T) {
	url := "https://api.someapi.com/somemethod?someparam=somevalue"
	first := Compute(url)

	for i := 0; i < 100; i++ {
		if got := Compute(url); got != first {
			t.Fatalf("call %d returned %s, want %s", i, got, first)
		}
	}
}

func TestComputeFormat(t *testing.T) {
	got := Compute("https://api.example.com/x")

	if len(got) != Size {
		t.Errorf("length = %d, want %d", len(got), Size)
	}

	if strings.ToLower(got) != got {
		t.Errorf("commitment %s is not lowercase", got)
	}
}

func TestComputeDistinctInputs(t *testing.T) {
	inputs := []string{
		"https://api.example.com/x",
		"https://api.example.com/x/",
		"https://api.example.com/X",
		"http://api.example.com/x",
		"https://api.example.com/x?a=1",
		"https://api.example.com/x?a=2",
		" https://api.example.com/x",
	}

	seen := make(map[string]string)
	for _, in := range inputs {
		c := Compute(in)
		if prev, ok := seen[c]; ok {
			t.Errorf("collision between %q and %q", prev, in)
		}
		seen[c] = in
	}
}

func TestMatches(t *testing.T) {
	url := "https://api.example.com/x"
	c := Compute(url)

	if !Matches(url, c) {
		t.Error("commitment of the same url should match")
	}

	if Matches("https://api.example.com/y", c) {
		t.Error("commitment of another url should not match")
	}

	if Matches(url, strings.ToUpper(c)) {
		t.Error("comparison must be byte-for-byte")
	}

	if Matches(url, c[:Size-1]) {
		t.Error("truncated commitment should not match")
	}
}
