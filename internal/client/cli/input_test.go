package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(bufio.NewReader(strings.NewReader("  hello \n")), "Title", &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Fatalf("got %q", got)
	}
	if out.String() != "Title\n> " {
		t.Fatalf("unexpected prompt %q", out.String())
	}

	got, err = GetSimpleText(bufio.NewReader(strings.NewReader("partial")), "x", &out)
	if err != nil || got != "partial" {
		t.Fatalf("partial line: %q, %v", got, err)
	}

	if _, err := GetSimpleText(bufio.NewReader(strings.NewReader("")), "x", &out); err == nil {
		t.Fatalf("expected EOF error")
	}
}

func TestGetMultiline(t *testing.T) {
	var out bytes.Buffer
	got, err := GetMultiline(bufio.NewReader(strings.NewReader("line 1\nline 2\n\nignored\n")), "Content", &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "line 1\nline 2" {
		t.Fatalf("got %q", got)
	}
}

func TestGetYesNo(t *testing.T) {
	var out bytes.Buffer
	for in, want := range map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false} {
		got, err := GetYesNo(bufio.NewReader(strings.NewReader(in)), "Sure?", &out)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: want %v", in, want)
		}
	}
}

func TestGetSecret(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	readPassword = func(int) ([]byte, error) { return []byte(" tok \n"), nil }
	var out bytes.Buffer
	got, err := GetSecret("Access token", &out)
	if err != nil || got != "tok" {
		t.Fatalf("got %q, %v", got, err)
	}

	boom := errors.New("no tty")
	readPassword = func(int) ([]byte, error) { return nil, boom }
	if _, err := GetSecret("Access token", &out); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}
