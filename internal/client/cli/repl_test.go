package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeExec struct {
	loggedIn bool
	calls    []string
	err      error
}

func (f *fakeExec) rec(name string, args []string) error {
	f.calls = append(f.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	return f.err
}

func (f *fakeExec) isLoggedIn() bool                              { return f.loggedIn }
func (f *fakeExec) Login(context.Context) error {
	f.loggedIn = true
	return f.rec("login", nil)
}
func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.rec("logout", nil)
}
func (f *fakeExec) Ping(context.Context) error                    { return f.rec("ping", nil) }
func (f *fakeExec) List(_ context.Context, a []string) error      { return f.rec("ls", a) }
func (f *fakeExec) Show(_ context.Context, a []string) error      { return f.rec("show", a) }
func (f *fakeExec) New(_ context.Context, a []string) error       { return f.rec("new", a) }
func (f *fakeExec) Edit(_ context.Context, a []string) error      { return f.rec("edit", a) }
func (f *fakeExec) Publish(_ context.Context, a []string) error   { return f.rec("publish", a) }
func (f *fakeExec) Unpublish(_ context.Context, a []string) error { return f.rec("unpublish", a) }
func (f *fakeExec) Rollback(_ context.Context, a []string) error  { return f.rec("rollback", a) }
func (f *fakeExec) Revert(_ context.Context, a []string) error    { return f.rec("revert", a) }
func (f *fakeExec) Diff(_ context.Context, a []string) error      { return f.rec("diff", a) }
func (f *fakeExec) Move(_ context.Context, a []string) error      { return f.rec("mv", a) }
func (f *fakeExec) Remove(_ context.Context, a []string) error    { return f.rec("rm", a) }
func (f *fakeExec) Link(_ context.Context, a []string) error      { return f.rec("link", a) }
func (f *fakeExec) Crumbs(_ context.Context, a []string) error    { return f.rec("crumbs", a) }
func (f *fakeExec) Duplicate(_ context.Context, a []string) error { return f.rec("dup", a) }

// capturePrintln swaps printlnFn for the duration of the test.
func capturePrintln(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, fmt.Sprint(a...))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_Dispatch(t *testing.T) {
	capturePrintln(t)

	input := strings.Join([]string{
		"help",
		"login",
		"ls",
		"show abc live",
		"",
		"publish abc",
		"mv abc -",
		"dup abc deep",
		"foobar",
		"exit",
		"ping",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewReader(strings.NewReader(input)))

	want := []string{"login", "ls", "show abc live", "publish abc", "mv abc -", "dup abc deep"}
	if len(exec.calls) != len(want) {
		t.Fatalf("unexpected calls: %+v", exec.calls)
	}
	for i := range want {
		if exec.calls[i] != want[i] {
			t.Fatalf("call %d: want %q, got %q", i, want[i], exec.calls[i])
		}
	}
}

func TestRunREPL_LastLineWithoutNewline(t *testing.T) {
	capturePrintln(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("ping")))

	if len(exec.calls) != 1 || exec.calls[0] != "ping" {
		t.Fatalf("unexpected calls: %+v", exec.calls)
	}
}

func TestRunREPL_ReportsErrors(t *testing.T) {
	lines := capturePrintln(t)

	exec := &fakeExec{err: status.Error(codes.NotFound, "not found")}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("show x\nexit\n")))

	found := false
	for _, l := range *lines {
		if strings.Contains(l, "Error (NotFound): not found") {
			found = true
		}
	}
	if !found {
		t.Fatalf("error not reported: %+v", *lines)
	}
}

func TestRunREPL_Usage(t *testing.T) {
	lines := capturePrintln(t)

	exec := &fakeExec{err: errUsage}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("publish\n")))

	found := false
	for _, l := range *lines {
		if strings.Contains(l, "Usage:publish <id>") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected usage, got %+v", *lines)
	}
}

func TestHelp(t *testing.T) {
	if strings.Contains(help(false), "publish") {
		t.Fatalf("anonymous help should not offer publish")
	}
	if !strings.Contains(help(true), "publish") {
		t.Fatalf("signed-in help should offer publish")
	}
}
