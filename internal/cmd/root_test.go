package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	if cmd == nil {
		t.Fatal("Root command should not be nil")
	}
	if cmd.Use != "standards" {
		t.Errorf("Expected Use to be 'standards', got '%s'", cmd.Use)
	}

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("--help returned error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"standards", "static analysis", "--no-color", "--verbose", "--config"} {
		if !strings.Contains(output, want) {
			t.Errorf("Help text should contain %q, got: %s", want, output)
		}
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	want := map[string]bool{"run": false, "list": false, "history": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestVersionFlag(t *testing.T) {
	cmd := NewRootCommand()

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("--version returned error: %v", err)
	}
	if !strings.Contains(buf.String(), Version) {
		t.Errorf("Version output should contain %q, got: %s", Version, buf.String())
	}
}

func TestExitError(t *testing.T) {
	if got := (&ExitError{Code: 255}).Error(); got != "exit status 255" {
		t.Errorf("unexpected message %q", got)
	}
	err := exitError(1, "bad %s", "value")
	if err.Code != 1 || err.Error() != "bad value" {
		t.Errorf("unexpected exit error %+v", err)
	}
}
