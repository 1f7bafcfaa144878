package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestGenerateCompletion - Scripts mention every command and flag
// ---------------------------------------------------------------------------

func TestGenerateCompletion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		shell Shell
		want  []string
	}{
		{ShellBash, []string{"complete -o filenames -F _certgen certgen", "--work-dir", "--no-sandbox", "--asset-path", "compgen -d"}},
		{ShellZsh, []string{"#compdef certgen", "bashcompinit", "_certgen"}},
		{ShellFish, []string{"__fish_use_subcommand -a run", "-l output -s o -r -F", "-l json", "'bash zsh fish'"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.shell), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if err := GenerateCompletion(&buf, tt.shell); err != nil {
				t.Fatalf("GenerateCompletion: %v", err)
			}
			out := buf.String()
			for _, cmd := range getCommands() {
				if !strings.Contains(out, cmd.Name) {
					t.Errorf("script should mention command %q", cmd.Name)
				}
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("script should contain %q", w)
				}
			}
		})
	}
}

func TestGenerateCompletion_UnsupportedShell(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := GenerateCompletion(&buf, "powershell")
	if !errors.Is(err, ErrUnsupportedShell) {
		t.Fatalf("err = %v, want ErrUnsupportedShell", err)
	}
	if buf.Len() != 0 {
		t.Error("nothing should be written for an unsupported shell")
	}
}

// ---------------------------------------------------------------------------
// TestGetCommands - Flags come from the real FlagSets
// ---------------------------------------------------------------------------

func TestGetCommands(t *testing.T) {
	t.Parallel()

	byName := make(map[string]commandDef)
	for _, c := range getCommands() {
		byName[c.Name] = c
	}

	run, ok := byName["run"]
	if !ok {
		t.Fatal("run command missing")
	}
	types := make(map[string]flagType)
	for _, fd := range run.Flags {
		types[fd.Long] = fd.Type
	}
	want := map[string]flagType{
		"config":     flagFile,
		"output":     flagDir,
		"work-dir":   flagDir,
		"workers":    flagInt,
		"timeout":    flagString,
		"sequential": flagBool,
	}
	for name, typ := range want {
		if got, ok := types[name]; !ok || got != typ {
			t.Errorf("run flag %q type = %v (present %v), want %v", name, got, ok, typ)
		}
	}

	if !byName["init"].TakesDirs {
		t.Error("init should complete directories")
	}
	if len(byName["check"].FileGlob) == 0 {
		t.Error("check should complete batch files")
	}
}

// ---------------------------------------------------------------------------
// TestRunCompletion - Command entry point
// ---------------------------------------------------------------------------

func TestRunCompletion(t *testing.T) {
	t.Parallel()

	env, stdout, _ := testEnv()
	if err := runCompletion(nil, env); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout.String(), "Usage: certgen completion") {
		t.Errorf("no args should print usage, got:\n%s", stdout)
	}

	env, _, _ = testEnv()
	if err := runCompletion([]string{"tcsh"}, env); exitCodeFor(err) != ExitUsage {
		t.Errorf("unsupported shell exit code = %d, want %d", exitCodeFor(err), ExitUsage)
	}
}
