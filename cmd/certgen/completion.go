package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// Shell represents a supported shell for completion generation.
type Shell string

// Supported shells for completion.
const (
	ShellBash Shell = "bash"
	ShellZsh  Shell = "zsh"
	ShellFish Shell = "fish"
)

// ErrUnsupportedShell is returned when an unknown shell is requested.
var ErrUnsupportedShell = errors.New("unsupported shell")

// flagType represents the completion type for a flag.
type flagType int

const (
	flagString flagType = iota // default
	flagBool
	flagInt
	flagFile // file with glob pattern
	flagDir  // directory
)

// flagDef describes a flag for completion purposes.
type flagDef struct {
	Long     string   // --output
	Short    string   // -o (empty if none)
	Type     flagType // completion type
	Desc     string   // help text
	FileGlob []string // for file flags, extensions without the dot
}

// commandDef describes a command for completion.
type commandDef struct {
	Name      string
	Desc      string
	Flags     []flagDef
	FileGlob  []string // extensions of file arguments, nil when none
	TakesDirs bool     // accepts a directory argument
}

// completionMeta holds completion-specific metadata for flags.
// Flag names, types and descriptions come from the FlagSets.
type completionMeta struct {
	FileGlob []string
	IsDir    bool
}

// batchExts are the extensions of batch descriptions and config files.
var batchExts = []string{"yaml", "yml", "json"}

// flagCompletionMeta maps flag names to their completion metadata.
var flagCompletionMeta = map[string]completionMeta{
	"config":     {FileGlob: batchExts},
	"output":     {IsDir: true},
	"work-dir":   {IsDir: true},
	"asset-path": {IsDir: true},
}

// extractFlags converts a FlagSet to completion definitions.
func extractFlags(fs *flag.FlagSet) []flagDef {
	var flags []flagDef

	fs.VisitAll(func(f *flag.Flag) {
		fd := flagDef{
			Long:  f.Name,
			Short: f.Shorthand,
			Desc:  f.Usage,
		}

		switch f.Value.Type() {
		case "bool":
			fd.Type = flagBool
		case "int":
			fd.Type = flagInt
		default:
			fd.Type = flagString
		}

		if meta, ok := flagCompletionMeta[f.Name]; ok {
			switch {
			case len(meta.FileGlob) > 0:
				fd.Type = flagFile
				fd.FileGlob = meta.FileGlob
			case meta.IsDir:
				fd.Type = flagDir
			}
		}

		flags = append(flags, fd)
	})

	return flags
}

// getCommands returns the command registry for completion.
func getCommands() []commandDef {
	batch := extractFlags(newBatchFlagSet("run", &batchFlags{}))

	return []commandDef{
		{Name: "run", Desc: "Generate certificates from a batch file", Flags: batch, FileGlob: batchExts},
		{Name: "check", Desc: "Validate a batch file without compiling", Flags: batch, FileGlob: batchExts},
		{Name: "init", Desc: "Write a starter project", Flags: extractFlags(newInitFlagSet(&initFlags{})), TakesDirs: true},
		{Name: "doctor", Desc: "Check the compiler and container runtime", Flags: extractFlags(newDoctorFlagSet(&doctorFlags{}))},
		{Name: "version", Desc: "Show version information"},
		{Name: "help", Desc: "Show help for a command"},
		{Name: "completion", Desc: "Generate shell completion script"},
	}
}

// GenerateCompletion writes shell completion script to w.
func GenerateCompletion(w io.Writer, shell Shell) error {
	switch shell {
	case ShellBash:
		return generateBash(w, false)
	case ShellZsh:
		return generateBash(w, true)
	case ShellFish:
		return generateFish(w)
	default:
		return fmt.Errorf("%w: %q (supported: bash, zsh, fish)", ErrUnsupportedShell, shell)
	}
}

// runCompletion handles the completion command.
func runCompletion(args []string, env *Environment) error {
	if len(args) == 0 {
		printCompletionUsage(env.Stdout)
		return nil
	}
	if err := GenerateCompletion(env.Stdout, Shell(args[0])); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

// generateBash writes a bash completion function. zsh loads it through
// bashcompinit.
func generateBash(w io.Writer, zsh bool) error {
	cmds := getCommands()
	var b strings.Builder

	if zsh {
		b.WriteString("#compdef certgen\nautoload -U +X bashcompinit && bashcompinit\n\n")
	}
	b.WriteString("_certgen() {\n")
	b.WriteString("  local cur prev cmd\n")
	b.WriteString("  COMPREPLY=()\n")
	b.WriteString("  cur=\"${COMP_WORDS[COMP_CWORD]}\"\n")
	b.WriteString("  prev=\"${COMP_WORDS[COMP_CWORD-1]}\"\n")
	b.WriteString("  cmd=\"${COMP_WORDS[1]}\"\n\n")

	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}
	fmt.Fprintf(&b, "  if [ \"$COMP_CWORD\" -eq 1 ]; then\n    COMPREPLY=( $(compgen -W %q -- \"$cur\") )\n    return\n  fi\n\n", strings.Join(names, " "))

	// Flag values.
	b.WriteString("  case \"$prev\" in\n")
	for _, fd := range uniqueFlags(cmds) {
		switch fd.Type {
		case flagFile:
			fmt.Fprintf(&b, "    %s) COMPREPLY=( $(compgen -f -X '!*.@(%s)' -- \"$cur\") ); return ;;\n",
				flagPattern(fd), strings.Join(fd.FileGlob, "|"))
		case flagDir:
			fmt.Fprintf(&b, "    %s) COMPREPLY=( $(compgen -d -- \"$cur\") ); return ;;\n", flagPattern(fd))
		case flagString, flagInt:
			fmt.Fprintf(&b, "    %s) return ;;\n", flagPattern(fd))
		}
	}
	b.WriteString("  esac\n\n")

	// Flags and arguments per command.
	b.WriteString("  case \"$cmd\" in\n")
	for _, c := range cmds {
		var words []string
		for _, fd := range c.Flags {
			words = append(words, "--"+fd.Long)
			if fd.Short != "" {
				words = append(words, "-"+fd.Short)
			}
		}
		fmt.Fprintf(&b, "    %s)\n", c.Name)
		if len(words) > 0 {
			fmt.Fprintf(&b, "      if [[ \"$cur\" == -* ]]; then COMPREPLY=( $(compgen -W %q -- \"$cur\") ); return; fi\n", strings.Join(words, " "))
		}
		switch {
		case c.Name == "help" || c.Name == "completion":
			args := strings.Join(names, " ")
			if c.Name == "completion" {
				args = "bash zsh fish"
			}
			fmt.Fprintf(&b, "      COMPREPLY=( $(compgen -W %q -- \"$cur\") )\n", args)
		case len(c.FileGlob) > 0:
			fmt.Fprintf(&b, "      COMPREPLY=( $(compgen -f -X '!*.@(%s)' -- \"$cur\") )\n", strings.Join(c.FileGlob, "|"))
		case c.TakesDirs:
			b.WriteString("      COMPREPLY=( $(compgen -d -- \"$cur\") )\n")
		}
		b.WriteString("      ;;\n")
	}
	b.WriteString("  esac\n}\n\n")
	b.WriteString("shopt -s extglob 2>/dev/null\n")
	b.WriteString("complete -o filenames -F _certgen certgen\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// generateFish writes fish completions.
func generateFish(w io.Writer) error {
	cmds := getCommands()
	var b strings.Builder

	b.WriteString("complete -c certgen -f\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "complete -c certgen -n __fish_use_subcommand -a %s -d %q\n", c.Name, c.Desc)
	}
	for _, c := range cmds {
		cond := "__fish_seen_subcommand_from " + c.Name
		for _, fd := range c.Flags {
			fmt.Fprintf(&b, "complete -c certgen -n %q -l %s", cond, fd.Long)
			if fd.Short != "" {
				fmt.Fprintf(&b, " -s %s", fd.Short)
			}
			switch fd.Type {
			case flagFile, flagDir:
				b.WriteString(" -r -F")
			case flagString, flagInt:
				b.WriteString(" -r")
			}
			fmt.Fprintf(&b, " -d %q\n", fd.Desc)
		}
		switch {
		case len(c.FileGlob) > 0, c.TakesDirs:
			fmt.Fprintf(&b, "complete -c certgen -n %q -F\n", cond)
		case c.Name == "completion":
			fmt.Fprintf(&b, "complete -c certgen -n %q -a 'bash zsh fish'\n", cond)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// uniqueFlags returns each flag once across all commands, in first-seen order.
func uniqueFlags(cmds []commandDef) []flagDef {
	seen := make(map[string]bool)
	var out []flagDef
	for _, c := range cmds {
		for _, fd := range c.Flags {
			if !seen[fd.Long] {
				seen[fd.Long] = true
				out = append(out, fd)
			}
		}
	}
	return out
}

// flagPattern returns the bash case pattern matching a flag's spellings.
func flagPattern(fd flagDef) string {
	if fd.Short == "" {
		return "--" + fd.Long
	}
	return "--" + fd.Long + "|-" + fd.Short
}

// printCompletionUsage prints help for the completion command.
func printCompletionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: certgen completion <shell>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate shell completion script for the specified shell.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Supported shells:")
	fmt.Fprintln(w, "  bash        Bash completion script")
	fmt.Fprintln(w, "  zsh         Zsh completion script")
	fmt.Fprintln(w, "  fish        Fish completion script")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Installation:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Bash:")
	fmt.Fprintln(w, "    # Add to ~/.bashrc:")
	fmt.Fprintln(w, "    eval \"$(certgen completion bash)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Zsh:")
	fmt.Fprintln(w, "    # Add to ~/.zshrc:")
	fmt.Fprintln(w, "    eval \"$(certgen completion zsh)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Fish:")
	fmt.Fprintln(w, "    certgen completion fish > ~/.config/fish/completions/certgen.fish")
}
