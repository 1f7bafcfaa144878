package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: certgen <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run        Generate certificates from a batch file")
	fmt.Fprintln(w, "  check      Validate a batch file without compiling")
	fmt.Fprintln(w, "  init       Write a starter project")
	fmt.Fprintln(w, "  doctor     Check the compiler and container runtime")
	fmt.Fprintln(w, "  completion Generate shell completion script")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'certgen help <command>' for details on a specific command.")
}

// printRunUsage prints usage for the run command.
func printRunUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: certgen run <batch.yaml> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Expand every template for every student and compile the results to PDF.")
	printBatchFlags(w)
}

// printCheckUsage prints usage for the check command.
func printCheckUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: certgen check <batch.yaml> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Validate that every template can be expanded for every student.")
	fmt.Fprintln(w, "Nothing is compiled.")
	printBatchFlags(w)
}

func printBatchFlags(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  batch.yaml    Batch description (YAML or JSON)")
	fmt.Fprintln(w, "                Keys: students, templates, resources, global,")
	fmt.Fprintln(w, "                workingDirectory, outputDirectory")
	fmt.Fprintln(w, "                global.date accepts \"auto\" or \"auto:FORMAT\"")
	fmt.Fprintln(w, "                (YYYY, YY, MMMM, MMM, MM, M, DD, D; presets iso, european, us, long, german)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Directories:")
	fmt.Fprintln(w, "  -o, --output <dir>        Output directory")
	fmt.Fprintln(w, "      --work-dir <dir>      Working directory")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Engine:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel compilers (0 = auto)")
	fmt.Fprintln(w, "  -t, --timeout <d>         Per-certificate timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w, "      --sandbox             Compile inside a container")
	fmt.Fprintln(w, "      --no-sandbox          Run the compiler directly")
	fmt.Fprintln(w, "      --sequential          Compile one certificate at a time")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logs")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  CERTGEN_CONFIG, CERTGEN_TIMEOUT, CERTGEN_WORKERS, CERTGEN_SANDBOXED,")
	fmt.Fprintln(w, "  CERTGEN_IMAGE, CERTGEN_WORK_DIR, CERTGEN_OUTPUT_DIR")
}

// printInitUsage prints usage for the init command.
func printInitUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: certgen init [dir] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Write certificate-generator.sty, a sample template, batch file")
	fmt.Fprintln(w, "and configuration into dir (default: current directory).")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "      --force               Overwrite existing files")
	fmt.Fprintln(w, "      --asset-path <dir>    Take files from dir, falling back to built-ins")
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: certgen doctor [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that the configured compiler or container runtime can run.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --json                Output JSON")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "run":
		printRunUsage(env.Stdout)
	case "check":
		printCheckUsage(env.Stdout)
	case "init":
		printInitUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "completion":
		printCompletionUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: certgen version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: certgen help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
