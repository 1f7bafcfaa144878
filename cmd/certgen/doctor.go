package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	flag "github.com/spf13/pflag"

	certgen "github.com/alnah/go-certgen"
	"github.com/alnah/go-certgen/internal/process"
)

// dockerTimeout bounds each daemon request made by doctor.
const dockerTimeout = 5 * time.Second

// dockerClient is the subset of the Docker API used by doctor.
type dockerClient interface {
	Ping(ctx context.Context) (types.Ping, error)
	ServerVersion(ctx context.Context) (types.Version, error)
	ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error)
	Close() error
}

func newDockerClient() (dockerClient, error) {
	return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
}

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string       `json:"status"` // "ready", "warnings", "errors"
	Compiler compilerInfo `json:"compiler"`
	Runtime  runtimeInfo  `json:"runtime"`
	Env      envInfo      `json:"environment"`
	System   systemInfo   `json:"system"`
	Warnings []string     `json:"warnings,omitempty"`
	Errors   []string     `json:"errors,omitempty"`
}

// compilerInfo holds LaTeX compiler detection results.
type compilerInfo struct {
	Name      string `json:"name"`
	Sandboxed bool   `json:"sandboxed"`
	Found     bool   `json:"found"`
	Path      string `json:"path,omitempty"`
}

// runtimeInfo holds container runtime detection results.
type runtimeInfo struct {
	Name          string `json:"name"`
	Found         bool   `json:"found"`
	Path          string `json:"path,omitempty"`
	Daemon        bool   `json:"daemon"`
	ServerVersion string `json:"server_version,omitempty"`
	APIVersion    string `json:"api_version,omitempty"`
	Image         string `json:"image"`
	ImagePresent  bool   `json:"image_present"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable   bool `json:"temp_writable"`
	LimitsEnforced bool `json:"limits_enforced"`
}

// doctorFlags holds the doctor command flags.
type doctorFlags struct {
	json   bool
	config string
}

func newDoctorFlagSet(f *doctorFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.BoolVar(&f.json, "json", false, "output JSON")
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	return fs
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) int {
	f := &doctorFlags{}
	fs := newDoctorFlagSet(f)
	fs.SetOutput(env.Stderr)
	fs.Usage = func() { printDoctorUsage(env.Stderr) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return ExitUsage
	}

	fileCfg, err := loadFileConfig(f.config, loadEnvConfig().ConfigPath, env.Config)
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", withHint(err, nil))
		return exitCodeFor(err)
	}
	cfg, err := certgen.NewConfiguration(engineOptions(fileCfg.Engine)...)
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return exitCodeFor(err)
	}

	result := runDoctor(ctx, cfg, env)

	if f.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, cfg *certgen.Configuration, env *Environment) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
	}

	checkCompiler(result, cfg, env)
	checkRuntime(ctx, result, cfg, env)
	checkEnvironment(result)
	checkSystem(result)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}
	return result
}

// checkCompiler looks the compiler up on PATH. Only direct mode needs it.
func checkCompiler(result *doctorResult, cfg *certgen.Configuration, env *Environment) {
	result.Compiler.Name = cfg.Compiler()
	result.Compiler.Sandboxed = cfg.Sandboxed()

	path, err := env.LookPath(cfg.Compiler())
	if err == nil {
		result.Compiler.Found = true
		result.Compiler.Path = path
		return
	}
	if !cfg.Sandboxed() {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s not found on PATH. Install TeX Live or enable engine.sandboxed", cfg.Compiler()))
	}
}

// checkRuntime verifies the container runtime and, for Docker, the daemon
// and compiler image. Problems are errors in sandboxed mode and warnings
// otherwise.
func checkRuntime(ctx context.Context, result *doctorResult, cfg *certgen.Configuration, env *Environment) {
	result.Runtime.Name = cfg.ContainerRuntime()
	result.Runtime.Image = cfg.ContainerImage()

	report := func(msg string) {
		if cfg.Sandboxed() {
			result.Errors = append(result.Errors, msg)
		}
	}

	path, err := env.LookPath(cfg.ContainerRuntime())
	if err != nil {
		report(fmt.Sprintf("container runtime %s not found on PATH", cfg.ContainerRuntime()))
		return
	}
	result.Runtime.Found = true
	result.Runtime.Path = path

	if filepath.Base(cfg.ContainerRuntime()) != "docker" {
		if cfg.Sandboxed() {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("daemon and image checks only support docker, skipped for %s", cfg.ContainerRuntime()))
		}
		return
	}

	cli, err := env.Docker()
	if err != nil {
		report(fmt.Sprintf("cannot create docker client: %v", err))
		return
	}
	defer func() { _ = cli.Close() }()

	pingCtx, cancel := context.WithTimeout(ctx, dockerTimeout)
	defer cancel()
	ping, err := cli.Ping(pingCtx)
	if err != nil {
		report(fmt.Sprintf("docker daemon not reachable: %v", err))
		return
	}
	result.Runtime.Daemon = true
	result.Runtime.APIVersion = ping.APIVersion

	if v, err := cli.ServerVersion(pingCtx); err == nil {
		result.Runtime.ServerVersion = v.Version
	}

	if _, _, err := cli.ImageInspectWithRaw(pingCtx, cfg.ContainerImage()); err != nil {
		if client.IsErrNotFound(err) {
			if cfg.Sandboxed() {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("image %s not present locally; the first run will pull it", cfg.ContainerImage()))
			}
			return
		}
		report(fmt.Sprintf("cannot inspect image %s: %v", cfg.ContainerImage(), err))
		return
	}
	result.Runtime.ImagePresent = true
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult) {
	result.Env.Container, result.Env.ContainerHint = isContainer()

	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer() (bool, string) {
	if os.Getenv("CERTGEN_CONTAINER") == "1" {
		return true, "CERTGEN_CONTAINER=1"
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	// Podman / systemd-nspawn
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies system requirements.
func checkSystem(result *doctorResult) {
	tmpDir := os.TempDir()
	f, err := os.CreateTemp(tmpDir, "certgen-doctor-*")
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", tmpDir))
	} else {
		_ = f.Close()
		_ = os.Remove(f.Name())
		result.System.TempWritable = true
	}

	result.System.LimitsEnforced = process.LimitsEnforced
	if !process.LimitsEnforced {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("CPU and memory limits are not enforced on %s; use sandboxed mode", runtime.GOOS))
	}
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "certgen doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Compiler")
	mode := "direct"
	if r.Compiler.Sandboxed {
		mode = "sandboxed"
	}
	fmt.Fprintf(w, "  [OK] Mode: %s\n", mode)
	switch {
	case r.Compiler.Found:
		fmt.Fprintf(w, "  [OK] %s found at %s\n", r.Compiler.Name, r.Compiler.Path)
	case r.Compiler.Sandboxed:
		fmt.Fprintf(w, "  [OK] %s not on PATH (provided by the image)\n", r.Compiler.Name)
	default:
		fmt.Fprintf(w, "  [ERROR] %s not found\n", r.Compiler.Name)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Container Runtime")
	if r.Runtime.Found {
		fmt.Fprintf(w, "  [OK] %s found at %s\n", r.Runtime.Name, r.Runtime.Path)
	} else {
		fmt.Fprintf(w, "  [--] %s not found\n", r.Runtime.Name)
	}
	if r.Runtime.Daemon {
		fmt.Fprintf(w, "  [OK] Daemon: version %s (API %s)\n", r.Runtime.ServerVersion, r.Runtime.APIVersion)
	}
	if r.Runtime.ImagePresent {
		fmt.Fprintf(w, "  [OK] Image: %s\n", r.Runtime.Image)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	if r.System.LimitsEnforced {
		fmt.Fprintln(w, "  [OK] Resource limits: enforced")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to generate")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
