package main

import (
	"io"
	"os"
	"os/exec"
	"time"

	certgen "github.com/alnah/go-certgen"
	"github.com/alnah/go-certgen/internal/config"
)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, configuration, and external tool discovery.
type Environment struct {
	Now    func() time.Time
	Stdout io.Writer
	Stderr io.Writer
	Config *config.Config // used when no --config is given

	// Configure builds the engine configuration. The CLI installs it
	// process-wide with certgen.Setup; tests build throwaway values.
	Configure func(opts ...certgen.ConfigOption) (*certgen.Configuration, error)

	LookPath func(file string) (string, error)
	Docker   func() (dockerClient, error)
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:       time.Now,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Config:    config.DefaultConfig(),
		Configure: certgen.Setup,
		LookPath:  exec.LookPath,
		Docker:    newDockerClient,
	}
}
