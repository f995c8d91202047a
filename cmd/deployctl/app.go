// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"deployctl/internal/build"
	"deployctl/internal/config"
	"deployctl/internal/execx"
	"deployctl/internal/headless"
	"deployctl/internal/history"
	"deployctl/internal/hooks"
	"deployctl/internal/server"
	"deployctl/internal/sim"
	"deployctl/internal/testrun"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: command handlers receive an App reference and
	// delegate work through its Config provider and Services factory.
	App struct {
		Config   config.Provider
		Services Services
		stdout   io.Writer
		stderr   io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp. Tests supply
	// fakes to isolate handler behavior from the real stages.
	Dependencies struct {
		Config   config.Provider
		Services Services
		Stdout   io.Writer
		Stderr   io.Writer
	}

	// Services builds the per-run stage collaborators from loaded
	// configuration. Construction is separated from the App because every
	// collaborator is parameterized by the config, which is only known
	// once the run handler has resolved it.
	Services interface {
		Builder(cfg *config.Config, logger *log.Logger) Builder
		Tests(cfg *config.Config, root string, logger *log.Logger) TestService
		Environment(cfg *config.Config, logger *log.Logger) Environment
		Simulation(logger *log.Logger) Simulation
		Server(cfg *config.Config, root string, logger *log.Logger) ServerService
		Hooks(cfg *config.Config, root string, logger *log.Logger) HookService
		Ledger(cfg *config.Config, root string) (Ledger, error)
	}

	// Builder runs the production frontend build.
	Builder interface {
		Run(ctx context.Context, root string) error
	}

	// TestService runs both test suites and reports overall success.
	TestService interface {
		RunAll(ctx context.Context, testDir string, keepOpen bool) bool
	}

	// Environment brings the headless display environment up and down.
	Environment interface {
		Setup(ctx context.Context, root string) (*headless.Env, error)
		Teardown(env *headless.Env) error
	}

	// Simulation boots the simulated hardware backend and fills the
	// server settings with its connection identifier.
	Simulation interface {
		Bootstrap(settings map[string]string) (Stopper, error)
	}

	// Stopper shuts down a started simulation.
	Stopper interface {
		Stop() error
	}

	// ServerService launches the application server and reports its exit code.
	ServerService interface {
		Run(ctx context.Context, devMode bool, settings map[string]string) (int, error)
	}

	// HookService runs one configured lifecycle hook.
	HookService interface {
		Run(ctx context.Context, point hooks.Point) error
	}

	// Ledger records finished runs and lists recent ones.
	Ledger interface {
		Record(run history.Run) error
		ListRecent(limit int) ([]history.Run, error)
		Close() error
	}

	// stageServices is the production Services implementation. One tool
	// runner is shared by every collaborator.
	stageServices struct {
		runner execx.Runner
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Services == nil {
		deps.Services = &stageServices{runner: execx.ToolRunner{}}
	}

	return &App{
		Config:   deps.Config,
		Services: deps.Services,
		stdout:   deps.Stdout,
		stderr:   deps.Stderr,
	}
}

func (s *stageServices) Builder(cfg *config.Config, logger *log.Logger) Builder {
	return build.New(cfg.Build, s.runner, logger)
}

func (s *stageServices) Tests(cfg *config.Config, root string, logger *log.Logger) TestService {
	native := testrun.NewNativeCommandRunner(cfg.Test, root, s.runner, logger)
	browser := testrun.NewBrowserCommandRunner(cfg.Test, root, s.runner, logger)
	return testrun.New(native, browser, logger)
}

func (s *stageServices) Environment(cfg *config.Config, logger *log.Logger) Environment {
	return headless.New(cfg.Display, cfg.Dependencies, logger)
}

func (s *stageServices) Simulation(logger *log.Logger) Simulation {
	return &simulationService{bootstrapper: sim.NewBootstrapper(logger)}
}

func (s *stageServices) Server(cfg *config.Config, root string, logger *log.Logger) ServerService {
	return server.New(cfg.Server, root, s.runner, logger)
}

func (s *stageServices) Hooks(cfg *config.Config, root string, logger *log.Logger) HookService {
	return hooks.New(cfg.Hooks, root, logger)
}

// Ledger opens the run history store at the configured path, resolved
// against the project root when relative.
func (s *stageServices) Ledger(cfg *config.Config, root string) (Ledger, error) {
	path := cfg.History.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	return history.Open(path)
}

// simulationService adapts the concrete bootstrapper to the Simulation
// interface so handlers only depend on the Stopper they must shut down.
type simulationService struct {
	bootstrapper *sim.Bootstrapper
}

func (s *simulationService) Bootstrap(settings map[string]string) (Stopper, error) {
	simulator, err := s.bootstrapper.Bootstrap(settings)
	if err != nil {
		return nil, err
	}
	return simulator, nil
}
