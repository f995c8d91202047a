// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	DisplayServerStartFailedId
	BuildFailedId
	TestsFailedId
	SimulationStartFailedId
	ServerStartFailedId
	HookFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // project documentation links for this issue
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Your deployctl configuration could not be read or contains invalid values.

## Things you can try:
- Create a fresh configuration with defaults:
~~~
$ deployctl config init
~~~

- Inspect the values currently in effect:
~~~
$ deployctl config show
~~~

- Check the TOML syntax of your config file
- Remove the config file to fall back to built-in defaults`,
	}

	displayServerStartFailedIssue = &Issue{
		id: DisplayServerStartFailedId,
		mdMsg: `
# Virtual display failed to start!

The headless display server exited right after launch, so browser tests
have nowhere to render.

## Common causes:
- Xvfb is not installed
- The DISPLAY environment variable is not set
- Another display server already owns that display number

## Things you can try:
- Install Xvfb (Debian/Ubuntu):
~~~
$ sudo apt-get install xvfb
~~~

- Point DISPLAY at a free display number:
~~~
$ DISPLAY=:99 deployctl --containerized
~~~

- Run without the containerized environment if a real display is available`,
	}

	buildFailedIssue = &Issue{
		id: BuildFailedId,
		mdMsg: `
# Frontend build failed!

The production bundle could not be produced.

## Things you can try:
- Run the build tool directly to see the full error output:
~~~
$ polymer build
~~~

- Verify the service worker precache config exists at the configured path
- Check that frontend dependencies are installed (bower install / npm install)
- Run with verbose mode for the exact commands being executed:
~~~
$ deployctl --verbose --production
~~~`,
	}

	testsFailedIssue = &Issue{
		id: TestsFailedId,
		mdMsg: `
# Tests failed!

One of the test suites reported failures, so deployment stopped.

## Things you can try:
- Re-run only the tests while iterating on a fix:
~~~
$ deployctl --test-only
~~~

- Keep the browser window open to inspect failing frontend tests:
~~~
$ deployctl --test-only --keep_open
~~~

- Continue past failing tests when you accept the risk:
~~~
$ deployctl --force
~~~`,
	}

	simulationStartFailedIssue = &Issue{
		id: SimulationStartFailedId,
		mdMsg: `
# Hardware simulation failed to start!

The simulated microcontroller backend could not be brought up, so the
server would have no serial endpoint to talk to.

## Things you can try:
- Run without --module_simulation to launch against real hardware
- Check that no stale simulator process is holding the serial endpoint
- Run with verbose mode to see the simulator startup log:
~~~
$ deployctl --verbose --module_simulation
~~~`,
	}

	serverStartFailedIssue = &Issue{
		id: ServerStartFailedId,
		mdMsg: `
# Application server failed to launch!

The configured server command could not be started.

## Things you can try:
- Check the server command in your configuration:
~~~
$ deployctl config show
~~~

- Run the server command directly to see its startup error
- Verify the backend dependencies are installed`,
	}

	hookFailedIssue = &Issue{
		id: HookFailedId,
		mdMsg: `
# Lifecycle hook failed!

A hook script configured for this pipeline position exited non-zero, which
aborts the run.

## Things you can try:
- Run the hook script on its own to reproduce the failure
- Check the hook definitions in your configuration:
~~~
$ deployctl config show
~~~

- Remove the hook from the configuration if it is no longer needed`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():         configLoadFailedIssue,
		displayServerStartFailedIssue.Id(): displayServerStartFailedIssue,
		buildFailedIssue.Id():              buildFailedIssue,
		testsFailedIssue.Id():              testsFailedIssue,
		simulationStartFailedIssue.Id():    simulationStartFailedIssue,
		serverStartFailedIssue.Id():        serverStartFailedIssue,
		hookFailedIssue.Id():               hookFailedIssue,
	}

	kindCards = map[error]Id{
		ErrConfiguration:      ConfigLoadFailedId,
		ErrEnvironmentStartup: DisplayServerStartFailedId,
		ErrBuildFailure:       BuildFailedId,
		ErrTestFailure:        TestsFailedId,
		ErrSimulationStartup:  SimulationStartFailedId,
		ErrHookFailure:        HookFailedId,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}

// ForError returns the remediation card for the sentinel kind wrapped by
// err, or nil when err carries no known kind.
func ForError(err error) *Issue {
	kind := Kind(err)
	if kind == nil {
		return nil
	}
	return issues[kindCards[kind]]
}
