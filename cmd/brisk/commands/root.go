// Package commands implements the CLI commands for the brisk build runner.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/brisk/internal/adapters/detector"
	"go.trai.ch/brisk/internal/app"
	"go.trai.ch/brisk/internal/build"
	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/zerr"
)

// CLI represents the command line interface for brisk.
type CLI struct {
	app     Application
	logs    LogSettings
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Run(ctx context.Context, task string, opts app.RunOptions) error
	TaskNames() []string
}

// LogSettings is the part of the logger the global flags adjust.
type LogSettings interface {
	SetVerbose(enable bool)
	SetJSON(enable bool)
}

// New creates a new CLI instance with the given app. logs may be nil.
func New(a Application, logs LogSettings) *CLI {
	rootCmd := &cobra.Command{
		Use:           "brisk",
		Short:         "A front-end build runner with a live-reloading dev server",
		Long:          "brisk runs the default task (clean, then build) when no command is given.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log every request and watch event")
	rootCmd.PersistentFlags().String("log-format", "auto", "Log format: auto, pretty or json")
	rootCmd.PersistentFlags().StringP("output-mode", "o", "auto", "Task output: auto, tui, linear or ci")

	c := &CLI{
		app:     a,
		logs:    logs,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentPreRunE = c.configureLogging
	rootCmd.RunE = c.runTask("default")

	rootCmd.AddCommand(c.newTaskCmd("serve", "Start the dev server and rebuild on change"))
	rootCmd.AddCommand(c.newTaskCmd("build", "Build the project into the dist directory"))
	rootCmd.AddCommand(c.newTaskCmd("default", "Clean, then build"))
	rootCmd.AddCommand(c.newTaskCmd("clean", "Remove the temp and dist directories"))
	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

func (c *CLI) configureLogging(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("log-format")
	if !detector.ValidFormat(format) {
		return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "unknown log format"), "log_format", format)
	}
	mode, _ := cmd.Flags().GetString("output-mode")
	if !detector.ValidMode(mode) {
		return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "unknown output mode"), "output_mode", mode)
	}
	if c.logs == nil {
		return nil
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	c.logs.SetVerbose(verbose)
	c.logs.SetJSON(detector.ResolveFormat(detector.DetectEnvironment(), format) == detector.FormatJSON)
	return nil
}

func (c *CLI) runTask(task string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return c.app.Run(cmd.Context(), task, runOptions(cmd))
	}
}

func runOptions(cmd *cobra.Command) app.RunOptions {
	mode, _ := cmd.Flags().GetString("output-mode")
	return app.RunOptions{OutputMode: mode}
}

func (c *CLI) newTaskCmd(task, short string) *cobra.Command {
	return &cobra.Command{
		Use:   task,
		Short: short,
		Args:  cobra.NoArgs,
		RunE:  c.runTask(task),
	}
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
