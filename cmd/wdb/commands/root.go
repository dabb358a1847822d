// Package commands implements the CLI commands for wdb.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/wdb/internal/app"
	"github.com/ZebulonRouseFrantzich/wdb/internal/binary"
	"github.com/ZebulonRouseFrantzich/wdb/internal/build"
	"github.com/ZebulonRouseFrantzich/wdb/internal/platform"
	"github.com/ZebulonRouseFrantzich/wdb/internal/service"
)

// Application represents the application logic interface.
type Application interface {
	Setup(ctx context.Context, req binary.Request) (*binary.SetupResult, error)
	Sync(ctx context.Context, req service.SyncRequest) (*service.SyncResult, error)
	ListCache(ctx context.Context, req service.CacheListRequest) (*service.CacheListResult, error)
	ClearCache(ctx context.Context, req service.CacheClearRequest) error
	Platform(ctx context.Context) (*platform.Info, error)
}

// Factory builds the application once the global flags are parsed.
type Factory func(ctx context.Context, opts app.Options) (Application, error)

// CLI represents the command line interface for wdb.
type CLI struct {
	factory Factory
	app     Application
	rootCmd *cobra.Command

	configPath string
	logLevel   string
}

// New creates a new CLI instance. The application is built lazily by
// factory so that commands like version never touch the configuration.
func New(factory Factory) *CLI {
	rootCmd := &cobra.Command{
		Use:           "wdb",
		Short:         "Resolve, download and cache WebDriver binaries",
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

	c := &CLI{
		factory: factory,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file (yaml, toml or json)")
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(c.newSetupCmd())
	rootCmd.AddCommand(c.newSyncCmd())
	rootCmd.AddCommand(c.newCacheCmd())
	rootCmd.AddCommand(c.newPlatformCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
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

// application builds the application on first use.
func (c *CLI) application(cmd *cobra.Command) (Application, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := c.factory(cmd.Context(), app.Options{
		ConfigPath: c.configPath,
		LogLevel:   c.logLevel,
		LogOutput:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}
