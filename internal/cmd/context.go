package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JaneliaSciComp/aitch/internal/cmn/config"
	"github.com/JaneliaSciComp/aitch/internal/cmn/logger"
	"github.com/JaneliaSciComp/aitch/internal/cmn/logger/tag"
	"github.com/JaneliaSciComp/aitch/internal/instance"
	"github.com/JaneliaSciComp/aitch/internal/persis/filestate"
	"github.com/JaneliaSciComp/aitch/internal/scheduler"
)

// Context holds the configuration for a command.
type Context struct {
	context.Context

	Command *cobra.Command
	Flags   []commandLineFlag
	Config  *config.Config
	Quiet   bool
	Store   *filestate.Store
	Trigger scheduler.Trigger
	Manager *instance.Manager
}

type triggerKey struct{}

// WithTrigger makes commands executed with ctx schedule through trigger
// instead of a detached scheduling process.
func WithTrigger(ctx context.Context, trigger scheduler.Trigger) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

func triggerFromContext(ctx context.Context) scheduler.Trigger {
	if t, ok := ctx.Value(triggerKey{}).(scheduler.Trigger); ok {
		return t
	}
	return nil
}

// LogToFile replaces the logger of the context with one that also writes to
// f.
func (c *Context) LogToFile(f *os.File) {
	c.Context = logger.WithLogger(c.Context, newLogger(c.Command, c.Config, f))
}

// NewContext loads the configuration and builds the logger, the state store
// and the instance manager for a command.
func NewContext(cmd *cobra.Command, flags []commandLineFlag) (*Context, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := bindFlags(cmd, flags...); err != nil {
		return nil, err
	}

	var configLoaderOpts []config.ConfigLoaderOption

	// Use a custom config file if provided via the viper flag "config"
	if cfgPath := viper.GetString("config"); cfgPath != "" {
		configLoaderOpts = append(configLoaderOpts, config.WithConfigFile(cfgPath))
	}

	cfg, err := config.Load(configLoaderOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	ctx = logger.WithLogger(ctx, newLogger(cmd, cfg, nil))

	// Log any warnings collected during configuration loading
	for _, w := range cfg.Warnings {
		logger.Warn(ctx, w)
	}
	logger.Debug(ctx, "Configuration loaded", tag.Dir(cfg.Root), tag.Config(cfg.ConfigFileUsed))

	store := filestate.New(cfg.Root, filestate.WithLockRetryInterval(cfg.LockRetryInterval))

	trigger := triggerFromContext(ctx)
	if trigger == nil {
		trigger = &scheduler.ExecTrigger{Env: childEnv(cfg)}
	}

	return &Context{
		Context: ctx,
		Command: cmd,
		Flags:   flags,
		Config:  cfg,
		Quiet:   cfg.Quiet,
		Store:   store,
		Trigger: trigger,
		Manager: instance.New(store, trigger),
	}, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config, f *os.File) logger.Logger {
	var opts []logger.Option
	if cfg.Debug {
		opts = append(opts, logger.WithDebug())
	}
	if cfg.Quiet {
		opts = append(opts, logger.WithQuiet())
	}
	if cfg.LogFormat != "" {
		opts = append(opts, logger.WithFormat(cfg.LogFormat))
	}
	opts = append(opts, logger.WithConsole(cmd.ErrOrStderr()))
	if f != nil {
		opts = append(opts, logger.WithWriter(f))
	}
	return logger.NewLogger(opts...)
}

// childEnv passes the resolved configuration to a scheduling process so that
// it works on the same root with the same settings.
func childEnv(cfg *config.Config) []string {
	prefix := strings.ToUpper(config.AppSlug) + "_"
	return []string{
		prefix + "ROOT=" + cfg.Root,
		prefix + "DEBUG=" + strconv.FormatBool(cfg.Debug),
		prefix + "LOG_FORMAT=" + cfg.LogFormat,
		prefix + "LOCK_RETRY_INTERVAL=" + cfg.LockRetryInterval.String(),
	}
}

// NewCommand creates a new command instance with the given cobra command and run function.
func NewCommand(cmd *cobra.Command, flags []commandLineFlag, runFunc func(cmd *Context, args []string) error) *cobra.Command {
	initFlags(cmd, flags...)
	cmd.SilenceUsage = true

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, err := NewContext(cmd, flags)
		if err != nil {
			return fmt.Errorf("initialization error: %w", err)
		}
		if err := runFunc(ctx, args); err != nil {
			logger.Debug(ctx, "Command failed", tag.Command(cmd.Name()), tag.Error(err))
			return err
		}
		return nil
	}

	return cmd
}

// StringParam retrieves a string parameter from the command line flags.
func (c *Context) StringParam(name string) (string, error) {
	val, err := c.Command.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to get flag %s: %w", name, err)
	}
	return strings.TrimSpace(val), nil
}

// BoolParam retrieves a boolean parameter from the command line flags.
func (c *Context) BoolParam(name string) (bool, error) {
	val, err := c.Command.Flags().GetBool(name)
	if err != nil {
		return false, fmt.Errorf("failed to get flag %s: %w", name, err)
	}
	return val, nil
}

// ArrayParam retrieves every value of a repeatable flag.
func (c *Context) ArrayParam(name string) ([]string, error) {
	val, err := c.Command.Flags().GetStringArray(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get flag %s: %w", name, err)
	}
	return val, nil
}

// Println writes a line of command output.
func (c *Context) Println(a ...any) {
	_, _ = fmt.Fprintln(c.Command.OutOrStdout(), a...)
}
