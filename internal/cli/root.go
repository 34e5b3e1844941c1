// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// root.go - Command tree for the mychat binary.
//
// Usage:
//   mychat [tui]                      Full-screen chat (default)
//   mychat chat                       Line-oriented chat
//   mychat list [--search q] [--stale] List chats, newest first
//   mychat clear [--confirm]          Delete every chat
//   mychat prune [--confirm] [--days] Delete chats older than stale_days
//   mychat export [id] [--format md|json] Write a chat to a file
//   mychat config show|init|get|set|path
//   mychat models                     List models offered by the backend
//   mychat version                    Show version information

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kosiew/my-chat-gpt/internal/config"
	"github.com/kosiew/my-chat-gpt/internal/export"
	"github.com/kosiew/my-chat-gpt/internal/ollama"
	"github.com/kosiew/my-chat-gpt/internal/openai"
	"github.com/kosiew/my-chat-gpt/internal/stream"
)

// Version information, set at build time via -ldflags.
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions carries the persistent flags and the test seams.
type rootOptions struct {
	configPath string
	dataDir    string

	// source replaces the configured backend when set
	source stream.Source

	// interactive reports whether stdin can be prompted
	interactive func() bool
}

func (o *rootOptions) appOptions() Options {
	return Options{ConfigPath: o.configPath, DataDir: o.dataDir, Source: o.source}
}

func (o *rootOptions) open(cmd *cobra.Command) (*App, error) {
	return OpenApp(cmd.Context(), o.appOptions())
}

func (o *rootOptions) confirmer(cmd *cobra.Command) Confirmer {
	return Confirmer{In: cmd.InOrStdin(), Out: cmd.OutOrStdout(), Interactive: o.interactive}
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCmd builds the mychat command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{interactive: IsTTY})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "mychat",
		Short: "mychat is a terminal client for chat-completion APIs",
		Long: `mychat keeps any number of chats with an OpenAI-compatible or Ollama
backend, streams replies as they are written and saves every chat locally.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), opts.appOptions())
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.mychat/config.toml)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "directory for chats and logs (overrides storage.data_dir)")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &ValidationError{Field: "flag", Reason: err.Error(), Example: cmd.UseLine()}
	})

	root.AddCommand(
		newTUICmd(opts),
		newChatCmd(opts),
		newListCmd(opts),
		newClearCmd(opts),
		newPruneCmd(opts),
		newExportCmd(opts),
		newConfigCmd(opts),
		newModelsCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		DisplayError(os.Stderr, err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// =============================================================================
// CHAT COMMANDS
// =============================================================================

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the full-screen chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), opts.appOptions())
		},
	}
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat line by line in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.CheckBackend(cmd.Context()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", WarningStyle.Render("[Warning]"), err)
			}
			return NewREPL(app, cmd.OutOrStdout()).Run(cmd.Context())
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		search string
		stale  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List chats, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			entries := app.Manager.Search(search)
			if stale {
				old := make(map[string]bool)
				for _, id := range app.Manager.StaleChats(time.Now(), app.Config.Storage.StaleDays) {
					old[id] = true
				}
				kept := entries[:0]
				for _, e := range entries {
					if old[e.ID] {
						kept = append(kept, e)
					}
				}
				entries = kept
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only chats whose summary or messages contain this text")
	cmd.Flags().BoolVar(&stale, "stale", false, "only chats older than storage.stale_days")
	return cmd
}

func newClearCmd(opts *rootOptions) *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			n := len(app.Manager.List())
			if n == 0 {
				fmt.Fprintln(out, DimStyle.Render("No chats."))
				return nil
			}
			ok, err := opts.confirmer(cmd).RequireConfirmation(confirm, "delete all chats",
				[]string{fmt.Sprintf("%d chats in %s will be deleted", n, app.DataDir)})
			if err != nil {
				return err
			}
			if !ok {
				ShowCancellationMessage(out)
				return nil
			}
			app.Manager.ClearAllChats()
			fmt.Fprintln(out, SuccessStyle.Render(fmt.Sprintf("Deleted %d chats.", n)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "skip the confirmation prompt")
	return cmd
}

func newPruneCmd(opts *rootOptions) *cobra.Command {
	var (
		confirm bool
		days    int
	)
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete chats older than storage.stale_days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 {
				return ErrInvalidFormat("days", fmt.Sprint(days), "a number of days >= 0")
			}
			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if !cmd.Flags().Changed("days") {
				days = app.Config.Storage.StaleDays
			}
			out := cmd.OutOrStdout()
			ids := app.Manager.StaleChats(time.Now(), days)
			if len(ids) == 0 {
				fmt.Fprintf(out, "No chats older than %d days.\n", days)
				return nil
			}

			details := make([]string, 0, len(ids))
			for _, e := range app.Manager.List() {
				for _, id := range ids {
					if e.ID == id {
						details = append(details, id+"  "+e.Summary)
					}
				}
			}
			ok, err := opts.confirmer(cmd).RequireConfirmation(confirm,
				fmt.Sprintf("delete %d chats older than %d days", len(ids), days), details)
			if err != nil {
				return err
			}
			if !ok {
				ShowCancellationMessage(out)
				return nil
			}

			var errs []error
			for _, id := range ids {
				errs = append(errs, app.Manager.DeleteChat(id))
			}
			if err := errors.Join(errs...); err != nil {
				return err
			}
			fmt.Fprintln(out, SuccessStyle.Render(fmt.Sprintf("Deleted %d chats.", len(ids))))
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "skip the confirmation prompt")
	cmd.Flags().IntVar(&days, "days", 0, "age in days (default storage.stale_days)")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		format   string
		output   string
		preamble bool
	)
	cmd := &cobra.Command{
		Use:   "export [chat-id]",
		Short: "Write a chat to a Markdown or JSON file (default: the active chat)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return ErrInvalidFormat("format", format, "markdown or json")
			}
			app, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			id, ok := app.Manager.Active()
			if len(args) == 1 {
				id, ok = args[0], true
			}
			if !ok {
				return ErrMissingArgument("chat id", "mychat export <chat-id>")
			}
			chat, err := app.Manager.Chat(id)
			if err != nil {
				return err
			}

			eopts := export.DefaultOptions()
			eopts.OutputDir = output
			eopts.IncludePreamble = preamble
			eopts.Model = app.Config.Chat.Model
			exporter, err := export.New(f, eopts)
			if err != nil {
				return err
			}
			path, err := export.ExportToFile(chat, exporter, eopts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("Exported"), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "markdown or json")
	cmd.Flags().StringVarP(&output, "output", "o", ".", "output directory")
	cmd.Flags().BoolVar(&preamble, "preamble", false, "include the preamble message")
	return cmd
}

// =============================================================================
// CONFIG COMMANDS
// =============================================================================

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, DimStyle.Render("# "+path))
			fmt.Fprint(out, cfg.String())
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath(opts.configPath)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			cfg := config.Default()
			cfg.SetDefaults()
			if err := saveConfig(cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("Wrote"), path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting, e.g. chat.model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			v, err := cfg.Get(args[0])
			if err != nil {
				return &ValidationError{Field: "key", Value: args[0], Reason: err.Error(), Example: strings.Join(config.Keys(), ", ")}
			}
			if args[0] == "chat.api_key" && v != "" {
				v = "[REDACTED]"
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting in the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath(opts.configPath)
			if err != nil {
				return err
			}
			// read the file alone so environment overrides are not written back
			cfg := config.Default()
			if _, statErr := os.Stat(path); statErr == nil {
				if err := loadConfigFile(cfg, path); err != nil {
					return err
				}
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return &ValidationError{Field: "key", Value: args[0], Reason: err.Error(), Example: strings.Join(config.Keys(), ", ")}
			}
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := saveConfig(cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
			return nil
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := configFilePath(opts.configPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}

	// values such as -1 are arguments, not shorthand flags
	set.Flags().SetInterspersed(false)

	cmd.AddCommand(show, initCmd, get, set, path)
	return cmd
}

func configFilePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return config.ConfigPathTOML()
}

func loadConfigFile(cfg *config.Config, path string) error {
	if strings.HasSuffix(path, ".json") {
		return config.LoadJSON(cfg, path)
	}
	return config.LoadTOML(cfg, path)
}

func saveConfig(cfg *config.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if strings.HasSuffix(path, ".json") {
		return config.SaveJSON(cfg, path)
	}
	return config.SaveTOML(cfg, path)
}

// =============================================================================
// INFO COMMANDS
// =============================================================================

func newModelsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models the configured backend offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			names, err := listModels(ctx, cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range names {
				marker := " "
				if name == cfg.Chat.Model {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, name)
			}
			return nil
		},
	}
}

func listModels(ctx context.Context, cfg *config.Config) ([]string, error) {
	switch cfg.Chat.Backend {
	case config.BackendOllama:
		client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: cfg.Chat.BaseURL})
		models, err := client.ListModels(ctx)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(models))
		for _, m := range models {
			names = append(names, m.Name)
		}
		return names, nil
	default:
		client, err := openai.NewClient(openai.Config{APIKey: cfg.Chat.APIKey, BaseURL: cfg.Chat.BaseURL})
		if err != nil {
			return nil, err
		}
		return client.ListModels(ctx)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "mychat %s\n", Version)
	fmt.Fprintf(w, "  Commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Built:  %s\n", BuildDate)
}
