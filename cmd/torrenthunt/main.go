// torrenthunt searches many torrent indexes at once. Without a subcommand it
// starts the interactive terminal UI; search, trending and sources run
// headless and print to stdout.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/litescript/torrenthunt/internal/theme"
	"github.com/litescript/torrenthunt/internal/tui"
	"github.com/litescript/torrenthunt/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	var rootCmd = &cobra.Command{
		Use:   "torrenthunt",
		Short: "Search torrents across multiple sources",
		Long: `torrenthunt queries several torrent indexes concurrently, merges what they
return and shows it as one sortable list.

Run without arguments for the interactive interface.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd.Context())
		},
	}
	rootCmd.Version = version.Version

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file path (default ~/.config/torrenthunt/config.toml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	flags.BoolVar(&a.offline, "offline", false, "use built-in demo data instead of the network")

	rootCmd.AddCommand(RunSearchCommand(a))
	rootCmd.AddCommand(RunTrendingCommand(a))
	rootCmd.AddCommand(RunSourcesCommand(a))
	rootCmd.AddCommand(RunProbeCommand(a))
	rootCmd.AddCommand(RunVersionCommand())

	return rootCmd
}

func (a *app) runTUI(ctx context.Context) error {
	if err := a.setup(ctx, false); err != nil {
		return err
	}
	defer a.close()

	theme.Refresh()

	model := tui.NewModel(a.cfg, a.engine, tui.Options{Persist: a.update})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	watcher, err := theme.NewWatcher(func(theme.Palette) {
		p.Send(tui.ThemeChangedMsg{})
	})
	if err != nil {
		log.Debug().Err(err).Msg("theme watcher disabled")
	} else {
		defer watcher.Stop()
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "could not run interface")
	}
	return nil
}

func RunVersionCommand() *cobra.Command {
	var check bool

	command := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of torrenthunt",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "torrenthunt %s\n", version.String())
			if !check {
				return nil
			}

			info := version.CheckForUpdate(cmd.Context())
			switch {
			case info.Error != nil:
				return info.Error
			case info.UpdateAvailable:
				fmt.Fprintf(cmd.OutOrStdout(), "Update available: v%s (run: %s)\n", info.LatestVersion, version.InstallCommand())
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "You're on the latest version")
			}
			return nil
		},
	}
	command.Flags().BoolVar(&check, "check", false, "check GitHub for a newer release")

	return command
}
