package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/litescript/torrenthunt/internal/config"
	"github.com/litescript/torrenthunt/internal/source"
)

func RunSourcesCommand(a *app) *cobra.Command {
	command := &cobra.Command{
		Use:   "sources",
		Short: "List the sources torrenthunt can query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context(), true); err != nil {
				return err
			}
			defer a.close()

			enabled := a.cfg.Search.Enabled()
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("ID", "NAME", "KIND", "ENABLED", "ENDPOINT").
				StyleFunc(func(row, col int) lipgloss.Style {
					style := lipgloss.NewStyle().Padding(0, 1)
					if row == table.HeaderRow {
						return style.Bold(true)
					}
					return style
				})

			for _, info := range a.engine.Registry().All() {
				on := "yes"
				if len(enabled) > 0 && !slices.Contains(enabled, info.ID) {
					on = "no"
				}
				t.Row(string(info.ID), info.Label(), string(info.Kind), on, info.Endpoint)
			}

			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}

	return command
}

func RunProbeCommand(a *app) *cobra.Command {
	var add bool

	command := &cobra.Command{
		Use:   "probe <url>",
		Short: "Check whether a site looks like a torrent index",
		Long: `Fetch the front page of a site and look for magnet links, a search form or
torrent vocabulary. With --add a site that passes is saved as a custom source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context(), true); err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			endpoint, err := source.Probe(ctx, args[0])
			if err != nil {
				return errors.Wrapf(err, "probe %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s looks like a torrent site\n", endpoint)

			if !add {
				return nil
			}
			return a.addSource(cmd, endpoint)
		},
	}
	command.Flags().BoolVar(&add, "add", false, "save the site as a custom source")

	return command
}

func (a *app) addSource(cmd *cobra.Command, endpoint string) error {
	for _, s := range a.cfg.Sources {
		if strings.EqualFold(strings.TrimRight(s.URL, "/"), endpoint) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is already configured\n", endpoint)
			return nil
		}
	}

	name := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	added := config.SourceConfig{Name: name, URL: endpoint, Enabled: true}
	add := func(c *config.Config) {
		c.Sources = append(c.Sources, added)
		// Keep the new source selectable when an explicit list is configured
		if len(c.Search.EnabledSources) > 0 {
			c.Search.EnabledSources = append(c.Search.EnabledSources, strings.ToLower(name))
		}
	}

	if err := a.update(add); err != nil {
		return errors.Wrap(err, "could not save config")
	}
	add(&a.cfg)
	fmt.Fprintf(cmd.OutOrStdout(), "added %s to %s\n", name, a.configPath)
	return nil
}
