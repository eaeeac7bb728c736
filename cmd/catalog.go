package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kinobot/internal/app"
	"kinobot/internal/catalog"
	"kinobot/internal/config"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the stored catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every code with its parts",
	RunE:  runCatalogList,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print catalog, channel and user counts",
	RunE:  runStats,
}

func init() {
	catalogCmd.AddCommand(catalogListCmd)
}

func openStore(cmd *cobra.Command) (*app.Store, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	store, err := app.OpenStore(ctx, cfg, zap.NewNop())
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Backend.Close(ctx)
	}
	return store, closeFn, nil
}

func runCatalogList(cmd *cobra.Command, _ []string) error {
	store, closeFn, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	entries := store.Catalog.List()
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "catalog is empty")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderCatalog(entries))
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	store, closeFn, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	titles, parts := store.Catalog.Stats()
	users, err := store.Backend.CountUsers(cmd.Context())
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	channels := store.Channels.List()

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.AppendRows([]table.Row{
		{"Titles", titles},
		{"Parts", parts},
		{"Users", users},
		{"Required channels", strings.Join(channels, ", ")},
	})
	fmt.Fprintln(cmd.OutOrStdout(), tw.Render())
	return nil
}

func renderCatalog(entries []catalog.Entry) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Code", "#", "Label", "Asset"})
	for _, e := range entries {
		for i, p := range e.Parts {
			tw.AppendRow(table.Row{e.Code, strconv.Itoa(i + 1), p.Label, p.Asset})
		}
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
		{Number: 2, Align: text.AlignRight},
	})
	return tw.Render()
}
