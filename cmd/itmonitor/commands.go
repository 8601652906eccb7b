package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/glabrego/itmonitor-cli/internal/app"
	"github.com/glabrego/itmonitor-cli/internal/feedstate"
	"github.com/glabrego/itmonitor-cli/internal/itmonitor"
	"github.com/glabrego/itmonitor-cli/internal/tui"
	"github.com/glabrego/itmonitor-cli/internal/tui/panel"
	"github.com/glabrego/itmonitor-cli/internal/tui/view"
)

const (
	loadTimeout  = 15 * time.Second
	forceTimeout = 45 * time.Second
)

func tuiCmd() *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Start the interactive reader (default)",
		Action: runTUI,
	}
}

func runTUI(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(c.Context, setupTimeout)
	defer cancel()

	cacheLoadStart := time.Now()
	cached, err := rt.service.ListCached(ctx)
	if err != nil {
		fmt.Fprintf(c.App.ErrWriter, "warning: %v, starting empty\n", err)
		cached = nil
	}
	cacheLoadDuration := time.Since(cacheLoadStart)
	rt.state.SetEntries(cached)

	model := tui.NewModel(rt.service, rt.state, tui.Options{
		RefreshInterval: rt.cfg.RefreshInterval,
		DeepLink:        c.String("article"),
	})
	model.SetStartupCacheStats(cacheLoadDuration, len(cached))

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show aggregator counters",
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := context.WithTimeout(c.Context, loadTimeout)
			defer cancel()
			status, err := rt.client.Status(ctx)
			if err != nil {
				return err
			}

			w := c.App.Writer
			fmt.Fprintf(w, "categories: %d\n", status.TotalCategories)
			fmt.Fprintf(w, "feeds:      %d\n", status.TotalFeeds)
			fmt.Fprintf(w, "entries:    %d\n", status.TotalEntries)
			if status.LastUpdate != "" {
				fmt.Fprintf(w, "updated:    %s\n", status.LastUpdate)
			}
			return nil
		},
	}
}

func categoriesCmd() *cli.Command {
	return &cli.Command{
		Name:  "categories",
		Usage: "List categories and whether the filter includes them",
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := context.WithTimeout(c.Context, loadTimeout)
			defer cancel()
			categories, err := rt.client.Categories(ctx)
			if err != nil {
				return err
			}
			snap := app.Snapshot{Categories: categories, CategoriesFetched: true}
			if _, err := app.Apply(rt.state, snap, false); err != nil {
				fmt.Fprintf(c.App.ErrWriter, "warning: %v\n", err)
			}

			tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			for _, cat := range categories {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", checkbox(rt.state.CategoryIncluded(cat.Key)), cat.Key, cat.Name)
			}
			return tw.Flush()
		},
	}
}

func listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print the filtered feed",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "unread", Aliases: []string{"u"}, Usage: "only unread entries"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "print at most this many entries (0 for all)"},
		},
		Action: func(c *cli.Context) error {
			if c.Int("limit") < 0 {
				return fmt.Errorf("--limit must not be negative: %d", c.Int("limit"))
			}
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := context.WithTimeout(c.Context, loadTimeout)
			defer cancel()
			if _, err := rt.loadFeed(ctx, c.App.ErrWriter, false); err != nil {
				return err
			}

			entries := rt.state.FilteredEntries()
			if c.Bool("unread") {
				entries = lo.Filter(entries, func(e itmonitor.Entry, _ int) bool { return !rt.state.IsRead(e.ID) })
			}
			if n := c.Int("limit"); n > 0 && len(entries) > n {
				entries = entries[:n]
			}
			if err := printEntries(c.App.Writer, rt.state, entries, time.Now()); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%d shown, %d unread\n", len(entries), rt.state.UnreadCount())
			return nil
		},
	}
}

func markReadCmd() *cli.Command {
	return &cli.Command{
		Name:      "mark-read",
		Usage:     "Mark entries as read",
		ArgsUsage: "ID...",
		Action: func(c *cli.Context) error {
			ids := lo.Compact(lo.Map(c.Args().Slice(), func(s string, _ int) string { return strings.TrimSpace(s) }))
			if len(ids) == 0 {
				return fmt.Errorf("mark-read needs at least one entry id")
			}
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			marked := 0
			for _, id := range lo.Uniq(ids) {
				if rt.state.IsRead(id) {
					continue
				}
				if err := rt.state.MarkRead(id); err != nil {
					return err
				}
				marked++
			}
			fmt.Fprintf(c.App.Writer, "Marked %d entries as read\n", marked)
			return nil
		},
	}
}

func markAllReadCmd() *cli.Command {
	return &cli.Command{
		Name:  "mark-all-read",
		Usage: "Mark every entry passing the filter as read",
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := context.WithTimeout(c.Context, loadTimeout)
			defer cancel()
			if _, err := rt.loadFeed(ctx, c.App.ErrWriter, false); err != nil {
				return err
			}
			marked, err := rt.state.MarkAllVisibleRead()
			if err != nil {
				return err
			}
			if marked == 0 {
				fmt.Fprintln(c.App.Writer, "Nothing to mark")
				return nil
			}
			fmt.Fprintf(c.App.Writer, "Marked %d entries as read\n", marked)
			return nil
		},
	}
}

func filterCmd() *cli.Command {
	return &cli.Command{
		Name:      "filter",
		Usage:     "Show or change the category and type filter",
		ArgsUsage: "[category|type KEY on|off]",
		Action: func(c *cli.Context) error {
			args := c.Args().Slice()
			if len(args) != 0 && len(args) != 3 {
				return fmt.Errorf("usage: filter [category|type KEY on|off]")
			}
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			if len(args) == 3 {
				if err := rt.changeFilter(c.Context, args[0], args[1], args[2]); err != nil {
					return err
				}
			}
			f := rt.state.Filters()
			fmt.Fprintf(c.App.Writer, "categories: %s\n", joinOrNone(f.Categories))
			fmt.Fprintf(c.App.Writer, "types:      %s\n", joinOrNone(lo.Map(f.Types, func(t string, _ int) string { return panel.TypeLabel(t) })))
			return nil
		},
	}
}

func (rt *runtime) changeFilter(ctx context.Context, kind, key, onOff string) error {
	var included bool
	switch strings.ToLower(onOff) {
	case "on":
		included = true
	case "off":
		included = false
	default:
		return fmt.Errorf("expected on or off, got %q", onOff)
	}

	switch kind {
	case "category":
		// The first category change must see the normalized filter, or
		// switching one category off would hide all the others.
		loadCtx, cancel := context.WithTimeout(ctx, loadTimeout)
		defer cancel()
		categories, err := rt.client.Categories(loadCtx)
		if err != nil {
			return fmt.Errorf("categories are needed to change the category filter: %w", err)
		}
		if _, err := app.Apply(rt.state, app.Snapshot{Categories: categories, CategoriesFetched: true}, false); err != nil {
			return err
		}
		if !lo.ContainsBy(categories, func(cat itmonitor.Category) bool { return cat.Key == key }) {
			return fmt.Errorf("unknown category %q", key)
		}
		return rt.state.SetCategoryFilter(key, included)
	case "type":
		if !lo.Contains(itmonitor.FeedTypes, key) {
			return fmt.Errorf("unknown feed type %q, expected one of %s", key, strings.Join(itmonitor.FeedTypes, ", "))
		}
		return rt.state.SetTypeFilter(key, included)
	default:
		return fmt.Errorf("filter kind must be category or type, got %q", kind)
	}
}

func refreshCmd() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Ask the aggregator to poll its feeds now, then reload",
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := context.WithTimeout(c.Context, forceTimeout)
			defer cancel()
			snap, err := rt.service.ForceRefresh(ctx)
			fresh, applyErr := app.Apply(rt.state, snap, true)
			if applyErr != nil {
				fmt.Fprintf(c.App.ErrWriter, "warning: %v\n", applyErr)
			}
			if err != nil && !snap.EntriesFetched {
				return err
			}
			if err != nil {
				fmt.Fprintf(c.App.ErrWriter, "warning: %v\n", err)
			}
			fmt.Fprintf(c.App.Writer, "%d new since last visit, %d unread\n", fresh, rt.state.UnreadCount())
			return nil
		},
	}
}

func printEntries(w io.Writer, state *feedstate.Manager, entries []itmonitor.Entry, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		marker := "*"
		if state.IsRead(e.ID) {
			marker = " "
		}
		category := e.Category
		if category == "" {
			category = state.ResolveCategoryKey(e)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			marker, e.ID, view.TypeTag(e.FeedType), category, view.RelativeTimeLabel(now, e.PublishedAt()), e.Title)
	}
	return tw.Flush()
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}
	return strings.Join(values, ", ")
}
