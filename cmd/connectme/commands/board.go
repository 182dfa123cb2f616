package commands

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"connectme/cmd/connectme/output"
	"connectme/models"
	"connectme/syncengine"
)

var (
	listCategory string
	listCampus   string
	listRecent   int
	listJoined   bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the board and refresh the local cache",
	RunE: withApp(func(ctx context.Context, a *app) error {
		output.Success("%d post-its on the board", len(a.controller.PostIts()))
		return nil
	}),
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List post-its",
	RunE: withApp(func(ctx context.Context, a *app) error {
		category := models.Category(listCategory)
		if category != "" && !category.Valid() {
			return errors.NotValidf("category %q", listCategory)
		}
		campus := models.Campus(listCampus)
		if campus != "" && !campus.Valid() {
			return errors.NotValidf("campus %q", listCampus)
		}

		var postIts []models.PostIt
		switch {
		case listJoined:
			output.Section("Joined")
			postIts = a.controller.Joined()
		case listRecent > 0:
			output.Section("Recent")
			postIts = a.controller.Recent(listRecent)
		default:
			output.Section("Bacheca")
			postIts = a.controller.Filter(category, campus)
		}
		output.PostIts(postIts, a.controller.IsJoined, time.Now())
		return nil
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connection, cache and session state",
	RunE: withApp(func(ctx context.Context, a *app) error {
		user := a.controller.User()
		output.Section("Connect-me")
		output.Info("user: %s %s (%s)", user.Name, user.Surname, user.Matricola)
		output.Info("remote store: %s %s", a.cfg.Client.RemoteURL, output.Connection(a.controller.BackendOnline()))
		output.Info("section: %s", a.controller.Section())
		output.Info("post-its: %d, joined: %d", len(a.controller.PostIts()), len(a.controller.Joined()))
		if last, ok := a.cache.LastSync(); ok {
			output.Info("last cache write: %s", humanize.Time(last))
		} else {
			output.Muted("local cache was never written")
		}
		if pc, ok := a.cache.LoadPending(); ok && !pc.Empty() {
			output.Warning("%d post-its and %d deletions not yet saved remotely", len(pc.Upserts), len(pc.Deletes))
		}
		return nil
	}),
}

func init() {
	listCmd.Flags().StringVar(&listCategory, "category", "", "Only post-its of this category")
	listCmd.Flags().StringVar(&listCampus, "campus", "", "Only post-its of this campus")
	listCmd.Flags().IntVar(&listRecent, "recent", 0, "Show the N most recent post-its")
	listCmd.Flags().BoolVar(&listJoined, "joined", false, "Show only joined post-its")
	rootCmd.AddCommand(loadCmd, listCmd, statusCmd)
}

// describeLoad сообщает результат загрузки.
func describeLoad(report syncengine.LoadReport) {
	switch report.Source {
	case syncengine.SourceRemote:
		output.Success("loaded %d post-its from the remote store", report.Count)
	case syncengine.SourceCache:
		output.Warning("remote store unreachable, showing %d post-its from the local cache", report.Count)
	case syncengine.SourceReseed:
		output.Info("remote store was empty, re-sent %d cached post-its", report.Count)
	case syncengine.SourceSeed:
		output.Info("remote store was empty, seeded %d starter post-its", report.Count)
	}
	if report.Pushed > 0 || report.Deleted > 0 {
		output.Muted("saved %d post-its and %d deletions made offline", report.Pushed, report.Deleted)
	}
	if report.SeedFailed {
		output.Warning("seed was not saved remotely, working offline")
	}
	if report.Migrated > 0 {
		output.Muted("updated the colour of %d post-its", report.Migrated)
	}
	if report.MigrationFailed > 0 {
		output.Warning("%d post-its keep an outdated colour", report.MigrationFailed)
	}
}
