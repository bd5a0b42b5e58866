package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/elonfeng/sabermetrics/internal/collector"
	"github.com/elonfeng/sabermetrics/pkg/lineup"
	"github.com/goccy/go-json"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(w io.Writer, rep collector.Report) error {
	fmt.Fprintf(w, "collected %d recent plays from %s (%d new) in %s\n",
		rep.Fetched, rep.Source, rep.Inserted, rep.Took)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tBEFORE\tAFTER")
	rows := []struct {
		name          string
		before, after int
	}{
		{"plays", rep.Before.Plays, rep.After.Plays},
		{"tracks", rep.Before.Tracks, rep.After.Tracks},
		{"albums", rep.Before.Albums, rep.After.Albums},
		{"artists", rep.Before.Artists, rep.After.Artists},
		{"track_artists", rep.Before.TrackArtists, rep.After.TrackArtists},
		{"runs", rep.Before.Runs, rep.After.Runs},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", r.name, r.before, r.after)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if rep.After.LatestPlay != nil {
		fmt.Fprintf(w, "latest play: %s\n", rep.After.LatestPlay.Format(time.RFC3339))
	}
	return nil
}

func printSnapshot(w io.Writer, snap lineup.Snapshot) error {
	fmt.Fprintf(w, "%s\ngenerated %s\n\n", snap.Title, snap.GeneratedAt.Format(time.RFC3339))
	if snap.Empty() {
		fmt.Fprintln(w, "no lineup (collect some plays or run: sabermetrics login)")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tTRACK\tARTIST\tSCORE\tPOP")
	for _, e := range snap.Lineup {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.3f\t%d\n", e.Position, e.TrackName, e.ArtistDisplayName, e.Score, e.Popularity)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if snap.StarPlayer != nil {
		fmt.Fprintf(w, "\nstar player: %s by %s\n", snap.StarPlayer.TrackName, snap.StarPlayer.ArtistDisplayName)
	}
	if p := snap.TeamProfile; p != nil {
		fmt.Fprintf(w, "team profile: %s (avg artist popularity %.1f, avg followers %d)\n",
			p.Label, p.AvgArtistPopularity, p.AvgArtistFollowers)
	}
	return nil
}

func printHistory(w io.Writer, entries []lineup.Snapshot) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no snapshots recorded yet (try: sabermetrics lineup --save)")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GENERATED\tMODE\tTRACKS\tSTAR\tTEAM")
	for _, s := range entries {
		star, team := "-", "-"
		if s.StarPlayer != nil {
			star = s.StarPlayer.TrackName
		}
		if s.TeamProfile != nil {
			team = string(s.TeamProfile.Label)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			s.GeneratedAt.Format(time.RFC3339), s.Mode, len(s.Lineup), star, team)
	}
	return tw.Flush()
}
