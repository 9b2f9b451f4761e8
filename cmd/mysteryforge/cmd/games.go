package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aledesanfer/mysteryforge/internal/adapters/archive"
)

var gamesCmd = &cobra.Command{
	Use:   "games",
	Short: "List generated games",
	Long: `List every archived generation run with its status, theme and
output location. Aborted runs show why they stopped.`,
	RunE: runGames,
}

var gamesJSON bool

func init() {
	gamesCmd.Flags().BoolVar(&gamesJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(gamesCmd)
}

func runGames(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Archive.Enabled {
		return fmt.Errorf("the run archive is disabled (archive.enabled)")
	}

	store, err := archive.NewStore(cfg.Archive.Path)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer store.Close()

	records, err := store.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing games: %w", err)
	}

	out := cmd.OutOrStdout()

	if gamesJSON {
		return json.NewEncoder(out).Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No games yet.")
		fmt.Fprintln(out, "Run 'mysteryforge generate' to create one.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GAME ID\tCREATED\tSTATUS\tTHEME\tPLAYERS\tOUTPUT")
	for _, rec := range records {
		status := rec.Status
		if rec.Reason != "" {
			status = fmt.Sprintf("%s (%s)", rec.Status, truncateReason(rec.Reason))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			shortID(rec.GameID),
			rec.CreatedAt.Local().Format(time.DateTime),
			status,
			rec.Theme,
			rec.Players,
			rec.OutputDir,
		)
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncateReason(reason string) string {
	const max = 60
	if len(reason) > max {
		return reason[:max-3] + "..."
	}
	return reason
}
