package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the configured generators are usable",
	Long: `Doctor verifies the configuration and probes each enabled generator
backend, so a broken setup surfaces before a long generation run does.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(out, "✗ configuration: %v\n", err)
		return err
	}
	fmt.Fprintln(out, "✓ configuration valid")
	if file := loader.ConfigFile(); file != "" {
		fmt.Fprintf(out, "  using %s\n", file)
	}

	log := newLogger(cfg)
	gen, img, err := buildGenerators(cfg, log)
	if err != nil {
		return err
	}

	failed := false
	if gen.IsAvailable(cmd.Context()) {
		fmt.Fprintf(out, "✓ content generator %q available\n", gen.Name())
	} else {
		fmt.Fprintf(out, "✗ content generator %q not found on PATH\n", gen.Name())
		failed = true
	}

	if !cfg.Game.GenerateImages {
		fmt.Fprintln(out, "- portrait generation disabled, skipping image backend")
	} else if img.IsAvailable(cmd.Context()) {
		fmt.Fprintf(out, "✓ image generator %q available\n", img.Name())
	} else {
		fmt.Fprintf(out, "✗ image generator %q not found on PATH\n", img.Name())
		failed = true
	}

	if failed {
		return fmt.Errorf("doctor found problems")
	}
	return nil
}
