package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/mutant.report/internal/dna"
)

var scanFile string

var scanCmd = &cobra.Command{
	Use:   "scan [rows...]",
	Short: "Evaluate a DNA matrix offline",
	Long: `Validates a matrix given as arguments, or one row per line in --file ("-"
reads stdin), and prints the verdict, the number of runs found and the
content digest used to deduplicate stored outcomes. Nothing is stored.

Example:
  mutant-report scan ATGCGA CAGTGC TTATGT AGAAGG CCCCTA TCACTG`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rows := args
		if scanFile != "" {
			if len(args) > 0 {
				return fmt.Errorf("pass rows as arguments or --file, not both")
			}
			var err error
			rows, err = readRows(cmd.InOrStdin(), scanFile)
			if err != nil {
				return err
			}
		}
		return scanRows(cmd.OutOrStdout(), rows)
	},
}

func init() {
	scanCmd.Flags().StringVarP(&scanFile, "file", "f", "", `file with one row per line ("-" for stdin)`)
}

func scanRows(w io.Writer, rows []string) error {
	g, err := dna.Validate(rows)
	if err != nil {
		return err
	}
	verdict := "human"
	if dna.Scan(g) {
		verdict = "mutant"
	}
	_, err = fmt.Fprintf(w, "verdict: %s\nruns: %d\ndigest: %s\n", verdict, dna.CountRuns(g), dna.Digest(g))
	return err
}

// readRows reads one row per line, ignoring blank lines and surrounding
// whitespace.
func readRows(stdin io.Reader, path string) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var rows []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			rows = append(rows, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return rows, nil
}
