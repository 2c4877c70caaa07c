// stageconv converts a Tiled .tmx stage (or a hand-written text stage) into
// the checksummed text tile format read by the scene loader.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/l1jgo/tilesim/internal/grid"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: stageconv <stage.tmx|stage.txt> <output.txt> [layer]")
		os.Exit(1)
	}
	in, outPath := os.Args[1], os.Args[2]

	var (
		rows [][]grid.Code
		err  error
	)
	if len(os.Args) > 3 && strings.EqualFold(filepath.Ext(in), ".tmx") {
		rows, err = grid.LoadTMX(in, os.Args[3])
	} else {
		rows, err = grid.LoadStage(in)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer out.Close()

	fmt.Fprintf(out, "# stage converted from %s (%dx%d)\n", filepath.Base(in), len(rows[0]), len(rows))
	if err := grid.Encode(out, rows); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d rows to %s (checksum %s)\n", len(rows), outPath, grid.Checksum(rows))
}
