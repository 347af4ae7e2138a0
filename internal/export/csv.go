// Package export writes tracked horizon data out as CSV tables, height
// graphs, and overlay renders.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ayusman/skyline/internal/horizon"
)

// FrameLine pairs a frame index with its tracked horizon line.
type FrameLine struct {
	Index int
	Line  horizon.Line
}

// WriteImageCSV writes one X,Y row per tracked column. Unknown columns
// are omitted.
func WriteImageCSV(path string, line horizon.Line) error {
	records := [][]string{{"X", "Y"}}
	for x := 0; x < len(line); x++ {
		if !line.Known(x) {
			continue
		}
		records = append(records, []string{strconv.Itoa(x), strconv.Itoa(line[x])})
	}
	return writeCSV(path, records)
}

// EncodeVideoCSV writes one Frame,X,Y row per tracked column per frame.
func EncodeVideoCSV(w io.Writer, lines []FrameLine) error {
	records := [][]string{{"Frame", "X", "Y"}}
	for _, fl := range lines {
		frame := strconv.Itoa(fl.Index)
		for x := 0; x < len(fl.Line); x++ {
			if !fl.Line.Known(x) {
				continue
			}
			records = append(records, []string{frame, strconv.Itoa(x), strconv.Itoa(fl.Line[x])})
		}
	}
	if err := csv.NewWriter(w).WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteVideoCSV writes the per-frame table to a file at path.
func WriteVideoCSV(path string, lines []FrameLine) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv %s: %w", path, err)
	}
	if err := EncodeVideoCSV(f, lines); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv %s: %w", path, err)
	}
	return nil
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("write csv %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv %s: %w", path, err)
	}
	return nil
}
