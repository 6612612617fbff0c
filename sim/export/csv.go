// Package export writes and reads step records as CSV with the columns
// combo_key,business_model,step,costs,revenues.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/bizsim/bizsim/sim"
)

// Header is the column layout shared by every CSV this package produces.
var Header = []string{"combo_key", "business_model", "step", "costs", "revenues"}

// Row is one step record tagged with its sweep combination.
type Row struct {
	ComboKey      string  `json:"combo_key"`
	BusinessModel string  `json:"business_model"`
	Step          int     `json:"step"`
	Costs         float64 `json:"costs"`
	Revenues      float64 `json:"revenues"`
}

// WriteSweepCSV writes every combination in sweep order. Within one
// combination, business models are written in name order.
func WriteSweepCSV(w io.Writer, sweep *sim.SweepResults) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, entry := range sweep.Entries() {
		if err := writeResults(cw, entry.Key, entry.Results); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteResultsCSV writes a single run's results with comboKey in the first
// column. An empty key is allowed for non-sweep runs.
func WriteResultsCSV(w io.Writer, comboKey string, results sim.Results) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	if err := writeResults(cw, comboKey, results); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// SaveSweepCSV writes the sweep to path, creating parent directories.
func SaveSweepCSV(path string, sweep *sim.SweepResults) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSweepCSV(f, sweep); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadSweepCSV parses rows written by WriteSweepCSV. The header row is
// required and must match Header.
func ReadSweepCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("reading csv: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	for i, col := range Header {
		if header[i] != col {
			return nil, fmt.Errorf("reading csv header: column %d is %q, want %q", i, header[i], col)
		}
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		row, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("reading csv line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadSweepCSV reads rows from a file written by SaveSweepCSV.
func LoadSweepCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSweepCSV(f)
}

// Rows flattens a sweep into rows in the order WriteSweepCSV writes them.
func Rows(sweep *sim.SweepResults) []Row {
	var rows []Row
	for _, entry := range sweep.Entries() {
		rows = append(rows, ResultRows(entry.Key, entry.Results)...)
	}
	return rows
}

// ResultRows flattens one run's results, business models in name order.
func ResultRows(comboKey string, results sim.Results) []Row {
	rows := make([]Row, 0)
	for _, name := range sortedNames(results) {
		for _, rec := range results[name] {
			rows = append(rows, Row{
				ComboKey:      comboKey,
				BusinessModel: name,
				Step:          rec.Step,
				Costs:         rec.Costs,
				Revenues:      rec.Revenues,
			})
		}
	}
	return rows
}

func writeResults(cw *csv.Writer, comboKey string, results sim.Results) error {
	for _, r := range ResultRows(comboKey, results) {
		row := []string{
			r.ComboKey,
			r.BusinessModel,
			strconv.Itoa(r.Step),
			fmtFloat(r.Costs),
			fmtFloat(r.Revenues),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func parseRow(rec []string) (Row, error) {
	step, err := strconv.Atoi(rec[2])
	if err != nil {
		return Row{}, fmt.Errorf("step: %w", err)
	}
	costs, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return Row{}, fmt.Errorf("costs: %w", err)
	}
	revenues, err := strconv.ParseFloat(rec[4], 64)
	if err != nil {
		return Row{}, fmt.Errorf("revenues: %w", err)
	}
	return Row{ComboKey: rec[0], BusinessModel: rec[1], Step: step, Costs: costs, Revenues: revenues}, nil
}

func sortedNames(results sim.Results) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
