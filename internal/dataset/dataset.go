// Package dataset loads labeled tabular training data for the crop classifier.
package dataset

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
)

//go:embed reference.csv
var referenceCSV string

// Dataset is a labeled table: one row of numeric features per label.
// The last CSV column is the target; every other column is a feature.
type Dataset struct {
	FeatureNames []string
	Target       string
	Rows         [][]float64
	Labels       []string
}

// Reference returns the built-in soil and weather dataset.
func Reference() (*Dataset, error) {
	return Parse(strings.NewReader(referenceCSV))
}

// Load reads a dataset from a CSV file.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return ds, nil
}

// Parse reads a CSV with a header row. Blank lines are skipped.
func Parse(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("header needs at least one feature and a target column, got %d columns", len(header))
	}

	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if name == "" {
			return nil, errors.New("header contains an empty column name")
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true
	}

	ds := &Dataset{
		FeatureNames: header[:len(header)-1],
		Target:       header[len(header)-1],
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := make([]float64, len(ds.FeatureNames))
		for i := range ds.FeatureNames {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, ds.FeatureNames[i], err)
			}
			row[i] = v
		}
		label := strings.TrimSpace(record[len(record)-1])
		if label == "" {
			return nil, fmt.Errorf("line %d: empty %s label", line, ds.Target)
		}

		ds.Rows = append(ds.Rows, row)
		ds.Labels = append(ds.Labels, label)
	}

	if len(ds.Rows) == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return ds, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Classes returns the distinct labels in order of first appearance.
func (d *Dataset) Classes() []string {
	seen := make(map[string]bool)
	var classes []string
	for _, label := range d.Labels {
		if !seen[label] {
			seen[label] = true
			classes = append(classes, label)
		}
	}
	return classes
}

// Select returns a copy of the feature matrix with columns arranged in the
// order of names. Every name must be a column of the dataset.
func (d *Dataset) Select(names []string) ([][]float64, error) {
	index := make(map[string]int, len(d.FeatureNames))
	for i, name := range d.FeatureNames {
		index[name] = i
	}

	cols := make([]int, len(names))
	for i, name := range names {
		col, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("column %q not in dataset", name)
		}
		cols[i] = col
	}

	out := make([][]float64, len(d.Rows))
	for r, row := range d.Rows {
		selected := make([]float64, len(cols))
		for i, col := range cols {
			selected[i] = row[col]
		}
		out[r] = selected
	}
	return out, nil
}

// ColumnSummary holds descriptive statistics for one feature column.
type ColumnSummary struct {
	Name   string
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// Describe summarizes every feature column. StdDev is the population
// standard deviation.
func (d *Dataset) Describe() ([]ColumnSummary, error) {
	summaries := make([]ColumnSummary, 0, len(d.FeatureNames))
	for i, name := range d.FeatureNames {
		col := make(stats.Float64Data, len(d.Rows))
		for r, row := range d.Rows {
			col[r] = row[i]
		}

		summary := ColumnSummary{Name: name}
		var err error
		if summary.Min, err = col.Min(); err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		if summary.Max, err = col.Max(); err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		if summary.Mean, err = col.Mean(); err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		if summary.StdDev, err = col.StandardDeviationPopulation(); err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
