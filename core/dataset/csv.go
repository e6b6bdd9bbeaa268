package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/kilianp07/eta/core/model"
)

// Header returns the CSV header: the feature columns followed by the label.
func Header() []string {
	h := make([]string, 0, model.NumFeatures+1)
	h = append(h, model.DatasetColumns[:]...)
	return append(h, model.LabelColumn)
}

// WriteCSV writes rows with a header line. Traffic is written as its category
// label.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			formatFloat(r.DistanceKm),
			formatFloat(r.AvgSpeed),
			r.Traffic.String(),
			formatFloat(r.BatteryLevel),
			formatFloat(r.FuelLevel),
			formatFloat(r.ETAMinutes),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a dataset written by WriteCSV. Columns may appear in any
// order but all six must be present.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty dataset")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	cols := make([]int, 0, len(Header()))
	for _, name := range Header() {
		i, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		cols = append(cols, i)
	}

	var rows []Row
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", line, len(header), len(rec))
		}
		row, err := parseRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(rec []string, cols []int) (Row, error) {
	var nums [5]float64
	numeric := []int{0, 1, 3, 4, 5}
	for k, c := range numeric {
		v, err := strconv.ParseFloat(rec[cols[c]], 64)
		if err != nil {
			return Row{}, fmt.Errorf("column %s: %w", Header()[c], err)
		}
		nums[k] = v
	}
	traffic, err := model.ParseTrafficLevel(rec[cols[2]])
	if err != nil {
		return Row{}, fmt.Errorf("column %s: %w", Header()[2], err)
	}
	return Row{
		DistanceKm:   nums[0],
		AvgSpeed:     nums[1],
		Traffic:      traffic,
		BatteryLevel: nums[2],
		FuelLevel:    nums[3],
		ETAMinutes:   nums[4],
	}, nil
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
