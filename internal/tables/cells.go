package tables

import (
	"fmt"
	"strconv"
)

// CellRow is one presented pMHC complex in the simulated cell-population
// table. The table is the only artifact shared between the simulate and
// optimize commands.
type CellRow struct {
	SimulationName    string
	Repetition        int
	CellID            int
	Peptide           string
	Allele            string
	Mutation          string
	BindingScore      float64
	CleavageScore     float64
	PresentationScore float64
}

var cellHeader = []string{
	"simulation_name",
	"repetition",
	"cell_id",
	"peptide",
	"allele",
	"mutation",
	"binding_score",
	"cleavage_score",
	"presentation_score",
}

// WriteCellRows writes the cell-population table.
func WriteCellRows(path string, rows []CellRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.SimulationName,
			strconv.Itoa(r.Repetition),
			strconv.Itoa(r.CellID),
			r.Peptide,
			r.Allele,
			r.Mutation,
			formatFloat(r.BindingScore),
			formatFloat(r.CleavageScore),
			formatFloat(r.PresentationScore),
		})
	}
	return WriteCSV(path, cellHeader, records)
}

// LoadCellRows reads a cell-population table previously written by
// WriteCellRows.
func LoadCellRows(path string) ([]CellRow, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	idx := make([]int, len(cellHeader))
	for i, col := range cellHeader {
		if idx[i], err = t.index(col); err != nil {
			return nil, err
		}
	}

	rows := make([]CellRow, 0, len(t.rows))
	for _, row := range t.rows {
		rep, err := strconv.Atoi(row[idx[1]])
		if err != nil {
			return nil, fmt.Errorf("bad repetition %q in %s: %w", row[idx[1]], path, err)
		}
		cellID, err := strconv.Atoi(row[idx[2]])
		if err != nil {
			return nil, fmt.Errorf("bad cell_id %q in %s: %w", row[idx[2]], path, err)
		}
		binding, err := t.float(row, idx[6])
		if err != nil {
			return nil, err
		}
		cleavage, err := t.float(row, idx[7])
		if err != nil {
			return nil, err
		}
		presentation, err := t.float(row, idx[8])
		if err != nil {
			return nil, err
		}

		rows = append(rows, CellRow{
			SimulationName:    row[idx[0]],
			Repetition:        rep,
			CellID:            cellID,
			Peptide:           row[idx[3]],
			Allele:            row[idx[4]],
			Mutation:          row[idx[5]],
			BindingScore:      binding,
			CleavageScore:     cleavage,
			PresentationScore: presentation,
		})
	}
	return rows, nil
}
