package export

import (
	"fmt"
	"io"

	"spatools/api/models/indexes"
	"spatools/api/services/peakfilter"

	"github.com/xuri/excelize/v2"
)

const (
	GenotypesSheet = "genotypes"
	AllelesSheet   = "alleles"
)

var (
	genotypeTitle = []string{"SAMPLE", "ASSAY", "REFSEQ", "POS", "A", "C", "G", "T", "CALL", "QUALITY", "BATCH"}
	alleleTitle   = []string{"SAMPLE", "ASSAY", "MARKER", "ALLELE", "VALUE", "SIZE", "HEIGHT", "TYPE", "RANK", "RATIO"}
)

// WriteWorkbook writes genotypes and alleles as two sheets of one xlsx
// workbook. A ratio that was never computed is written as -1.
func WriteWorkbook(w io.Writer, genotypes []indexes.Genotype, alleles []peakfilter.FilteredAllele) error {
	xlsx := excelize.NewFile()
	defer xlsx.Close()

	genotypeRows := make([][]any, 0, len(genotypes))
	for _, g := range genotypes {
		genotypeRows = append(genotypeRows, []any{
			g.SampleCode, g.LocusCode, g.RefSeq, g.Position,
			g.Depths.A, g.Depths.C, g.Depths.G, g.Depths.T,
			string(g.Call), g.Quality, g.Batch,
		})
	}
	if err := writeSliceSheet(xlsx, GenotypesSheet, genotypeTitle, genotypeRows); err != nil {
		return err
	}

	alleleRows := make([][]any, 0, len(alleles))
	for _, a := range alleles {
		alleleRows = append(alleleRows, []any{
			a.SampleId, a.AssayId, a.MarkerId, a.AlleleId, a.Value,
			a.Size, a.Height, string(a.Type), a.Rank, a.RatioOrSentinel(),
		})
	}
	if err := writeSliceSheet(xlsx, AllelesSheet, alleleTitle, alleleRows); err != nil {
		return err
	}

	// drop the default sheet of a new workbook
	if err := xlsx.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	return xlsx.Write(w)
}

func writeSliceSheet(xlsx *excelize.File, sheet string, title []string, rows [][]any) error {
	if _, err := xlsx.NewSheet(sheet); err != nil {
		return err
	}
	if err := xlsx.SetSheetRow(sheet, "A1", &title); err != nil {
		return err
	}
	for i, row := range rows {
		if err := xlsx.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	return nil
}
