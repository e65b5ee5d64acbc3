package services

import (
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spatools/api/models"
	pt "spatools/api/models/constants/peak-type"
	"spatools/api/services/basecall"
	"spatools/api/services/peakfilter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectGenotypes(t *testing.T, scan func(fn func(GenotypeRecord) error) ([]string, error)) ([]GenotypeRecord, []string) {
	t.Helper()
	var out []GenotypeRecord
	errlog, err := scan(func(r GenotypeRecord) error {
		out = append(out, r)
		return nil
	})
	require.NoError(t, err)
	return out, errlog
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, '\t', DetectDelimiter("SAMPLE\tASSAY\tPOS"))
	assert.Equal(t, ',', DetectDelimiter("SAMPLE,ASSAY,POS"))
	assert.Equal(t, ';', DetectDelimiter("SAMPLE;ASSAY;POS"))
	assert.Equal(t, '\t', DetectDelimiter("SAMPLE"))
}

func TestScanGenotypeTable(t *testing.T) {
	table := "sample,assay,refseq,pos,A,C,G,T\n" +
		"S1,L1,chr1,100,0.02,0.001,na,0\n" +
		"S2,L1,chr1,100,NA,30,0,0\n" +
		"S3,L1,chr1,abc,1,1,1,1\n" +
		"S4,L1,chr1,100,1,-1,1,1\n"

	records, errlog := collectGenotypes(t, func(fn func(GenotypeRecord) error) ([]string, error) {
		return ScanGenotypeTable(strings.NewReader(table), 1000, fn)
	})

	require.Len(t, records, 2)
	assert.Equal(t, "S1", records[0].SampleCode)
	assert.Equal(t, "L1", records[0].LocusCode)
	assert.Equal(t, "chr1", records[0].RefSeq)
	assert.Equal(t, 100, records[0].Position)
	assert.Equal(t, basecall.DepthVector{A: 20, C: 1, G: 0, T: 0}, records[0].Depths)
	assert.Equal(t, basecall.DepthVector{A: 0, C: 30000, G: 0, T: 0}, records[1].Depths)

	require.Len(t, errlog, 2)
	assert.Contains(t, errlog[0], "line 4")
	assert.Contains(t, errlog[1], "line 5")
}

func TestScanGenotypeTable_TabDelimited(t *testing.T) {
	table := "SAMPLE\tASSAY\tREFSEQ\tPOS\tA\tC\tG\tT\r\n" +
		"S1\tL9\tchr2\t7\t1\t2\t3\t4\r\n"

	records, errlog := collectGenotypes(t, func(fn func(GenotypeRecord) error) ([]string, error) {
		return ScanGenotypeTable(strings.NewReader(table), 1, fn)
	})
	assert.Empty(t, errlog)
	require.Len(t, records, 1)
	assert.Equal(t, basecall.DepthVector{A: 1, C: 2, G: 3, T: 4}, records[0].Depths)
}

func TestScanGenotypeTable_MissingColumns(t *testing.T) {
	_, err := ScanGenotypeTable(strings.NewReader("SAMPLE,ASSAY,A,C\n"), 1, func(GenotypeRecord) error { return nil })
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Contains(t, err.Error(), "REFSEQ")
}

func TestScanGenotypeTable_StopsOnCallbackError(t *testing.T) {
	table := "SAMPLE,ASSAY,REFSEQ,POS,A,C,G,T\nS1,L1,c,1,1,1,1,1\nS2,L1,c,1,1,1,1,1\n"
	stop := errors.New("stop")
	calls := 0
	_, err := ScanGenotypeTable(strings.NewReader(table), 1, func(GenotypeRecord) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

const testVcf = "##fileformat=VCFv4.2\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS1\tS2\n" +
	"chr1\t10\t.\tA\tG\t50\tPASS\t.\tGT:AD\t0/1:12,30\t0/0:40,0\n" +
	"chr1\t20\t.\tC\tCT,T\t50\tPASS\t.\tGT:AD:DP\t1/2:3,9,27:39\t./.:.:.\n" +
	"chr1\t30\t.\tG\tA\t50\tPASS\t.\tGT\t0/1\t0/0\n" +
	"chr1\t40\t.\tG\tA\t50\tPASS\t.\tGT:AD\t0/1:x,1\t0/0:5,0\n"

func TestScanVcfDepths(t *testing.T) {
	records, errlog := collectGenotypes(t, func(fn func(GenotypeRecord) error) ([]string, error) {
		return ScanVcfDepths(strings.NewReader(testVcf), fn)
	})

	require.Len(t, records, 5)

	first := records[0]
	assert.Equal(t, "S1", first.SampleCode)
	assert.Equal(t, "chr1:10", first.LocusCode)
	assert.Equal(t, "chr1", first.RefSeq)
	assert.Equal(t, 10, first.Position)
	assert.Equal(t, basecall.DepthVector{A: 12, G: 30}, first.Depths)
	assert.Equal(t, []string{"A", "G"}, first.Observed)

	// insertion allele carries no base depth and is coded as X
	multi := records[2]
	assert.Equal(t, "chr1:20", multi.LocusCode)
	assert.Equal(t, []string{"X", "T"}, multi.Alt)
	assert.Equal(t, basecall.DepthVector{C: 3, T: 27}, multi.Depths)
	assert.Equal(t, []string{"C", "T"}, multi.Observed)

	missing := records[3]
	assert.Equal(t, "S2", missing.SampleCode)
	assert.Equal(t, basecall.DepthVector{}, missing.Depths)
	assert.Empty(t, missing.Observed)

	assert.Equal(t, "chr1:40", records[4].LocusCode)
	assert.Equal(t, "S2", records[4].SampleCode)

	require.Len(t, errlog, 2)
	assert.Contains(t, errlog[0], "no AD")
	assert.Contains(t, errlog[1], "invalid AD")
}

func TestScanVcfDepths_NoHeader(t *testing.T) {
	_, err := ScanVcfDepths(strings.NewReader("##fileformat=VCFv4.2\n"), func(GenotypeRecord) error { return nil })
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestScanPeakTable(t *testing.T) {
	table := "SAMPLE\tASSAY\tMARKER\tALLELE\tVALUE\tSIZE\tHEIGHT\tTYPE\n" +
		"1\t2\t3\t4\t150\t150.2\t1200.5\tpeak-bin\n" +
		"1\t2\t3\t5\t152\t152.1\t300\tstutter\n" +
		"1\t2\t3\t6\t154\t154\t0\tbin\n" +
		"1\t2\t3\t7\t156\t156\t10\tunknown\n"

	var peaks []peakfilter.PeakRecord
	errlog, err := ScanPeakTable(strings.NewReader(table), func(p peakfilter.PeakRecord) error {
		peaks = append(peaks, p)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, peaks, 2)
	assert.Equal(t, peakfilter.PeakRecord{
		SampleId: 1, AssayId: 2, MarkerId: 3, AlleleId: 4,
		Value: 150, Size: 150.2, Height: 1200.5, Type: pt.Bin,
	}, peaks[0])
	assert.Equal(t, pt.Stutter, peaks[1].Type)

	require.Len(t, errlog, 2)
	assert.Contains(t, errlog[0], "line 4")
	assert.Contains(t, errlog[1], "line 5")
}

func TestOpenMaybeGzip(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "calls.csv")
	require.NoError(t, os.WriteFile(plain, []byte("plain"), 0o644))

	zipped := filepath.Join(dir, "calls.csv.gz")
	f, err := os.Create(zipped)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	_, err = gw.Write([]byte("zipped"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())

	for path, want := range map[string]string{plain: "plain", zipped: "zipped"} {
		rc, err := OpenMaybeGzip(path)
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, want, string(content))
		assert.NoError(t, rc.Close())
	}

	_, err = OpenMaybeGzip(filepath.Join(dir, "absent.csv"))
	assert.Error(t, err)
}
