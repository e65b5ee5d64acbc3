package services

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"spatools/api/models"
	n "spatools/api/models/constants/nucleotide"
	pt "spatools/api/models/constants/peak-type"
	"spatools/api/services/basecall"
	"spatools/api/services/peakfilter"

	"github.com/samber/lo"
)

// GenotypeRecord is one (sample, locus) depth observation read from a
// genotype table or a VCF.
type GenotypeRecord struct {
	SampleCode string
	LocusCode  string
	RefSeq     string
	Position   int
	Ref        string
	Alt        []string
	Depths     basecall.DepthVector
	Observed   []string
}

// OpenMaybeGzip opens path, transparently decompressing .gz files.
func OpenMaybeGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		return f, nil
	}

	gr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &gzipFile{Reader: gr, file: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	gzErr := g.Reader.Close()
	if err := g.file.Close(); err != nil {
		return err
	}
	return gzErr
}

// DetectDelimiter picks the most frequent of tab, comma and semicolon in
// a header line, defaulting to tab.
func DetectDelimiter(header string) rune {
	best, bestCount := '\t', strings.Count(header, "\t")
	for _, d := range []rune{',', ';'} {
		if c := strings.Count(header, string(d)); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}

// newTableReader reads the header line, detects its delimiter and returns
// a csv reader positioned on the first data row plus the column index.
func newTableReader(r io.Reader, required []string) (*csv.Reader, map[string]int, error) {
	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && header != "") {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	header = strings.TrimRight(header, "\r\n")
	delim := DetectDelimiter(header)

	columns := map[string]int{}
	for i, h := range strings.Split(header, string(delim)) {
		columns[strings.ToUpper(strings.Trim(strings.TrimSpace(h), `"`))] = i
	}
	missing := lo.Filter(required, func(h string, _ int) bool {
		_, ok := columns[h]
		return !ok
	})
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("missing column(s) %s: %w", strings.Join(missing, ", "), models.ErrInvalidInput)
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	return cr, columns, nil
}

// parseDepthText reads a depth cell: "na" is zero, fractional values are
// scaled and rounded up.
func parseDepthText(text string, scale float64) (int, error) {
	text = strings.TrimSpace(text)
	if strings.EqualFold(text, "na") || text == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("depth %q is not a non-negative number", text)
	}
	return int(math.Ceil(v * scale)), nil
}

// ScanGenotypeTable streams a SAMPLE/ASSAY/REFSEQ/POS/A/C/G/T table into
// fn. Unparseable rows are reported in the returned error log and
// skipped; an error from fn stops the scan.
func ScanGenotypeTable(r io.Reader, scale float64, fn func(GenotypeRecord) error) ([]string, error) {
	cr, col, err := newTableReader(r, models.GenotypeCsvHeaders)
	if err != nil {
		return nil, err
	}

	var errlog []string
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			errlog = append(errlog, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if len(row) < len(col) {
			errlog = append(errlog, fmt.Sprintf("line %d: expected %d fields, got %d", line, len(col), len(row)))
			continue
		}

		rec := GenotypeRecord{
			SampleCode: strings.TrimSpace(row[col["SAMPLE"]]),
			LocusCode:  strings.TrimSpace(row[col["ASSAY"]]),
			RefSeq:     strings.TrimSpace(row[col["REFSEQ"]]),
		}
		if rec.SampleCode == "" || rec.LocusCode == "" {
			errlog = append(errlog, fmt.Sprintf("line %d: empty SAMPLE or ASSAY", line))
			continue
		}
		if rec.Position, err = strconv.Atoi(strings.TrimSpace(row[col["POS"]])); err != nil {
			errlog = append(errlog, fmt.Sprintf("line %d: invalid POS %q", line, row[col["POS"]]))
			continue
		}

		var depthErr error
		for _, nuc := range n.CallOrder {
			d, err := parseDepthText(row[col[string(nuc)]], scale)
			if err != nil {
				depthErr = fmt.Errorf("line %d: column %s: %v", line, nuc, err)
				break
			}
			setDepth(&rec.Depths, string(nuc), d)
		}
		if depthErr != nil {
			errlog = append(errlog, depthErr.Error())
			continue
		}

		if err := fn(rec); err != nil {
			return errlog, err
		}
	}
	return errlog, nil
}

func setDepth(d *basecall.DepthVector, base string, v int) {
	switch strings.ToUpper(base) {
	case "A":
		d.A = v
	case "C":
		d.C = v
	case "G":
		d.G = v
	case "T":
		d.T = v
	}
}

// ScanVcfDepths streams per-sample allelic depths (FORMAT field AD) of a
// VCF into fn. Only single-base REF/ALT alleles carry depth; bases absent
// from a site keep depth zero and are left out of Observed.
func ScanVcfDepths(r io.Reader, fn func(GenotypeRecord) error) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		errlog    []string
		sampleIds []string
		line      int
	)
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if sampleIds == nil {
			if strings.HasPrefix(text, "#CHROM") {
				headers := strings.Split(text, "\t")
				if len(headers) <= len(models.VcfHeaders) {
					return errlog, fmt.Errorf("VCF header has no sample columns: %w", models.ErrInvalidInput)
				}
				sampleIds = headers[len(models.VcfHeaders):]
			}
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		fields := strings.Split(text, "\t")
		if len(fields) != len(models.VcfHeaders)+len(sampleIds) {
			errlog = append(errlog, fmt.Sprintf("line %d: expected %d fields, got %d", line, len(models.VcfHeaders)+len(sampleIds), len(fields)))
			continue
		}

		chrom, ref := fields[0], strings.ToUpper(fields[3])
		pos, err := strconv.Atoi(fields[1])
		if err != nil {
			errlog = append(errlog, fmt.Sprintf("line %d: invalid POS %q", line, fields[1]))
			continue
		}
		adIndex := lo.IndexOf(strings.Split(fields[8], ":"), "AD")
		if adIndex < 0 {
			errlog = append(errlog, fmt.Sprintf("line %d: no AD in FORMAT %q", line, fields[8]))
			continue
		}

		alts := strings.Split(strings.ToUpper(fields[4]), ",")
		alleles := append([]string{ref}, alts...)
		// multi-base alternates are kept as X on the locus
		altCodes := lo.Map(alts, func(a string, _ int) string {
			if len(a) == 1 {
				return a
			}
			return "X"
		})

		for s, sampleId := range sampleIds {
			values := strings.Split(fields[len(models.VcfHeaders)+s], ":")
			rec := GenotypeRecord{
				SampleCode: sampleId,
				LocusCode:  fmt.Sprintf("%s:%d", chrom, pos),
				RefSeq:     chrom,
				Position:   pos,
				Ref:        ref,
				Alt:        altCodes,
			}

			if adIndex < len(values) && values[adIndex] != "." {
				ads := strings.Split(values[adIndex], ",")
				var adErr error
				for i, allele := range alleles {
					if i >= len(ads) || len(allele) != 1 || !n.IsBase(allele) {
						continue
					}
					if ads[i] == "." {
						continue
					}
					depth, err := strconv.Atoi(ads[i])
					if err != nil || depth < 0 {
						adErr = fmt.Errorf("line %d: sample %s: invalid AD %q", line, sampleId, values[adIndex])
						break
					}
					setDepth(&rec.Depths, allele, depth)
					rec.Observed = append(rec.Observed, allele)
				}
				if adErr != nil {
					errlog = append(errlog, adErr.Error())
					continue
				}
			}

			if err := fn(rec); err != nil {
				return errlog, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return errlog, err
	}
	if sampleIds == nil {
		return errlog, fmt.Errorf("no #CHROM header found: %w", models.ErrInvalidInput)
	}
	return errlog, nil
}

// ScanPeakTable streams a microsatellite peak table into fn.
func ScanPeakTable(r io.Reader, fn func(peakfilter.PeakRecord) error) ([]string, error) {
	cr, col, err := newTableReader(r, models.PeakCsvHeaders)
	if err != nil {
		return nil, err
	}

	parseId := func(row []string, key string) (int64, error) {
		return strconv.ParseInt(strings.TrimSpace(row[col[key]]), 10, 64)
	}
	parseFloat := func(row []string, key string) (float64, error) {
		return strconv.ParseFloat(strings.TrimSpace(row[col[key]]), 64)
	}

	var errlog []string
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			errlog = append(errlog, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if len(row) < len(col) {
			errlog = append(errlog, fmt.Sprintf("line %d: expected %d fields, got %d", line, len(col), len(row)))
			continue
		}

		var (
			p       peakfilter.PeakRecord
			errs    []error
			collect = func(err error) {
				if err != nil {
					errs = append(errs, err)
				}
			}
		)
		p.SampleId, err = parseId(row, "SAMPLE")
		collect(err)
		p.AssayId, err = parseId(row, "ASSAY")
		collect(err)
		p.MarkerId, err = parseId(row, "MARKER")
		collect(err)
		p.AlleleId, err = parseId(row, "ALLELE")
		collect(err)
		p.Value, err = strconv.Atoi(strings.TrimSpace(row[col["VALUE"]]))
		collect(err)
		p.Size, err = parseFloat(row, "SIZE")
		collect(err)
		p.Height, err = parseFloat(row, "HEIGHT")
		collect(err)
		p.Type, err = pt.CastToPeakType(row[col["TYPE"]])
		collect(err)

		if len(errs) > 0 {
			errlog = append(errlog, fmt.Sprintf("line %d: %v", line, errors.Join(errs...)))
			continue
		}
		if p.Height <= 0 || p.Size < 0 {
			errlog = append(errlog, fmt.Sprintf("line %d: height must be positive and size non-negative", line))
			continue
		}

		if err := fn(p); err != nil {
			return errlog, err
		}
	}
	return errlog, nil
}
