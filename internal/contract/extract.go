package contract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/ledongthuc/pdf"

	"tendermatch/internal"
	"tendermatch/internal/tabular"
	"tendermatch/internal/util"
)

// Refiner is an optional language-model collaborator. A failed refinement
// never discards the regex result.
type Refiner interface {
	ExtractContract(ctx context.Context, text string) (internal.CurrentContract, error)
}

type Extractor struct {
	maxBytes int64
	refiner  Refiner
	log      *slog.Logger
}

func NewExtractor(maxBytes int64, refiner Refiner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{maxBytes: maxBytes, refiner: refiner, log: logger}
}

// ContractSchema lists the invoice headers the structured stage understands.
func ContractSchema() tabular.Schema {
	return tabular.Schema{Fields: []tabular.Field{
		{Name: "leaseEndDate", Aliases: []string{"Lease End Date", "End Date", "Contract End", "Expiry Date", "lease_end"}},
		{Name: "leaseStartDate", Aliases: []string{"Lease Start Date", "Start Date", "Contract Start", "lease_start"}},
		{Name: "monthlyPayment", Aliases: []string{"Monthly_Payment", "Monthly Payment", "Lease Payment", "Monthly Lease", "Rental"}},
		{Name: "quarterlyPayment", Aliases: []string{"Quarterly Payment", "Quarterly Lease", "Quarterly Rental"}},
		{Name: "monoCPC", Aliases: []string{"Mono CPC", "CPC Mono", "Mono Rate", "Black CPC", "cpc_mono"}},
		{Name: "colourCPC", Aliases: []string{"Colour CPC", "Color CPC", "CPC Colour", "Colour Rate", "cpc_colour"}},
		{Name: "machineModel", Aliases: []string{"Machine Model", "Model", "Machine", "Device"}},
		{Name: "leasingCompany", Aliases: []string{"Leasing Company", "Lessor", "Finance Company", "Funder"}},
	}}
}

// Extract produces a best-effort CurrentContract from an invoice-like
// document. Malformed content yields null fields and a note, never an error;
// the error return covers unreadable files and unsupported formats only.
func (e *Extractor) Extract(ctx context.Context, path string) (internal.CurrentContract, []string, error) {
	var notes []string

	ext := strings.ToLower(filepath.Ext(path))
	var out internal.CurrentContract
	var text string

	switch ext {
	case ".csv", ".xls", ".xlsx":
		table, err := tabular.ReadFile(path, ContractSchema(), e.maxBytes)
		if err != nil {
			return internal.CurrentContract{}, notes, err
		}
		out = fromFirstRow(table.Rows[0], &notes)
		if out.IsEmpty() {
			notes = append(notes, "no recognised headers; falling back to text scan")
			text = flattenTable(table)
			out = fromText(text, &notes)
		} else {
			text = flattenTable(table)
		}
	case ".html", ".htm":
		blob, err := e.readCapped(path)
		if err != nil {
			return internal.CurrentContract{}, notes, err
		}
		out, text = e.fromHTML(blob, &notes)
	case ".pdf":
		blob, err := e.readCapped(path)
		if err != nil {
			return internal.CurrentContract{}, notes, err
		}
		text, err = pdfToText(blob)
		if err != nil {
			notes = append(notes, fmt.Sprintf("pdf text extraction failed: %v", err))
			return internal.CurrentContract{}, notes, nil
		}
		out = fromText(text, &notes)
	default:
		return internal.CurrentContract{}, notes, fmt.Errorf("%w: %s", tabular.ErrUnsupportedFormat, ext)
	}

	if e.refiner != nil && text != "" {
		refined, err := e.refiner.ExtractContract(ctx, text)
		if err != nil {
			e.log.Warn("contract.refine_failed", "path", filepath.Base(path), "error", err)
			notes = append(notes, "llm refinement unavailable; regex extraction kept")
		} else {
			out = refined
			notes = append(notes, "fields refined by llm")
		}
	}

	return out, notes, nil
}

func (e *Extractor) readCapped(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if e.maxBytes > 0 && info.Size() > e.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", tabular.ErrFileTooLarge, info.Size())
	}
	return os.ReadFile(path)
}

// fromFirstRow implements the structured stage: values from the first data
// row of a tabular invoice.
func fromFirstRow(row tabular.Row, notes *[]string) internal.CurrentContract {
	var out internal.CurrentContract

	if v, ok := row.Get("monthlyPayment"); ok {
		if amount, err := util.ParseMoney(v); err == nil {
			freq := internal.FrequencyMonthly
			out.LeaseCost = &amount
			out.PaymentFrequency = &freq
		} else {
			*notes = append(*notes, "unparseable monthly payment: "+v)
		}
	}
	if out.LeaseCost == nil {
		if v, ok := row.Get("quarterlyPayment"); ok {
			if amount, err := util.ParseMoney(v); err == nil {
				freq := internal.FrequencyQuarterly
				out.LeaseCost = &amount
				out.PaymentFrequency = &freq
			}
		}
	}
	if v, ok := row.Get("monoCPC"); ok {
		if rate, err := parseCPC(v); err == nil {
			out.MonoCPC = &rate
		}
	}
	if v, ok := row.Get("colourCPC"); ok {
		if rate, err := parseCPC(v); err == nil {
			out.ColourCPC = &rate
		}
	}
	if v, ok := row.Get("leaseEndDate"); ok {
		if ts, err := parseUKDate(v); err == nil {
			out.EndDate = &ts
		} else {
			*notes = append(*notes, "unparseable end date: "+v)
		}
	}
	if v, ok := row.Get("leaseStartDate"); ok {
		if ts, err := parseUKDate(v); err == nil {
			out.StartDate = &ts
		}
	}
	if v, ok := row.Get("machineModel"); ok {
		out.MachineModel = util.StringPtr(v)
	}
	if v, ok := row.Get("leasingCompany"); ok {
		out.LeasingCompany = util.StringPtr(v)
	}
	return out
}

// fromHTML walks invoice tables the way supplier portals export them: header
// row, one data row. Pages without a usable table fall back to flattened text.
func (e *Extractor) fromHTML(blob []byte, notes *[]string) (internal.CurrentContract, string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(blob))
	if err != nil {
		*notes = append(*notes, fmt.Sprintf("html parse failed: %v", err))
		return internal.CurrentContract{}, ""
	}

	var out internal.CurrentContract
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return true
		}
		var headers []string
		rows.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, util.NormalizeSpaces(cell.Text()))
		})
		var cells []string
		rows.Eq(1).Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, util.NormalizeSpaces(cell.Text()))
		})

		records := [][]string{headers, cells}
		parsed, err := buildContractTable(records)
		if err != nil {
			return true
		}
		candidate := fromFirstRow(parsed.Rows[0], notes)
		if !candidate.IsEmpty() {
			out = candidate
			return false
		}
		return true
	})

	text := util.NormalizeSpaces(doc.Text())
	if out.IsEmpty() {
		*notes = append(*notes, "no recognised invoice table; falling back to text scan")
		out = fromText(doc.Text(), notes)
	}
	return out, text
}

func buildContractTable(records [][]string) (*tabular.Table, error) {
	buf := &bytes.Buffer{}
	// Reuse the CSV path so header synonym resolution stays in one place.
	for _, rec := range records {
		for i, c := range rec {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(`"` + strings.ReplaceAll(c, `"`, `""`) + `"`)
		}
		buf.WriteByte('\n')
	}
	return tabular.ParseCSV(buf.Bytes(), ContractSchema())
}

func pdfToText(blob []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func flattenTable(table *tabular.Table) string {
	lines := make([]string, 0, len(table.Rows)+1)
	lines = append(lines, strings.Join(table.Headers, " | "))
	for _, row := range table.Rows {
		lines = append(lines, strings.Join(row.Cells, " | "))
	}
	return strings.Join(lines, "\n")
}

// Regex stage. Order is fixed; the first successful match for a field wins.

var (
	reFreqLease = regexp.MustCompile(`(?i)\b(monthly|quarterly|annual)(?:ly)?\s+(?:lease|rental|payment)s?\s*[:\-]?\s*£?\s*([0-9][\d,]*(?:\.\d+)?)`)
	reLeaseFreq = regexp.MustCompile(`(?i)\b(?:lease|rental)\s+(?:cost|payment|charge)s?\s*[:\-]?\s*£?\s*([0-9][\d,]*(?:\.\d+)?)\s*(?:per\s+|/\s*)?(month|quarter|annum|year)?`)
	reMonoCPC   = regexp.MustCompile(`(?i)\bmono(?:chrome)?\s*(?:cpc|cost\s+per\s+(?:copy|page)|rate)\s*[:\-]?\s*(£?\s*[0-9.]+\s*p?)`)
	reColourCPC = regexp.MustCompile(`(?i)\bcolou?r\s*(?:cpc|cost\s+per\s+(?:copy|page)|rate)\s*[:\-]?\s*(£?\s*[0-9.]+\s*p?)`)
	reEndDate   = regexp.MustCompile(`(?i)\b(?:lease\s+|contract\s+)?end\s*(?:date|s)?\s*[:\-]?\s*(\d{4}-\d{2}-\d{2}|\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}|\d{1,2}\s+[A-Za-z]+\s+\d{4})`)
	reStartDate = regexp.MustCompile(`(?i)\b(?:lease\s+|contract\s+)?start\s*(?:date)?\s*[:\-]?\s*(\d{4}-\d{2}-\d{2}|\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}|\d{1,2}\s+[A-Za-z]+\s+\d{4})`)
	reModel     = regexp.MustCompile(`(?i)\b(?:machine|device)\s*(?:model)?\s*[:\-]\s*([A-Za-z0-9][A-Za-z0-9 \-]{2,40})`)
	reLessor    = regexp.MustCompile(`(?i)\bleasing\s+company\s*[:\-]\s*([A-Za-z0-9][A-Za-z0-9 &.\-]{2,60})`)
)

// fromText implements the unstructured stage over flattened document text.
func fromText(text string, notes *[]string) internal.CurrentContract {
	var out internal.CurrentContract

	if m := reFreqLease.FindStringSubmatch(text); m != nil {
		if amount, err := util.ParseMoney(m[2]); err == nil {
			freq := frequencyFromWord(m[1])
			out.LeaseCost = &amount
			out.PaymentFrequency = &freq
		}
	} else if m := reLeaseFreq.FindStringSubmatch(text); m != nil {
		if amount, err := util.ParseMoney(m[1]); err == nil {
			out.LeaseCost = &amount
			if m[2] != "" {
				freq := frequencyFromWord(m[2])
				out.PaymentFrequency = &freq
			}
		}
	}

	if m := reMonoCPC.FindStringSubmatch(text); m != nil {
		if rate, err := parseCPC(m[1]); err == nil {
			out.MonoCPC = &rate
		}
	}
	if m := reColourCPC.FindStringSubmatch(text); m != nil {
		if rate, err := parseCPC(m[1]); err == nil {
			out.ColourCPC = &rate
		}
	}
	if m := reEndDate.FindStringSubmatch(text); m != nil {
		if ts, err := parseUKDate(m[1]); err == nil {
			out.EndDate = &ts
		} else {
			*notes = append(*notes, "unparseable end date: "+m[1])
		}
	}
	if m := reStartDate.FindStringSubmatch(text); m != nil {
		if ts, err := parseUKDate(m[1]); err == nil {
			out.StartDate = &ts
		}
	}
	if m := reModel.FindStringSubmatch(text); m != nil {
		out.MachineModel = util.StringPtr(strings.TrimSpace(m[1]))
	}
	if m := reLessor.FindStringSubmatch(text); m != nil {
		out.LeasingCompany = util.StringPtr(strings.TrimSpace(m[1]))
	}

	return out
}

func frequencyFromWord(word string) internal.PaymentFrequency {
	switch strings.ToLower(word) {
	case "monthly", "month":
		return internal.FrequencyMonthly
	case "annual", "annually", "annum", "year", "yearly":
		return internal.FrequencyAnnual
	default:
		return internal.FrequencyQuarterly
	}
}

// parseCPC reads a cost-per-copy cell into pounds per page. A trailing "p"
// means pence; anything else is taken as pounds.
func parseCPC(input string) (float64, error) {
	s := strings.TrimSpace(input)
	pence := false
	if strings.HasSuffix(strings.ToLower(s), "p") && !strings.HasPrefix(s, "£") {
		pence = true
		s = s[:len(s)-1]
	}
	v, err := util.ParseMoney(s)
	if err != nil {
		return 0, err
	}
	if pence {
		v /= 100
	}
	return v, nil
}

// parseUKDate reads a date, preferring the UK day-first reading of ambiguous
// forms like 01/03/2026.
func parseUKDate(input string) (time.Time, error) {
	return dateparse.ParseAny(strings.TrimSpace(input), dateparse.PreferMonthFirst(false))
}
