package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jjenkins/lottosync/internal/drawdate"
	"github.com/jjenkins/lottosync/internal/model"
)

// Selectors for the only markup the results endpoint is known to emit
const (
	selLottoType = "span.name"
	selDrawDate  = "span.date"
	selWinning   = "ul.lottery-number-list:not(.machine-numbers)"
	selMachine   = "ul.machine-numbers"

	// Anything matching these is navigation, not a draw.
	selPagination = ".pagination, .pager, .page-link, .page-item, a[href*='pn=']"
	// Rows carrying these are outside what the parser understands.
	selForeign = "script, iframe, form, table"
)

// PageStats counts what happened to the rows of one page
type PageStats struct {
	Rows     int
	Accepted int
	Rejected int
}

// Parser turns result-table fragments into candidate draws
type Parser struct {
	now func() time.Time
}

// NewParser creates a new Parser
func NewParser() *Parser {
	return &Parser{now: time.Now}
}

// ParsePage parses every <tr> in an HTML fragment. Rejected rows are counted, never returned.
func (p *Parser) ParsePage(fragment string) ([]model.CandidateDraw, PageStats) {
	var stats PageStats

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(wrapFragment(fragment)))
	if err != nil {
		return nil, stats
	}

	var draws []model.CandidateDraw
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		stats.Rows++
		draw, ok := p.ParseRow(row)
		if !ok {
			stats.Rejected++
			return
		}
		stats.Accepted++
		draws = append(draws, *draw)
	})

	return draws, stats
}

// ParseRowHTML parses a single <tr>...</tr> fragment
func (p *Parser) ParseRowHTML(fragment string) (*model.CandidateDraw, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(wrapFragment(fragment)))
	if err != nil {
		return nil, false
	}
	row := doc.Find("tr").First()
	if row.Length() == 0 {
		return nil, false
	}
	return p.ParseRow(row)
}

// ParseRow extracts a draw from one table row, or reports false.
//
// Layout: cell 0 holds span.name, cell 1 holds span.date, cell 2 holds the
// winning list (ul.lottery-number-list) and optionally the machine list
// (ul.machine-numbers). Numbers outside [1,90] are dropped; a row left with
// no winning numbers is rejected.
func (p *Parser) ParseRow(row *goquery.Selection) (*model.CandidateDraw, bool) {
	if row == nil || row.Length() == 0 {
		return nil, false
	}
	if isPaginationRow(row) || row.Find(selForeign).Length() > 0 {
		return nil, false
	}

	cells := row.ChildrenFiltered("td")
	if cells.Length() < 3 {
		return nil, false
	}

	lottoType := cleanText(cells.Eq(0).Find(selLottoType).First().Text())
	if lottoType == "" {
		return nil, false
	}

	rawDate := cleanText(cells.Eq(1).Find(selDrawDate).First().Text())
	if rawDate == "" {
		return nil, false
	}

	winning := extractNumbers(cells.Eq(2).Find(selWinning).First())
	if len(winning) == 0 {
		return nil, false
	}
	machine := extractNumbers(cells.Eq(2).Find(selMachine).First())

	date, err := drawdate.Normalize(rawDate)
	if err != nil {
		return nil, false
	}

	return &model.CandidateDraw{
		DrawDate:       date,
		LottoType:      lottoType,
		WinningNumbers: winning,
		MachineNumbers: machine,
		Source:         model.SourceTheB2BLotto,
		Metadata: map[string]string{
			model.MetaScrapedAt:    p.now().UTC().Format(time.RFC3339),
			model.MetaOriginalDate: rawDate,
		},
	}, true
}

func isPaginationRow(row *goquery.Selection) bool {
	if class, ok := row.Attr("class"); ok {
		lower := strings.ToLower(class)
		if strings.Contains(lower, "pagination") || strings.Contains(lower, "pager") {
			return true
		}
	}
	return row.Find(selPagination).Length() > 0
}

// extractNumbers reads the <li> items of a list, keeping integers in [1,90]
func extractNumbers(list *goquery.Selection) []int {
	nums := []int{}
	if list.Length() == 0 {
		return nums
	}
	list.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		n, err := strconv.Atoi(strings.TrimSpace(li.Text()))
		if err != nil || !model.InRange(n) {
			return
		}
		nums = append(nums, n)
	})
	return nums
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// wrapFragment puts bare <tr> rows inside a table; the HTML parser drops them otherwise
func wrapFragment(fragment string) string {
	if strings.Contains(strings.ToLower(fragment), "<table") {
		return fragment
	}
	return "<table><tbody>" + fragment + "</tbody></table>"
}
