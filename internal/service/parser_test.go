package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jjenkins/lottosync/internal/drawdate"
	"github.com/jjenkins/lottosync/internal/model"
	"github.com/stretchr/testify/require"
)

func numberList(class string, nums ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<ul class="%s">`, class)
	for _, n := range nums {
		fmt.Fprintf(&b, "<li>%s</li>", n)
	}
	b.WriteString("</ul>")
	return b.String()
}

func drawRow(lottoType, date, numbers string) string {
	return fmt.Sprintf(`<tr>
		<td><img src="logo.png"><span class="name">%s</span></td>
		<td><span class="date">%s</span></td>
		<td>%s</td>
	</tr>`, lottoType, date, numbers)
}

const paginationRow = `<tr class="pagination-row"><td colspan="3">
	<ul class="pagination"><li><a class="page-link" href="?pn=1">1</a></li><li><a href="?pn=2">2</a></li></ul>
</td></tr>`

func fixedParser() *Parser {
	p := NewParser()
	p.now = func() time.Time { return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestParseRow(t *testing.T) {
	p := fixedParser()

	row := drawRow("Monday Special", "5-Jan-2024",
		numberList("lottery-number-list", "12", "34", "5", "67", "89")+
			numberList("machine-numbers", "1", "2", "3", "4", "90"))

	draw, ok := p.ParseRowHTML(row)
	require.True(t, ok)
	require.Equal(t, "Monday Special", draw.LottoType)
	require.Equal(t, drawdate.MustNormalize("2024-01-05"), draw.DrawDate)
	require.Equal(t, []int{12, 34, 5, 67, 89}, draw.WinningNumbers)
	require.Equal(t, []int{1, 2, 3, 4, 90}, draw.MachineNumbers)
	require.Equal(t, model.SourceTheB2BLotto, draw.Source)
	require.Equal(t, "5-Jan-2024", draw.Metadata[model.MetaOriginalDate])
	require.Equal(t, "2024-02-01T12:00:00Z", draw.Metadata[model.MetaScrapedAt])
}

func TestParseRowMachineListFirst(t *testing.T) {
	p := fixedParser()

	// Lists are told apart by class, not by order.
	row := drawRow("Lucky Tuesday", "05-January-2024",
		numberList("lottery-number-list machine-numbers", "7", "8", "9", "10", "11")+
			numberList("lottery-number-list", "21", "22", "23", "24", "25"))

	draw, ok := p.ParseRowHTML(row)
	require.True(t, ok)
	require.Equal(t, []int{21, 22, 23, 24, 25}, draw.WinningNumbers)
	require.Equal(t, []int{7, 8, 9, 10, 11}, draw.MachineNumbers)
}

func TestParseRowWithoutMachineNumbers(t *testing.T) {
	p := fixedParser()

	draw, ok := p.ParseRowHTML(drawRow("Fortune Thursday", "Jan 4, 2024",
		numberList("lottery-number-list", "1", "2", "3", "4", "5")))
	require.True(t, ok)
	require.Empty(t, draw.MachineNumbers)
	require.NotNil(t, draw.MachineNumbers)
}

func TestParseRowFiltersRange(t *testing.T) {
	p := fixedParser()

	draw, ok := p.ParseRowHTML(drawRow("Monday Special", "5-Jan-2024",
		numberList("lottery-number-list", "0", "12", "91", "x", "90", "-3")+
			numberList("machine-numbers", "100", "45")))
	require.True(t, ok)
	require.Equal(t, []int{12, 90}, draw.WinningNumbers)
	require.Equal(t, []int{45}, draw.MachineNumbers)

	for _, n := range append(draw.WinningNumbers, draw.MachineNumbers...) {
		require.True(t, model.InRange(n))
	}
}

func TestParseRowRejects(t *testing.T) {
	p := fixedParser()
	winning := numberList("lottery-number-list", "1", "2", "3", "4", "5")

	testCases := []struct {
		name string
		row  string
	}{
		{name: "pagination", row: paginationRow},
		{name: "too few cells", row: `<tr><td><span class="name">A</span></td><td><span class="date">5-Jan-2024</span></td></tr>`},
		{name: "missing name", row: drawRow("", "5-Jan-2024", winning)},
		{name: "missing date", row: drawRow("Monday Special", "", winning)},
		{name: "bad date", row: drawRow("Monday Special", "sometime", winning)},
		{name: "no winning list", row: drawRow("Monday Special", "5-Jan-2024", numberList("machine-numbers", "1", "2"))},
		{name: "winning all out of range", row: drawRow("Monday Special", "5-Jan-2024", numberList("lottery-number-list", "0", "91", "abc"))},
		{name: "script content", row: drawRow("Monday Special", "5-Jan-2024", winning+"<script>alert(1)</script>")},
		{name: "page link inside row", row: drawRow("Monday Special", "5-Jan-2024", winning+`<a href="?pn=3">next</a>`)},
		{name: "not a row", row: `<div>hello</div>`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			draw, ok := p.ParseRowHTML(tc.row)
			require.False(t, ok)
			require.Nil(t, draw)
		})
	}
}

func TestParsePage(t *testing.T) {
	p := fixedParser()
	winning := numberList("lottery-number-list", "1", "2", "3", "4", "5")

	page := drawRow("Monday Special", "5-Jan-2024", winning) +
		drawRow("Lucky Tuesday", "not a date", winning) +
		paginationRow +
		drawRow("Midweek", "3-Jan-2024", winning)

	draws, stats := p.ParsePage(page)
	require.Len(t, draws, 2)
	require.Equal(t, PageStats{Rows: 4, Accepted: 2, Rejected: 2}, stats)
	require.Equal(t, "Monday Special", draws[0].LottoType)
	require.Equal(t, "Midweek", draws[1].LottoType)
}

func TestParsePageEmpty(t *testing.T) {
	draws, stats := fixedParser().ParsePage("")
	require.Empty(t, draws)
	require.Equal(t, 0, stats.Rows)
}
