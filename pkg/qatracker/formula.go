package qatracker

import (
	"fmt"
	"time"
)

// Span is the elapsed time End minus Start between two time cells of a row.
type Span struct {
	End   string
	Start string
}

func (s Span) diff(row int) string {
	return fmt.Sprintf("(%s%d-%s%d)", s.End, row, s.Start, row)
}

func (s Span) guard(row int) string {
	return fmt.Sprintf(`AND(%s%d<>"",%s%d<>"")`, s.End, row, s.Start, row)
}

// Duration renders the span as text like "1hr 23min", or "" while either cell is empty.
type Duration struct {
	Column string
	Span
}

func (d Duration) Formula(row int) string {
	diff := d.diff(row)
	return fmt.Sprintf(`IF(%s,TEXT(INT(%s*24),"0") & "hr " & TEXT(MOD(%s*24*60,60),"0") & "min","")`,
		d.guard(row), diff, diff)
}

// Threshold labels spans up to and including Max.
type Threshold struct {
	Max   time.Duration
	Label string
}

// Status grades the span against ascending thresholds; spans above the
// last threshold get Otherwise.
type Status struct {
	Column     string
	Span       Span
	Thresholds []Threshold
	Otherwise  string
}

func (s Status) Formula(row int) string {
	diff := s.Span.diff(row)
	expr := fmt.Sprintf(`"%s"`, s.Otherwise)
	for i := len(s.Thresholds) - 1; i >= 0; i-- {
		t := s.Thresholds[i]
		expr = fmt.Sprintf(`IF(%s<=%s,"%s",%s)`, diff, timeLiteral(t.Max), t.Label, expr)
	}
	return fmt.Sprintf(`IF(%s,%s,"")`, s.Span.guard(row), expr)
}

func timeLiteral(d time.Duration) string {
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	sec := int(d%time.Minute) / int(time.Second)
	return fmt.Sprintf("TIME(%d,%d,%d)", h, m, sec)
}

// Temperature is "Good" when Actual lies within [Min, Max] and "Bad" otherwise.
type Temperature struct {
	Column string
	Actual string
	Target string
	Min    int
	Max    int
}

func (t Temperature) Formula(row int) string {
	guard := Span{End: t.Actual, Start: t.Target}.guard(row)
	return fmt.Sprintf(`IF(%s,IF(AND(%s%d>=%d,%s%d<=%d),"Good","Bad"),"")`,
		guard, t.Actual, row, t.Min, t.Actual, row, t.Max)
}

var QATrackerDurations = []Duration{
	{Column: "H", Span: Span{End: "G", Start: "F"}},
	{Column: "L", Span: Span{End: "K", Start: "J"}},
	{Column: "P", Span: Span{End: "O", Start: "N"}},
	{Column: "T", Span: Span{End: "S", Start: "O"}},
	{Column: "W", Span: Span{End: "V", Start: "S"}},
	{Column: "AB", Span: Span{End: "AA", Start: "Z"}},
	{Column: "AE", Span: Span{End: "AD", Start: "F"}},
}

var quickTaskThresholds = []Threshold{
	{Max: 5 * time.Minute, Label: "Good"},
	{Max: 10 * time.Minute, Label: "Manageable"},
	{Max: 15 * time.Minute, Label: "Bad"},
}

var QATrackerStatuses = []Status{
	{
		Column: "I",
		Span:   Span{End: "G", Start: "F"},
		Thresholds: []Threshold{
			{Max: 2 * time.Hour, Label: "Good"},
			{Max: 3 * time.Hour, Label: "Manageable"},
			{Max: 4 * time.Hour, Label: "Bad"},
		},
		Otherwise: "Dangerous",
	},
	{Column: "M", Span: Span{End: "K", Start: "J"}, Thresholds: quickTaskThresholds, Otherwise: "Dangerous"},
	{Column: "Q", Span: Span{End: "O", Start: "N"}, Thresholds: quickTaskThresholds, Otherwise: "Dangerous"},
	{
		Column: "AC",
		Span:   Span{End: "AA", Start: "Z"},
		Thresholds: []Threshold{
			{Max: 30 * time.Minute, Label: "Good"},
			{Max: 45 * time.Minute, Label: "Manageable"},
		},
		Otherwise: "Bad",
	},
}

var BlastFreezingDurations = []Duration{
	{Column: "E", Span: Span{End: "D", Start: "C"}},
}

var BlastFreezingTemperature = Temperature{Column: "I", Actual: "H", Target: "G", Min: -22, Max: -18}

// DefaultTargetTemperature fills the target temperature column of every data row.
const DefaultTargetTemperature = -20

func statusColumns() []string {
	cols := make([]string, 0, len(QATrackerStatuses))
	for _, s := range QATrackerStatuses {
		cols = append(cols, s.Column)
	}
	return cols
}
