package qatracker

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	qaHeaderFill    = "4A90E2"
	blastHeaderFill = "50C878"
	termsHeaderFill = "6B4C9A"

	dateFormat        = "DD-MMM-YYYY"
	temperatureFormat = `0"°C"`

	thinBorder   = 1
	mediumBorder = 2
)

func border(color string, style int) []excelize.Border {
	sides := []string{"left", "right", "top", "bottom"}
	borders := make([]excelize.Border, 0, len(sides))
	for _, side := range sides {
		borders = append(borders, excelize.Border{Type: side, Color: color, Style: style})
	}
	return borders
}

func fill(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
}

func headerStyle(color string, size float64, borderStyle int) *excelize.Style {
	return &excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: size},
		Fill:      fill(color),
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    border("000000", borderStyle),
	}
}

func dataStyle(background, horizontal string, numFmt string) *excelize.Style {
	s := &excelize.Style{
		Fill:      fill(background),
		Alignment: &excelize.Alignment{Horizontal: horizontal, Vertical: "center"},
		Border:    border("D3D3D3", thinBorder),
	}
	if numFmt != "" {
		s.CustomNumFmt = &numFmt
	}
	return s
}

// rowStyles are the style ids of one data row variant.
type rowStyles struct {
	left        int
	center      int
	date        int
	temperature int
}

// styles holds registered style ids. Data rows alternate between two
// backgrounds, indexed by row parity.
type styles struct {
	qaHeader    int
	blastHeader int
	termsHeader int
	section     int
	definition  int
	qaRows      [2]rowStyles
	blastRows   [2]rowStyles
}

func (s *styles) qaRow(row int) rowStyles {
	return s.qaRows[row%2]
}

func (s *styles) blastRow(row int) rowStyles {
	return s.blastRows[row%2]
}

func newStyles(f *excelize.File) (*styles, error) {
	s := &styles{}
	var err error
	register := func(dst *int, style *excelize.Style) {
		if err != nil {
			return
		}
		*dst, err = f.NewStyle(style)
	}
	register(&s.qaHeader, headerStyle(qaHeaderFill, 11, thinBorder))
	register(&s.blastHeader, headerStyle(blastHeaderFill, 11, thinBorder))
	register(&s.termsHeader, headerStyle(termsHeaderFill, 12, mediumBorder))
	register(&s.section, &excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Fill:      fill(qaHeaderFill),
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	register(&s.definition, &excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "top", WrapText: true},
		Border:    border("000000", thinBorder),
	})

	// even rows are tinted, odd rows are white
	for parity, bg := range [2][2]string{{"F0F8FF", "F0FFF0"}, {"FFFFFF", "FFFFFF"}} {
		qa, blast := &s.qaRows[parity], &s.blastRows[parity]
		register(&qa.left, dataStyle(bg[0], "left", ""))
		register(&qa.center, dataStyle(bg[0], "center", ""))
		register(&qa.date, dataStyle(bg[0], "left", dateFormat))
		register(&blast.center, dataStyle(bg[1], "center", ""))
		register(&blast.date, dataStyle(bg[1], "center", dateFormat))
		register(&blast.temperature, dataStyle(bg[1], "center", temperatureFormat))
	}
	if err != nil {
		return nil, fmt.Errorf("register styles: %w", err)
	}
	return s, nil
}
