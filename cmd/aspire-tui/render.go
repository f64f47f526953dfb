package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"

	"github.com/dd0wney/aspire-acoustics/pkg/simulation"
)

const barWidth = 30

// bar draws rt60 on a scale of max seconds.
func bar(rt60, max float64, width int) string {
	if max <= 0 || width <= 0 {
		return ""
	}
	n := int(rt60/max*float64(width) + 0.5)
	if n < 0 {
		n = 0
	}
	if n > width {
		n = width
	}
	return strings.Repeat("█", n) + strings.Repeat("░", width-n)
}

func bandLabel(hz int) string {
	if hz >= 1000 && hz%1000 == 0 {
		return fmt.Sprintf("%d kHz", hz/1000)
	}
	return fmt.Sprintf("%d Hz", hz)
}

func bandRows(rep simulation.Report) []table.Row {
	max := rep.MaxRT60()
	rows := make([]table.Row, len(rep.Bands))
	for i, b := range rep.Bands {
		style := statusStyles[b.Status]
		rows[i] = table.Row{
			bandLabel(b.Frequency),
			fmt.Sprintf("%.2f s", b.RT60),
			string(b.Status),
			style.Render(bar(b.RT60, max, barWidth)),
		}
	}
	return rows
}

func asRequestError(err error, target **simulation.RequestError) bool {
	return errors.As(err, target)
}
