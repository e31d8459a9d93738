package win

import (
	"strings"

	"github.com/minhtien379/Loto/internal/model"
)

// Verify looks for a row whose numbers have all been called.
// Rows without numbers never win.
func Verify(sheets []model.Sheet, isCalled func(int) bool) (model.WinningRow, bool) {
	for si, sheet := range sheets {
		for ti, ticket := range sheet {
			for r := 0; r < model.TicketRows; r++ {
				row := ticket.Row(r)
				if len(row) == 0 {
					continue
				}
				if allCalled(row, isCalled) {
					return model.WinningRow{Sheet: si, Ticket: ti, Row: r, Numbers: row}, true
				}
			}
		}
	}
	return model.WinningRow{}, false
}

func allCalled(values []int, isCalled func(int) bool) bool {
	for _, v := range values {
		if !isCalled(v) {
			return false
		}
	}
	return true
}

// JoinNames renders winners as "A", "A and B" or "A, B and C"
func JoinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	last := len(names) - 1
	return strings.Join(names[:last], ", ") + " and " + names[last]
}
