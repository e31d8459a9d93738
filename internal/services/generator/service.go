package generator

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/minhtien379/Loto/internal/dependencies/random"
	"github.com/minhtien379/Loto/internal/model"
)

const (
	// MaxTicketAttempts is how many layouts are tried per ticket before falling back to an empty ticket
	MaxTicketAttempts = 50

	maxPerColumn = model.TicketRows
	extraCells   = model.NumbersPerTicket - model.TicketCols
)

// Layout marks which cells of a ticket hold a number
type Layout [model.TicketRows][model.TicketCols]bool

// rowOptions lists, per column count, the row patterns that place that many cells
var rowOptions = [maxPerColumn + 1][][model.TicketRows]bool{
	0: {{false, false, false}},
	1: {{true, false, false}, {false, true, false}, {false, false, true}},
	2: {{true, true, false}, {true, false, true}, {false, true, true}},
	3: {{true, true, true}},
}

// Service generates tickets and sheets
type Service struct {
	random random.Random
	logger *slog.Logger
}

// New creates a new generator Service
func New(random random.Random, logger *slog.Logger) *Service {
	return &Service{
		random: random,
		logger: logger,
	}
}

// GenerateSheet builds three tickets whose numbers never repeat within the sheet.
// It never fails: a ticket that cannot be laid out is replaced by an empty one.
func (s *Service) GenerateSheet() model.Sheet {
	return s.sheetFromPools(s.newPools())
}

// GenerateSheets builds n independent sheets
func (s *Service) GenerateSheets(n int) ([]model.Sheet, error) {
	if n < model.MinSheetsPerPlayer || n > model.MaxSheetsPerPlayer {
		return nil, fmt.Errorf("%w: %d", model.ErrSheetLimit, n)
	}
	sheets := make([]model.Sheet, n)
	for i := range sheets {
		sheets[i] = s.GenerateSheet()
	}
	return sheets, nil
}

// newPools returns a shuffled pool of candidate values per column
func (s *Service) newPools() [model.TicketCols][]int {
	var pools [model.TicketCols][]int
	for c, r := range model.ColumnRanges {
		pool := make([]int, 0, r.Size())
		for n := r.Start; n <= r.End; n++ {
			pool = append(pool, n)
		}
		random.Shuffle(s.random, len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		pools[c] = pool
	}
	return pools
}

func (s *Service) sheetFromPools(pools [model.TicketCols][]int) model.Sheet {
	var sheet model.Sheet
	for t := range sheet {
		ticket, ok := s.ticketWithRetry(&pools)
		if !ok {
			s.logger.Warn("ticket generation fell back to an empty ticket",
				slog.Int("ticket", t),
				slog.Int("attempts", MaxTicketAttempts),
			)
		}
		sheet[t] = ticket
	}
	return sheet
}

func (s *Service) ticketWithRetry(pools *[model.TicketCols][]int) (model.Ticket, bool) {
	for attempt := 0; attempt < MaxTicketAttempts; attempt++ {
		if ticket, ok := s.generateTicket(pools); ok {
			return ticket, true
		}
	}
	return model.Ticket{}, false
}

// generateTicket consumes numbers from pools only when a layout is found
func (s *Service) generateTicket(pools *[model.TicketCols][]int) (model.Ticket, bool) {
	counts, ok := s.columnCounts(pools)
	if !ok {
		return model.Ticket{}, false
	}
	layout, ok := SolveLayout(counts, s.random)
	if !ok {
		return model.Ticket{}, false
	}

	var ticket model.Ticket
	for c := 0; c < model.TicketCols; c++ {
		picks := append([]int(nil), pools[c][:counts[c]]...)
		pools[c] = pools[c][counts[c]:]
		sort.Ints(picks)

		next := 0
		for r := 0; r < model.TicketRows; r++ {
			if layout[r][c] {
				ticket[r][c] = picks[next]
				next++
			}
		}
	}
	return ticket, true
}

// columnCounts gives every column one cell, then spreads the remaining cells
// over columns that are below three and still have values left in their pool
func (s *Service) columnCounts(pools *[model.TicketCols][]int) ([model.TicketCols]int, bool) {
	var counts [model.TicketCols]int
	for c := range counts {
		if len(pools[c]) == 0 {
			return counts, false
		}
		counts[c] = 1
	}

	eligible := make([]int, 0, model.TicketCols)
	for extra := extraCells; extra > 0; extra-- {
		eligible = eligible[:0]
		for c := range counts {
			if counts[c] < maxPerColumn && counts[c] < len(pools[c]) {
				eligible = append(eligible, c)
			}
		}
		if len(eligible) == 0 {
			return counts, false
		}
		counts[eligible[s.random.Intn(len(eligible))]]++
	}
	return counts, true
}

// SolveLayout assigns each column's cells to rows so that every row ends up
// with exactly five cells. Options are tried in random order.
func SolveLayout(counts [model.TicketCols]int, rnd random.Random) (Layout, bool) {
	var layout Layout
	var rows [model.TicketRows]int
	for _, n := range counts {
		if n < 0 || n > maxPerColumn {
			return Layout{}, false
		}
	}
	if fillColumn(0, counts, &rows, &layout, rnd) {
		return layout, true
	}
	return Layout{}, false
}

func fillColumn(col int, counts [model.TicketCols]int, rows *[model.TicketRows]int, layout *Layout, rnd random.Random) bool {
	if col == model.TicketCols {
		for _, total := range rows {
			if total != model.NumbersPerRow {
				return false
			}
		}
		return true
	}

	options := append([][model.TicketRows]bool(nil), rowOptions[counts[col]]...)
	random.Shuffle(rnd, len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	for _, opt := range options {
		if !fits(rows, opt) {
			continue
		}
		apply(rows, layout, col, opt, 1)
		if fillColumn(col+1, counts, rows, layout, rnd) {
			return true
		}
		apply(rows, layout, col, opt, -1)
	}
	return false
}

func fits(rows *[model.TicketRows]int, opt [model.TicketRows]bool) bool {
	for r, used := range opt {
		if used && rows[r]+1 > model.NumbersPerRow {
			return false
		}
	}
	return true
}

func apply(rows *[model.TicketRows]int, layout *Layout, col int, opt [model.TicketRows]bool, delta int) {
	for r, used := range opt {
		if !used {
			continue
		}
		rows[r] += delta
		layout[r][col] = delta > 0
	}
}
