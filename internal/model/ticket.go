package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Ticket geometry and number range
const (
	TicketRows       = 3
	TicketCols       = 9
	NumbersPerRow    = 5
	NumbersPerTicket = TicketRows * NumbersPerRow
	TicketsPerSheet  = 3
	MinNumber        = 1
	MaxNumber        = 90

	MinSheetsPerPlayer = 1
	MaxSheetsPerPlayer = 5
)

// ColumnRange is the inclusive range of values a ticket column may hold
type ColumnRange struct {
	Start int
	End   int
}

// Size returns the number of values in the range
func (r ColumnRange) Size() int {
	return r.End - r.Start + 1
}

// Contains reports whether n lies in the range
func (r ColumnRange) Contains(n int) bool {
	return n >= r.Start && n <= r.End
}

// ColumnRanges holds the fixed value range of every column
var ColumnRanges = [TicketCols]ColumnRange{
	{1, 9}, {10, 19}, {20, 29}, {30, 39}, {40, 49},
	{50, 59}, {60, 69}, {70, 79}, {80, 90},
}

// ColumnFor returns the column that holds n, or -1 if n is out of range
func ColumnFor(n int) int {
	for c, r := range ColumnRanges {
		if r.Contains(n) {
			return c
		}
	}
	return -1
}

// Ticket is a 3x9 grid; 0 marks an empty cell
type Ticket [TicketRows][TicketCols]int

// Row returns the non-empty values of row r, left to right
func (t Ticket) Row(r int) []int {
	values := make([]int, 0, NumbersPerRow)
	for _, v := range t[r] {
		if v != 0 {
			values = append(values, v)
		}
	}
	return values
}

// Numbers returns every non-empty value on the ticket
func (t Ticket) Numbers() []int {
	values := make([]int, 0, NumbersPerTicket)
	for r := 0; r < TicketRows; r++ {
		values = append(values, t.Row(r)...)
	}
	return values
}

// Count returns the number of non-empty cells
func (t Ticket) Count() int {
	return len(t.Numbers())
}

// IsEmpty reports whether every cell is empty (the generator fallback)
func (t Ticket) IsEmpty() bool {
	return t.Count() == 0
}

// Validate checks the structural invariants of a generated ticket.
// The all-empty fallback ticket is accepted.
func (t Ticket) Validate() error {
	if t.IsEmpty() {
		return nil
	}
	for r := 0; r < TicketRows; r++ {
		if n := len(t.Row(r)); n != NumbersPerRow {
			return fmt.Errorf("%w: row %d has %d numbers", ErrInvalidTicket, r, n)
		}
	}
	for r := 0; r < TicketRows; r++ {
		for c := 0; c < TicketCols; c++ {
			v := t[r][c]
			if v != 0 && !ColumnRanges[c].Contains(v) {
				return fmt.Errorf("%w: %d not allowed in column %d", ErrInvalidTicket, v, c)
			}
		}
	}
	return nil
}

// MarshalJSON encodes empty cells as null
func (t Ticket) MarshalJSON() ([]byte, error) {
	grid := make([][]*int, TicketRows)
	for r := 0; r < TicketRows; r++ {
		grid[r] = make([]*int, TicketCols)
		for c := 0; c < TicketCols; c++ {
			if v := t[r][c]; v != 0 {
				grid[r][c] = &v
			}
		}
	}
	return json.Marshal(grid)
}

// UnmarshalJSON decodes a 3x9 grid of numbers and nulls
func (t *Ticket) UnmarshalJSON(data []byte) error {
	var grid [][]*int
	if err := json.Unmarshal(data, &grid); err != nil {
		return err
	}
	if len(grid) != TicketRows {
		return fmt.Errorf("%w: expected %d rows, got %d", ErrInvalidTicket, TicketRows, len(grid))
	}
	var out Ticket
	for r, row := range grid {
		if len(row) != TicketCols {
			return fmt.Errorf("%w: row %d has %d cells", ErrInvalidTicket, r, len(row))
		}
		for c, v := range row {
			if v != nil {
				out[r][c] = *v
			}
		}
	}
	*t = out
	return nil
}

// Sheet is a set of tickets generated together with pairwise disjoint numbers
type Sheet [TicketsPerSheet]Ticket

// Numbers returns every number on the sheet in ascending order
func (s Sheet) Numbers() []int {
	var values []int
	for _, t := range s {
		values = append(values, t.Numbers()...)
	}
	sort.Ints(values)
	return values
}

// Validate checks every ticket and that no number repeats within the sheet
func (s Sheet) Validate() error {
	seen := make(map[int]bool, NumbersPerTicket*TicketsPerSheet)
	for i, t := range s {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("ticket %d: %w", i, err)
		}
		for _, n := range t.Numbers() {
			if seen[n] {
				return fmt.Errorf("%w: %d repeats within sheet", ErrInvalidTicket, n)
			}
			seen[n] = true
		}
	}
	return nil
}

// ValidateSheets checks a player's full set of sheets
func ValidateSheets(sheets []Sheet) error {
	if len(sheets) < MinSheetsPerPlayer || len(sheets) > MaxSheetsPerPlayer {
		return fmt.Errorf("%w: %d sheets", ErrInvalidSheets, len(sheets))
	}
	for i, s := range sheets {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("%w: sheet %d: %w", ErrInvalidSheets, i, err)
		}
	}
	return nil
}

// CloneSheets returns a copy that shares no memory with the input
func CloneSheets(sheets []Sheet) []Sheet {
	if sheets == nil {
		return nil
	}
	out := make([]Sheet, len(sheets))
	copy(out, sheets)
	return out
}

// DecodeSheets decodes either a list of sheets or a single bare sheet.
// Older clients sent one sheet (depth 3) where current ones send a list (depth 4);
// the nesting depth of the payload tells the two apart.
func DecodeSheets(raw json.RawMessage) ([]Sheet, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}
	// An empty list carries no sheets; validation decides whether that is allowed
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err == nil && len(items) == 0 {
		return nil, nil
	}
	switch depth := arrayDepth(raw); depth {
	case 4:
		var sheets []Sheet
		if err := json.Unmarshal(raw, &sheets); err != nil {
			return nil, err
		}
		return sheets, nil
	case 3:
		var sheet Sheet
		if err := json.Unmarshal(raw, &sheet); err != nil {
			return nil, err
		}
		return []Sheet{sheet}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected nesting depth %d", ErrInvalidSheets, depth)
	}
}

// arrayDepth follows the first element of nested arrays and counts the levels
func arrayDepth(raw json.RawMessage) int {
	depth := 0
	for {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || trimmed[0] != '[' {
			return depth
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return depth
		}
		depth++
		if len(items) == 0 {
			return depth
		}
		raw = items[0]
	}
}
