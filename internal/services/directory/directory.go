package directory

import (
	"fmt"
	"strings"

	"github.com/minhtien379/Loto/internal/dependencies/clock"
	"github.com/minhtien379/Loto/internal/model"
)

// SheetSource produces a fresh sheet for players who join without one
type SheetSource interface {
	GenerateSheet() model.Sheet
}

// Directory maps connection identities to players. It is not safe for
// concurrent use; the owning room serializes access.
type Directory struct {
	players map[model.PeerID]*model.PlayerRecord
	order   []model.PeerID
	sheets  SheetSource
	clock   clock.Clock
}

// New creates an empty Directory
func New(sheets SheetSource, clock clock.Clock) *Directory {
	return &Directory{
		players: make(map[model.PeerID]*model.PlayerRecord),
		sheets:  sheets,
		clock:   clock,
	}
}

// Join resolves a connecting identity against the directory.
// A known identity is refreshed, a known lastSessionId is migrated to the new
// identity, and anything else becomes a new player.
func (d *Directory) Join(id model.PeerID, meta model.JoinMetadata, started bool) model.JoinResult {
	name := strings.TrimSpace(meta.Name)

	if existing, ok := d.players[id]; ok {
		wasConnected := existing.Connected
		existing.Connected = true
		if name != "" {
			existing.Name = name
		}
		if !started || len(existing.Sheets) == 0 {
			existing.Sheets = d.sheetsOrGenerate(meta.Sheets)
		}
		return model.JoinResult{
			Name:         existing.Name,
			Sheets:       model.CloneSheets(existing.Sheets),
			IsReconnect:  true,
			WasConnected: wasConnected,
		}
	}

	if meta.LastSessionID != "" && meta.LastSessionID != id {
		if old, ok := d.players[meta.LastSessionID]; ok {
			migrated := &model.PlayerRecord{
				ID:        id,
				Name:      old.Name,
				Sheets:    old.Sheets,
				Connected: true,
				JoinedAt:  old.JoinedAt,
			}
			delete(d.players, meta.LastSessionID)
			d.players[id] = migrated
			for i, pid := range d.order {
				if pid == meta.LastSessionID {
					d.order[i] = id
					break
				}
			}
			return model.JoinResult{
				Name:        migrated.Name,
				Sheets:      model.CloneSheets(migrated.Sheets),
				IsReconnect: true,
			}
		}
	}

	if name == "" {
		name = model.FallbackPlayerName(id)
	}
	record := &model.PlayerRecord{
		ID:        id,
		Name:      d.uniqueName(id, name),
		Sheets:    d.sheetsOrGenerate(meta.Sheets),
		Connected: true,
		JoinedAt:  d.clock.Now(),
	}
	d.players[id] = record
	d.order = append(d.order, id)

	return model.JoinResult{
		Name:   record.Name,
		Sheets: model.CloneSheets(record.Sheets),
	}
}

// Leave marks the player as disconnected. The record is kept so the player can return.
func (d *Directory) Leave(id model.PeerID) bool {
	p, ok := d.players[id]
	if !ok {
		return false
	}
	p.Connected = false
	return true
}

// UpdateSheets replaces a player's sheets before the round starts
func (d *Directory) UpdateSheets(id model.PeerID, sheets []model.Sheet, started bool) error {
	if started {
		return model.ErrGameInProgress
	}
	p, ok := d.players[id]
	if !ok {
		return model.ErrPlayerNotFound
	}
	if err := model.ValidateSheets(sheets); err != nil {
		return err
	}
	p.Sheets = model.CloneSheets(sheets)
	return nil
}

// Get returns a copy of the player's record
func (d *Directory) Get(id model.PeerID) (model.PlayerRecord, error) {
	p, ok := d.players[id]
	if !ok {
		return model.PlayerRecord{}, fmt.Errorf("%w: %s", model.ErrPlayerNotFound, id)
	}
	out := *p
	out.Sheets = model.CloneSheets(p.Sheets)
	return out, nil
}

// DisplayName returns the player's name, or a fallback for unknown identities
func (d *Directory) DisplayName(id model.PeerID) string {
	if p, ok := d.players[id]; ok {
		return p.Name
	}
	return model.FallbackPlayerName(id)
}

// Players returns copies of every record in join order
func (d *Directory) Players() []model.PlayerRecord {
	out := make([]model.PlayerRecord, 0, len(d.order))
	for _, id := range d.order {
		p := *d.players[id]
		p.Sheets = model.CloneSheets(p.Sheets)
		out = append(out, p)
	}
	return out
}

// Len returns the number of known players, connected or not
func (d *Directory) Len() int {
	return len(d.players)
}

// ConnectedCount returns the number of players with an open connection
func (d *Directory) ConnectedCount() int {
	n := 0
	for _, p := range d.players {
		if p.Connected {
			n++
		}
	}
	return n
}

func (d *Directory) sheetsOrGenerate(sheets []model.Sheet) []model.Sheet {
	if len(sheets) > 0 && model.ValidateSheets(sheets) == nil {
		return model.CloneSheets(sheets)
	}
	return []model.Sheet{d.sheets.GenerateSheet()}
}

// uniqueName appends " (2)", " (3)", ... until no other player has the name
func (d *Directory) uniqueName(id model.PeerID, base string) string {
	candidate := base
	for n := 2; d.nameTaken(id, candidate); n++ {
		candidate = fmt.Sprintf("%s (%d)", base, n)
	}
	return candidate
}

func (d *Directory) nameTaken(id model.PeerID, name string) bool {
	for pid, p := range d.players {
		if pid != id && p.Name == name {
			return true
		}
	}
	return false
}
