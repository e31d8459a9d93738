package room

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/services/win"
)

const maxEmojiLength = 16

// HandleMessage dispatches one message received from a player
func (r *Room) HandleMessage(id model.PeerID, msg model.Message) {
	r.lock()
	defer r.unlock()
	if r.closed {
		return
	}
	if _, ok := r.conns[id]; !ok {
		return
	}

	switch msg.Type {
	case model.MsgWinClaim:
		r.handleClaimLocked(id)
	case model.MsgTicketUpdate:
		r.handleTicketUpdateLocked(id, msg)
	case model.MsgWaitSignal:
		r.handleWaitSignalLocked(id)
	case model.MsgPing:
		r.sendLocked(id, model.PongMessage())
	case model.MsgPong:
	case model.MsgEmote:
		r.handleEmoteLocked(id, msg.Emoji)
	case model.MsgShout:
		r.handleShoutLocked(id, msg.Text)
	default:
		r.logger.Debug("ignoring message", slog.String("peer_id", string(id)), slog.String("type", string(msg.Type)))
	}
}

func (r *Room) handleClaimLocked(id model.PeerID) {
	if !r.claims.Allow(id) {
		r.sendLocked(id, model.ToastMessage("Please wait before claiming again.", model.ToastWarning))
		return
	}
	rec, err := r.directory.Get(id)
	if err != nil {
		return
	}
	r.emitLocked(model.EventClaimReceived, id, model.ClaimPayload{Name: rec.Name})

	row, ok := win.Verify(rec.Sheets, r.game.IsCalled)
	if !ok {
		r.sendLocked(id, model.WinRejectedMessage())
		r.broadcastLocked(model.ToastMessage("⚠️ "+rec.Name+" claimed a false win!", model.ToastError), "")
		r.emitLocked(model.EventClaimRejected, id, model.ClaimPayload{Name: rec.Name})
		r.logger.Info("claim rejected", slog.String("peer_id", string(id)), slog.String("name", rec.Name))
		return
	}

	r.aggregator.Add(rec.Name)
	r.stopAutoDrawLocked("win claimed")
	r.logger.Info("claim accepted",
		slog.String("peer_id", string(id)),
		slog.String("name", rec.Name),
		slog.Any("row", row.Numbers),
	)
}

// confirmWinners runs when the aggregation window closes, with the room lock held
func (r *Room) confirmWinners(names []string) {
	if r.closed {
		return
	}
	winnerName := win.JoinNames(names)
	r.broadcastLocked(model.WinConfirmedMessage(winnerName), "")
	r.emitLocked(model.EventWinConfirmed, "", model.WinConfirmedPayload{Winners: names, WinnerName: winnerName})
	r.logger.Info("win confirmed", slog.String("winners", winnerName))
}

func (r *Room) handleTicketUpdateLocked(id model.PeerID, msg model.Message) {
	sheets := msg.SheetsPayload()
	if err := r.directory.UpdateSheets(id, sheets, r.game.Started()); err != nil {
		r.logger.Debug("ticket update ignored", slog.String("peer_id", string(id)), slog.String("error", err.Error()))
		return
	}
	r.emitLocked(model.EventTicketUpdated, id, model.PlayerPayload{
		Name:       r.directory.DisplayName(id),
		SheetCount: len(sheets),
	})
}

func (r *Room) handleWaitSignalLocked(id model.PeerID) {
	if !r.waits.Allow(id) {
		return
	}
	if !r.isWaitingLocked(id) {
		r.waiting = append(r.waiting, id)
	}
	name := r.directory.DisplayName(id)
	r.broadcastLocked(model.ToastMessage("⚠️ "+name+" is waiting!", model.ToastWarning), "")
	r.emitLocked(model.EventWaitSignal, id, model.ChatterPayload{Name: name})
}

func (r *Room) handleEmoteLocked(id model.PeerID, emoji string) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || utf8.RuneCountInString(emoji) > maxEmojiLength {
		return
	}
	if !r.emotes.Allow(id) {
		return
	}
	r.broadcastLocked(model.EmoteMessage(emoji, id), id)
	r.emitLocked(model.EventEmote, id, model.ChatterPayload{Name: r.directory.DisplayName(id), Emoji: emoji})
}

func (r *Room) handleShoutLocked(id model.PeerID, text string) {
	text = r.cleanShout(text)
	if text == "" {
		return
	}
	if !r.shouts.Allow(id) {
		return
	}
	r.broadcastLocked(model.ShoutMessage(text, id), id)
	r.emitLocked(model.EventShout, id, model.ChatterPayload{Name: r.directory.DisplayName(id), Text: text})
}

// cleanShout trims text and caps it at the configured number of runes
func (r *Room) cleanShout(text string) string {
	text = strings.TrimSpace(text)
	if r.cfg.MaxShoutLength > 0 && utf8.RuneCountInString(text) > r.cfg.MaxShoutLength {
		text = string([]rune(text)[:r.cfg.MaxShoutLength])
	}
	return text
}
