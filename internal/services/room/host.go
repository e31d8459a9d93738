package room

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/services/caller"
	"github.com/minhtien379/Loto/internal/transport"
)

// MinAutoDrawInterval is the shortest interval auto-draw accepts
const MinAutoDrawInterval = time.Second

// Draw draws the next number and announces it to every player
func (r *Room) Draw() (model.DrawResult, error) {
	r.lock()
	defer r.unlock()
	if r.closed {
		return model.DrawResult{}, model.ErrRoomNotFound
	}
	return r.drawLocked()
}

func (r *Room) drawLocked() (model.DrawResult, error) {
	n, err := r.game.BeginDraw()
	if err != nil {
		return model.DrawResult{}, err
	}

	snap := r.game.Snapshot()
	result := model.DrawResult{
		Number:    n,
		Words:     caller.Words(n),
		Rhyme:     caller.Rhyme(n),
		Called:    len(snap.CalledNumbers),
		Remaining: snap.Remaining,
	}

	r.broadcastLocked(model.NumberDrawnMessage(n, result.Words), "")
	r.persistLocked()
	r.emitLocked(model.EventNumberDrawn, "", model.NumberDrawnPayload{
		Number:    n,
		Words:     result.Words,
		Rhyme:     result.Rhyme,
		Called:    result.Called,
		Remaining: result.Remaining,
	})

	r.drawGen++
	if r.cfg.AnnounceDelay <= 0 {
		r.game.EndDraw()
		return result, nil
	}
	gen := r.drawGen
	r.drawTimer = r.clock.AfterFunc(r.cfg.AnnounceDelay, func() {
		r.lock()
		defer r.unlock()
		if gen != r.drawGen {
			return
		}
		r.game.EndDraw()
		r.drawTimer = nil
	})
	return result, nil
}

// Reset starts a new round, cancelling every pending timer
func (r *Room) Reset() (model.RoundID, error) {
	r.lock()
	defer r.unlock()
	if r.closed {
		return "", model.ErrRoomNotFound
	}
	r.cancelTimersLocked()
	r.stopAutoDrawLocked("reset")

	roundID := r.game.Reset()
	r.claims.Reset()
	r.waits.Reset()
	r.emotes.Reset()
	r.shouts.Reset()
	r.waiting = nil

	r.broadcastLocked(model.GameResetMessage(), "")
	r.persistLocked()
	r.emitLocked(model.EventGameReset, "", nil)
	r.logger.Info("round reset", slog.String("round_id", string(roundID)))
	return roundID, nil
}

// StartAutoDraw draws a number every interval until stopped, the pool runs
// out, a win is claimed or the round is reset
func (r *Room) StartAutoDraw(interval time.Duration) error {
	if interval < MinAutoDrawInterval {
		return fmt.Errorf("%w: auto-draw interval must be at least %s", model.ErrInvalidInput, MinAutoDrawInterval)
	}
	r.lock()
	defer r.unlock()
	if r.closed {
		return model.ErrRoomNotFound
	}
	if r.game.Remaining() == 0 {
		return model.ErrNoNumbersRemaining
	}
	r.stopAutoDrawLocked("")
	r.autoInterval = interval
	r.scheduleAutoDrawLocked()
	r.logger.Info("auto-draw started", slog.Duration("interval", interval))
	return nil
}

// StopAutoDraw stops auto-draw; it reports whether it was running
func (r *Room) StopAutoDraw() bool {
	r.lock()
	defer r.unlock()
	return r.stopAutoDrawLocked("stopped by host")
}

func (r *Room) scheduleAutoDrawLocked() {
	gen := r.autoGen
	r.autoTimer = r.clock.AfterFunc(r.autoInterval, func() {
		r.lock()
		defer r.unlock()
		if gen != r.autoGen || r.closed {
			return
		}
		r.autoDrawTickLocked()
	})
}

func (r *Room) autoDrawTickLocked() {
	if r.game.Drawing() {
		r.scheduleAutoDrawLocked()
		return
	}
	_, err := r.drawLocked()
	if errors.Is(err, model.ErrNoNumbersRemaining) || r.game.Remaining() == 0 {
		r.stopAutoDrawLocked("no numbers remaining")
		return
	}
	if err != nil {
		r.logger.Warn("auto-draw failed", slog.String("error", err.Error()))
	}
	r.scheduleAutoDrawLocked()
}

// stopAutoDrawLocked cancels auto-draw. A non-empty reason is published.
func (r *Room) stopAutoDrawLocked(reason string) bool {
	r.autoGen++
	if r.autoTimer != nil {
		r.autoTimer.Stop()
		r.autoTimer = nil
	}
	if r.autoInterval == 0 {
		return false
	}
	r.autoInterval = 0
	if reason != "" {
		r.emitLocked(model.EventAutoDrawStopped, "", model.AutoDrawStoppedPayload{Reason: reason})
		r.logger.Info("auto-draw stopped", slog.String("reason", reason))
	}
	return true
}

func (r *Room) cancelTimersLocked() {
	r.drawGen++
	if r.drawTimer != nil {
		r.drawTimer.Stop()
		r.drawTimer = nil
	}
	r.game.EndDraw()
	r.aggregator.Cancel()
}

// BroadcastToast shows a notice on every player's screen
func (r *Room) BroadcastToast(text string, style model.ToastStyle) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: toast message is empty", model.ErrInvalidInput)
	}
	switch style {
	case model.ToastInfo, model.ToastSuccess, model.ToastWarning, model.ToastError:
	case "":
		style = model.ToastInfo
	default:
		return fmt.Errorf("%w: unknown toast style %q", model.ErrInvalidInput, style)
	}
	r.lock()
	defer r.unlock()
	if r.closed {
		return model.ErrRoomNotFound
	}
	r.broadcastLocked(model.ToastMessage(text, style), "")
	r.emitLocked(model.EventToast, "", model.ToastPayload{Message: text, Style: style})
	return nil
}

// SetVoiceMode changes how numbers are announced on player devices
func (r *Room) SetVoiceMode(mode model.VoiceMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidVoiceMode, mode)
	}
	r.lock()
	defer r.unlock()
	if r.closed {
		return model.ErrRoomNotFound
	}
	r.voiceMode = mode
	r.broadcastLocked(model.VoiceModeMessage(mode), "")
	r.persistLocked()
	r.emitLocked(model.EventVoiceMode, "", model.VoiceModePayload{Mode: mode})
	return nil
}

// HostEmote sends an emote from the host to every player
func (r *Room) HostEmote(emoji string) error {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return fmt.Errorf("%w: emoji is empty", model.ErrInvalidInput)
	}
	r.lock()
	defer r.unlock()
	if r.closed {
		return model.ErrRoomNotFound
	}
	r.broadcastLocked(model.EmoteMessage(emoji, model.HostSenderID), "")
	r.emitLocked(model.EventEmote, model.HostSenderID, model.ChatterPayload{Name: "Host", Emoji: emoji})
	return nil
}

// HostShout sends a shout from the host to every player
func (r *Room) HostShout(text string) error {
	text = r.cleanShout(text)
	if text == "" {
		return fmt.Errorf("%w: shout is empty", model.ErrInvalidInput)
	}
	r.lock()
	defer r.unlock()
	if r.closed {
		return model.ErrRoomNotFound
	}
	r.broadcastLocked(model.ShoutMessage(text, model.HostSenderID), "")
	r.emitLocked(model.EventShout, model.HostSenderID, model.ChatterPayload{Name: "Host", Text: text})
	return nil
}

// Close cancels every timer and disconnects every player
func (r *Room) Close() {
	r.lock()
	defer r.unlock()
	if r.closed {
		return
	}
	r.cancelTimersLocked()
	r.stopAutoDrawLocked("")
	r.closed = true
	for id, conn := range r.conns {
		_ = conn.Close(transport.CloseGoingAway, "room closed")
		delete(r.conns, id)
		r.directory.Leave(id)
	}
	r.emitLocked(model.EventRoomClosed, "", nil)
	r.logger.Info("room closed")
}
