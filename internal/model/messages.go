package model

import (
	"encoding/json"
	"fmt"
)

// MessageType identifies a wire message
type MessageType string

const (
	MsgHello        MessageType = "hello"
	MsgWelcome      MessageType = "welcome"
	MsgNumberDrawn  MessageType = "numberDrawn"
	MsgWinClaim     MessageType = "winClaim"
	MsgWinConfirmed MessageType = "winConfirmed"
	MsgWinRejected  MessageType = "winRejected"
	MsgTicketUpdate MessageType = "ticketUpdate"
	MsgWaitSignal   MessageType = "waitSignal"
	MsgToast        MessageType = "toast"
	MsgGameReset    MessageType = "gameReset"
	MsgPing         MessageType = "ping"
	MsgPong         MessageType = "pong"
	MsgEmote        MessageType = "emote"
	MsgShout        MessageType = "shout"
	MsgVoiceMode    MessageType = "voiceMode"
)

// ToastStyle is the visual severity of a toast
type ToastStyle string

const (
	ToastInfo    ToastStyle = "info"
	ToastSuccess ToastStyle = "success"
	ToastWarning ToastStyle = "warning"
	ToastError   ToastStyle = "error"
)

// SheetList decodes both the current list-of-sheets shape and the legacy single-sheet shape
type SheetList []Sheet

// UnmarshalJSON accepts a list of sheets or one bare sheet
func (l *SheetList) UnmarshalJSON(data []byte) error {
	sheets, err := DecodeSheets(data)
	if err != nil {
		return err
	}
	*l = sheets
	return nil
}

// WelcomeState is the game state snapshot carried by welcome
type WelcomeState struct {
	CalledNumbers []int `json:"calledNumbers"`
	GameStarted   bool  `json:"gameStarted"`
}

// Message is the single flat wire format exchanged over a connection.
// Which fields are set depends on Type.
type Message struct {
	Type MessageType `json:"type"`

	Number int    `json:"number,omitempty"`
	Text   string `json:"text,omitempty"`

	Name          string        `json:"name,omitempty"`
	Sheets        SheetList     `json:"sheets,omitempty"`
	LegacyTicket  SheetList     `json:"ticket,omitempty"`
	LastSessionID PeerID        `json:"lastSessionId,omitempty"`
	GameState     *WelcomeState `json:"gameState,omitempty"`
	VoiceMode     VoiceMode     `json:"voiceMode,omitempty"`

	WinnerName string `json:"winnerName,omitempty"`

	PlayerID PeerID     `json:"playerId,omitempty"`
	Message  string     `json:"message,omitempty"`
	Style    ToastStyle `json:"style,omitempty"`

	Emoji    string    `json:"emoji,omitempty"`
	SenderID PeerID    `json:"senderId,omitempty"`
	Mode     VoiceMode `json:"mode,omitempty"`
}

// SheetsPayload returns the sheets carried by hello or ticketUpdate,
// falling back to the legacy "ticket" field
func (m Message) SheetsPayload() []Sheet {
	if len(m.Sheets) > 0 {
		return m.Sheets
	}
	return m.LegacyTicket
}

// DecodeMessage parses one wire frame
func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	return msg, nil
}

// Constructors for each message the host or player sends

func HelloMessage(meta JoinMetadata) Message {
	return Message{Type: MsgHello, Name: meta.Name, Sheets: meta.Sheets, LastSessionID: meta.LastSessionID}
}

func WelcomeMessage(id PeerID, result JoinResult, snapshot GameSnapshot, mode VoiceMode) Message {
	called := snapshot.CalledNumbers
	if called == nil {
		called = []int{}
	}
	return Message{
		Type:      MsgWelcome,
		PlayerID:  id,
		Name:      result.Name,
		Sheets:    result.Sheets,
		GameState: &WelcomeState{CalledNumbers: called, GameStarted: snapshot.Started()},
		VoiceMode: mode,
	}
}

func NumberDrawnMessage(number int, text string) Message {
	return Message{Type: MsgNumberDrawn, Number: number, Text: text}
}

func WinClaimMessage() Message {
	return Message{Type: MsgWinClaim}
}

func WinConfirmedMessage(winnerName string) Message {
	return Message{Type: MsgWinConfirmed, WinnerName: winnerName}
}

func WinRejectedMessage() Message {
	return Message{Type: MsgWinRejected}
}

func TicketUpdateMessage(sheets []Sheet) Message {
	return Message{Type: MsgTicketUpdate, Sheets: sheets}
}

func WaitSignalMessage(id PeerID) Message {
	return Message{Type: MsgWaitSignal, PlayerID: id}
}

func ToastMessage(text string, style ToastStyle) Message {
	return Message{Type: MsgToast, Message: text, Style: style}
}

func GameResetMessage() Message {
	return Message{Type: MsgGameReset}
}

func PingMessage() Message {
	return Message{Type: MsgPing}
}

func PongMessage() Message {
	return Message{Type: MsgPong}
}

func EmoteMessage(emoji string, sender PeerID) Message {
	return Message{Type: MsgEmote, Emoji: emoji, SenderID: sender}
}

func ShoutMessage(text string, sender PeerID) Message {
	return Message{Type: MsgShout, Text: text, SenderID: sender}
}

func VoiceModeMessage(mode VoiceMode) Message {
	return Message{Type: MsgVoiceMode, Mode: mode}
}
