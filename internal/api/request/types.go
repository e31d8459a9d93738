package request

// RestoreRoomRequest is the request body for restoring a room
type RestoreRoomRequest struct {
	HostToken string `json:"host_token"`
}

// AutoDrawRequest is the request body for starting auto-draw
type AutoDrawRequest struct {
	IntervalMs int64 `json:"interval_ms"`
}

// ToastRequest is the request body for broadcasting a toast
type ToastRequest struct {
	Message string `json:"message"`
	Style   string `json:"style,omitempty"`
}

// VoiceModeRequest is the request body for changing the voice mode
type VoiceModeRequest struct {
	Mode string `json:"mode"`
}

// EmoteRequest is the request body for a host emote
type EmoteRequest struct {
	Emoji string `json:"emoji"`
}

// ShoutRequest is the request body for a host shout
type ShoutRequest struct {
	Text string `json:"text"`
}
