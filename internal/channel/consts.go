package channel

import (
	"errors"
)

var (
	ErrUnsupportedOperation = errors.New("channel operation is not supported")
	ErrChannelNotFound      = errors.New("channel not found")
	ErrChannelExists        = errors.New("channel already registered")
)

type Type string

const (
	Telegram Type = "telegram"
	HTTP     Type = "http"
)

var SupportedChannels = []Type{
	Telegram,
	HTTP,
}

type Message struct {
	ID          string
	ChannelID   string
	ChannelType Type
	UserID      string
	ChatID      string
	Content     string
	// Lang is the language the user spoke in, empty when the frontend does
	// not know it.
	Lang string
	// SessionKey groups messages that must be handled in order.
	SessionKey string
	Metadata   map[string]string
}

// LaneKey returns SessionKey, or channel:chat when it is unset.
func (m *Message) LaneKey() string {
	if m.SessionKey != "" {
		return m.SessionKey
	}
	return m.ChannelID + ":" + m.ChatID
}

type ChatAction string

const (
	ChatActionTyping      ChatAction = "typing"
	ChatActionUploadVoice ChatAction = "upload_voice"
)
