package channel

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/tgifai/newscast/internal/skill"
)

// MessageHandler receives every normalized inbound message.
type MessageHandler func(ctx context.Context, msg *Message) error

// Channel is a frontend that acts as a host for the news skill: it receives
// utterances and delivers spoken replies and playbacks back to one chat.
type Channel interface {
	// ID returns the configured channel identifier.
	ID() string

	Type() Type

	// Start runs the receive loop and blocks until ctx is canceled or a fatal
	// error occurs.
	Start(ctx context.Context) error

	Stop(ctx context.Context) error

	// SendMessage delivers spoken text to chatID.
	SendMessage(ctx context.Context, chatID string, content string) error

	// SendPlayback asks the frontend to play p in chatID.
	SendPlayback(ctx context.Context, chatID string, p skill.Playback) error

	// SendChatAction shows a transient activity such as typing.
	// Implementations without one return ErrUnsupportedOperation.
	SendChatAction(ctx context.Context, chatID string, action ChatAction) error

	RegisterMessageHandler(handler MessageHandler) error
}

// Route is an HTTP endpoint a channel mounts on the gateway server.
type Route struct {
	Method  string
	Path    string
	Handler app.HandlerFunc
}

// RouteProvider is implemented by channels that serve HTTP.
type RouteProvider interface {
	Routes() []Route
}
