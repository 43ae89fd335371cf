package gateway

import (
	"context"
	"time"

	"github.com/tgifai/newscast/internal/channel"
	"github.com/tgifai/newscast/internal/skill"
)

var _ skill.Host = (*channelHost)(nil)

// channelHost lets the skill talk to one chat of one channel.
type channelHost struct {
	ch       channel.Channel
	chatID   string
	lang     string
	deadline *deadline
}

func newChannelHost(ch channel.Channel, chatID, lang string, dl *deadline) *channelHost {
	return &channelHost{ch: ch, chatID: chatID, lang: lang, deadline: dl}
}

func (h *channelHost) Lang() string { return h.lang }

// ExtendTimeout pushes the request deadline back to at least d from now and
// shows the typing indicator so the user knows a slow lookup is running.
func (h *channelHost) ExtendTimeout(ctx context.Context, d time.Duration) {
	h.deadline.extend(d)
	_ = h.ch.SendChatAction(ctx, h.chatID, channel.ChatActionTyping)
}

func (h *channelHost) Speak(ctx context.Context, text string) error {
	return h.ch.SendMessage(ctx, h.chatID, text)
}

func (h *channelHost) Play(ctx context.Context, p skill.Playback) error {
	return h.ch.SendPlayback(ctx, h.chatID, p)
}
