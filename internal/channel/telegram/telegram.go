package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/bytedance/gg/gslice"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/tgifai/newscast/internal/catalog"
	"github.com/tgifai/newscast/internal/channel"
	"github.com/tgifai/newscast/internal/config"
	"github.com/tgifai/newscast/internal/pkg/logs"
	"github.com/tgifai/newscast/internal/skill"
)

var _ channel.Channel = (*Telegram)(nil)

type Telegram struct {
	id          string
	lang        string
	config      Config
	bot         *bot.Bot
	botUsername string // lowercase bot username for mention matching
	botUserID   int64  // bot user ID for text_mention matching
	handler     channel.MessageHandler
	mu          sync.RWMutex
	cancel      context.CancelFunc
}

func NewChannel(chanID string, chCfg *config.ChannelConfig) (*Telegram, error) {
	cfg, err := ParseConfig(chCfg.Config)
	if err != nil {
		return nil, fmt.Errorf("parse telegram config: %w", err)
	}

	tg := &Telegram{
		id:     chanID,
		lang:   chCfg.Lang,
		config: *cfg,
	}

	tgBot, err := bot.New(cfg.Token, bot.WithDefaultHandler(tg.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	tg.bot = tgBot

	me, err := tgBot.GetMe(context.Background())
	if err != nil {
		logs.Warn("[channel:telegram] GetMe failed, group mention filtering disabled: %v", err)
	} else {
		tg.botUsername = strings.ToLower(me.Username)
		tg.botUserID = me.ID
		logs.Info("[channel:telegram] bot identity: @%s (id=%d)", me.Username, me.ID)
	}

	return tg, nil
}

func (c *Telegram) ID() string {
	return c.id
}

func (c *Telegram) Type() channel.Type {
	return channel.Telegram
}

// Start long-polls for updates until ctx is canceled or Stop is called.
func (c *Telegram) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	c.bot.Start(ctx)
	return nil
}

func (c *Telegram) Stop(ctx context.Context) error {
	c.mu.RLock()
	cancel := c.cancel
	c.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

func (c *Telegram) SendMessage(ctx context.Context, chatID string, content string) error {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID: %w", err)
	}

	_, err = c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatIDInt,
		Text:   content,
	})
	return err
}

// SendPlayback posts the top result as a link (or as an audio message when
// enabled and the stream is an mp3 file) with the alternatives listed below.
func (c *Telegram) SendPlayback(ctx context.Context, chatID string, p skill.Playback) error {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID: %w", err)
	}

	text := formatPlayback(p)
	if c.config.SendAudio && sendableAsAudio(p.Result) {
		_, err = c.bot.SendAudio(ctx, &bot.SendAudioParams{
			ChatID:  chatIDInt,
			Audio:   &models.InputFileString{Data: p.Result.URI},
			Caption: text,
			Title:   p.Result.Title,
		})
		if err == nil {
			return nil
		}
		logs.CtxWarn(ctx, "[channel:telegram] send audio failed, falling back to link: %v", err)
	}

	_, err = c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatIDInt,
		Text:   text,
	})
	return err
}

func (c *Telegram) SendChatAction(ctx context.Context, chatID string, action channel.ChatAction) error {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID: %w", err)
	}

	tgAction, err := toTelegramChatAction(action)
	if err != nil {
		return err
	}

	ok, err := c.bot.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatIDInt,
		Action: tgAction,
	})
	if err != nil {
		return fmt.Errorf("failed to send chat action: %w", err)
	}
	if !ok {
		return errors.New("telegram send chat action failed")
	}
	return nil
}

func (c *Telegram) RegisterMessageHandler(handler channel.MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if handler == nil {
		return errors.New("handler cannot be nil")
	}
	c.handler = handler
	return nil
}

// handleUpdate turns text messages into channel messages. Everything else is
// ignored.
func (c *Telegram) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	if !c.allowed(msg.From.ID, msg.Chat) {
		logs.CtxDebug(ctx, "[channel:telegram] dropped message from user %d in chat %d", msg.From.ID, msg.Chat.ID)
		return
	}

	content := msg.Text
	if c.botUsername != "" && isGroupChat(msg.Chat.Type) {
		if !c.isBotMentioned(msg.Text, msg.Entities) && !strings.HasPrefix(content, "/") {
			return
		}
		content = c.stripBotMention(content)
	}
	if content == "" {
		return
	}

	c.dispatchMessage(ctx, c.buildChannelMessage(msg, content))
}

func (c *Telegram) allowed(userID int64, chat models.Chat) bool {
	if isGroupChat(chat.Type) {
		return len(c.config.AllowedGroups) == 0 || gslice.Contains(c.config.AllowedGroups, chat.ID)
	}
	return len(c.config.AllowedUsers) == 0 || gslice.Contains(c.config.AllowedUsers, userID)
}

// buildChannelMessage constructs a channel.Message from a Telegram message.
func (c *Telegram) buildChannelMessage(msg *models.Message, content string) *channel.Message {
	messageID := strconv.Itoa(msg.ID)
	metadata := map[string]string{
		"message_id": messageID,
		"chat_type":  string(msg.Chat.Type),
	}

	userID := ""
	lang := c.lang
	if msg.From != nil {
		userID = strconv.FormatInt(msg.From.ID, 10)
		metadata["username"] = msg.From.Username
		if lang == "" {
			lang = catalog.NormalizeLang(msg.From.LanguageCode)
		}
	}

	return &channel.Message{
		ID:          messageID,
		ChannelID:   c.id,
		ChannelType: channel.Telegram,
		UserID:      userID,
		ChatID:      strconv.FormatInt(msg.Chat.ID, 10),
		Content:     content,
		Lang:        lang,
		Metadata:    metadata,
	}
}

func (c *Telegram) dispatchMessage(ctx context.Context, channelMsg *channel.Message) {
	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()

	if handler == nil {
		return
	}
	if err := handler(ctx, channelMsg); err != nil {
		logs.CtxError(ctx, "[channel:telegram] error handling message: %v", err)
	}
}

// isGroupChat returns true for group and supergroup chat types.
func isGroupChat(chatType models.ChatType) bool {
	return chatType == models.ChatTypeGroup || chatType == models.ChatTypeSupergroup
}

// isBotMentioned checks whether entities contain a mention of this bot.
func (c *Telegram) isBotMentioned(text string, entities []models.MessageEntity) bool {
	for _, e := range entities {
		switch e.Type {
		case models.MessageEntityTypeMention:
			// offsets count runes
			runes := []rune(text)
			if e.Offset >= 0 && e.Offset+e.Length <= len(runes) {
				mentioned := strings.ToLower(string(runes[e.Offset : e.Offset+e.Length]))
				if mentioned == "@"+c.botUsername {
					return true
				}
			}
		case models.MessageEntityTypeTextMention:
			if e.User != nil && e.User.ID == c.botUserID {
				return true
			}
		}
	}
	return false
}

// stripBotMention removes @botUsername from content, ignoring case.
func (c *Telegram) stripBotMention(content string) string {
	lower := strings.ToLower(content)
	mention := "@" + c.botUsername
	for {
		idx := strings.Index(lower, mention)
		if idx < 0 {
			break
		}
		content = content[:idx] + content[idx+len(mention):]
		lower = lower[:idx] + lower[idx+len(mention):]
	}
	return strings.TrimSpace(content)
}

func toTelegramChatAction(action channel.ChatAction) (models.ChatAction, error) {
	switch action {
	case "", channel.ChatActionTyping:
		return models.ChatActionTyping, nil
	case channel.ChatActionUploadVoice:
		return models.ChatActionUploadVoice, nil
	default:
		return "", fmt.Errorf("unsupported chat action: %s", action)
	}
}
