package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/gg/gmap"
	"github.com/cloudwego/hertz/pkg/app"
	hzServer "github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hzutils "github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/tgifai/newscast/internal/channel"
	httpch "github.com/tgifai/newscast/internal/channel/http"
	"github.com/tgifai/newscast/internal/channel/telegram"
	"github.com/tgifai/newscast/internal/config"
	"github.com/tgifai/newscast/internal/cronjob"
	"github.com/tgifai/newscast/internal/pkg/logs"
	"github.com/tgifai/newscast/internal/pkg/utils"
	"github.com/tgifai/newscast/internal/settings"
	"github.com/tgifai/newscast/internal/skill"
)

const typingInterval = 3 * time.Second

// Deps are the long lived services the gateway drives.
type Deps struct {
	Skill    *skill.NewsSkill
	Settings *settings.Store
	// Prefetch is optional.
	Prefetch *cronjob.Prefetcher
}

type Gateway struct {
	cfg        config.GatewayConfig
	deps       Deps
	channels   *channel.Registry
	commands   *CommandRouter
	msgQueue   *MessageQueue
	httpServer *hzServer.Hertz
	startedAt  time.Time

	runCtx    context.Context
	runCancel context.CancelFunc

	stopOnce sync.Once
	stopErr  error
}

func NewGateway(cfg config.GatewayConfig, deps Deps) (*Gateway, error) {
	if deps.Skill == nil {
		return nil, errors.New("gateway needs a news skill")
	}

	if cfg.Bind == "" {
		cfg.Bind = config.DefaultBind
	}

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cfg.RequestTimeout = int(timeout / time.Second)

	hlog.SetLogger(logs.NewHlogLogger(logs.DefaultLogger()))

	opts := []hzServer.Option{
		hzServer.WithHostPorts(cfg.Bind),
		hzServer.WithReadTimeout(timeout),
		hzServer.WithWriteTimeout(timeout),
		hzServer.WithExitWaitTime(5 * time.Second),
	}
	if cfg.Metrics {
		opts = append(opts, hzServer.WithTracer(newServerTracer()))
	}

	gw := &Gateway{
		cfg:        cfg,
		deps:       deps,
		channels:   channel.NewRegistry(),
		commands:   newCommandRouter(),
		httpServer: hzServer.Default(opts...),
		msgQueue: newMessageQueue(QueueOptions{
			LaneBuffer:    10,
			MaxConcurrent: cfg.MaxConcurrentSessions,
		}),
	}
	registerBuiltinCommands(gw.commands)
	gw.initHTTPServer()

	return gw, nil
}

// Start brings up the message queue, the configured channels, the prefetch
// scheduler and finally the HTTP server.
func (gw *Gateway) Start(ctx context.Context) error {
	gw.runCtx, gw.runCancel = context.WithCancel(ctx)
	gw.startedAt = time.Now()

	cfg, err := config.Get()
	if err != nil {
		return err
	}

	if err := gw.msgQueue.Init(gw.runCtx, gw.processMessage); err != nil {
		return fmt.Errorf("init msg queue: %w", err)
	}
	if err := gw.initChannels(gw.runCtx, cfg.Channels); err != nil {
		return fmt.Errorf("init channels: %w", err)
	}
	if gw.deps.Prefetch != nil {
		if err := gw.deps.Prefetch.Start(gw.runCtx); err != nil {
			return fmt.Errorf("start prefetch: %w", err)
		}
	}

	go gw.httpServer.Spin()
	logs.CtxInfo(ctx, "[gateway] listening on %s with %d channel(s)", gw.cfg.Bind, gw.channels.Len())
	return nil
}

func (gw *Gateway) Stop(ctx context.Context) error {
	gw.stopOnce.Do(func() {
		if gw.runCancel != nil {
			gw.runCancel()
		}

		if gw.deps.Prefetch != nil {
			if err := gw.deps.Prefetch.Stop(ctx); err != nil {
				logs.CtxWarn(ctx, "[gateway] stop prefetch error: %v", err)
			}
		}

		for _, ch := range gw.channels.List() {
			if err := ch.Stop(ctx); err != nil {
				logs.CtxWarn(ctx, "[gateway] stop channel %s error: %v", ch.ID(), err)
			}
		}

		if err := gw.httpServer.Shutdown(ctx); err != nil {
			logs.CtxWarn(ctx, "[gateway] shutdown http server error: %v", err)
			gw.stopErr = err
		}

		logs.CtxInfo(ctx, "[gateway] all resources stopped")
	})
	return gw.stopErr
}

func (gw *Gateway) initChannels(ctx context.Context, channels map[string]config.ChannelConfig) error {
	ids := gmap.Keys(channels)
	sort.Strings(ids)
	for _, id := range ids {
		cfg := channels[id]
		cfg.ID = id
		if !cfg.Enabled {
			logs.CtxInfo(ctx, "[gateway] channel #%s is disabled, skipping", id)
			continue
		}

		ch, err := gw.newChannel(id, cfg)
		if err != nil {
			logs.CtxError(ctx, "[gateway] create channel #%s error: %v", id, err)
			return fmt.Errorf("create channel %s: %w", id, err)
		}
		if err := gw.attach(ctx, ch); err != nil {
			return err
		}
	}
	return nil
}

// attach registers ch, mounts its routes and starts its receive loop.
func (gw *Gateway) attach(ctx context.Context, ch channel.Channel) error {
	id := ch.ID()
	if err := ch.RegisterMessageHandler(gw.enqueueMsg); err != nil {
		return fmt.Errorf("register handler for channel %s: %w", id, err)
	}
	if err := gw.channels.Register(ch); err != nil {
		return fmt.Errorf("register channel %s: %w", id, err)
	}
	if rp, ok := ch.(channel.RouteProvider); ok {
		for _, r := range rp.Routes() {
			gw.httpServer.Handle(r.Method, r.Path, r.Handler)
			logs.CtxDebug(ctx, "[gateway] route %s %s -> #%s", r.Method, r.Path, id)
		}
	}

	go func() {
		logs.CtxInfo(ctx, "[gateway] starting channel #%s (%s)", id, ch.Type())
		if err := ch.Start(ctx); err != nil {
			logs.CtxError(ctx, "[gateway] channel #%s stopped with error: %v", id, err)
		}
	}()
	return nil
}

func (gw *Gateway) newChannel(id string, cfg config.ChannelConfig) (channel.Channel, error) {
	switch channel.Type(strings.ToLower(strings.TrimSpace(cfg.Type))) {
	case channel.Telegram:
		return telegram.NewChannel(id, &cfg)
	case channel.HTTP:
		deps := httpch.Deps{
			Skill:   gw.deps.Skill,
			Catalog: gw.deps.Skill.Catalog(),
		}
		if gw.deps.Settings != nil {
			deps.Settings = gw.deps.Settings
		}
		ch, err := httpch.NewChannel(id, &cfg, deps)
		if err != nil {
			return nil, err
		}
		if !ch.Authenticated() && utils.ExposedBind(gw.cfg.Bind) {
			logs.Warn("[gateway] channel #%s has no api_key but %s is reachable from outside", id, gw.cfg.Bind)
		}
		return ch, nil
	default:
		return nil, fmt.Errorf("unsupported channel type: %s", cfg.Type)
	}
}

func (gw *Gateway) initHTTPServer() {
	gw.httpServer.GET("/health", func(ctx context.Context, c *app.RequestContext) {
		c.JSON(consts.StatusOK, hzutils.H{"status": "ok"})
	})
	if gw.cfg.Metrics {
		path := gw.cfg.MetricsPath
		if path == "" {
			path = config.DefaultMetricsPath
		}
		gw.httpServer.GET(path, metricsHandler())
	}
}

func (gw *Gateway) enqueueMsg(ctx context.Context, msg *channel.Message) error {
	if msg == nil {
		return fmt.Errorf("message cannot be nil")
	}
	return gw.msgQueue.Enqueue(ctx, msg)
}

func (gw *Gateway) processMessage(ctx context.Context, msg *channel.Message) error {
	if msg == nil {
		return fmt.Errorf("message cannot be nil")
	}

	ctx = logs.WithChannel(logs.SetLogID(ctx, logs.NewLogID()), msg.ChannelID, msg.ChatID)
	var dl *deadline
	if gw.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, dl, cancel = withDeadline(ctx, time.Duration(gw.cfg.RequestTimeout)*time.Second)
		defer cancel()
	}
	logs.CtxDebug(ctx, "[msg] -> (%s#%s) %s", msg.ChannelType, msg.UserID, utils.Truncate80(msg.Content))

	ch, err := gw.channels.Get(msg.ChannelID)
	if err != nil {
		return err
	}

	if cmd, args, ok := gw.commands.Match(msg.Content); ok {
		reply, err := cmd.Handler(ctx, gw, msg, args)
		if err != nil {
			return fmt.Errorf("command %s failed: %w", cmd.Name, err)
		}
		if reply == "" {
			return nil
		}
		return ch.SendMessage(ctx, msg.ChatID, reply)
	}

	stopTyping := gw.keepTyping(ctx, ch, msg.ChatID)
	defer stopTyping()

	host := newChannelHost(ch, msg.ChatID, gw.langFor(msg), dl)
	if err := gw.deps.Skill.Handle(ctx, host, msg.Content); err != nil {
		return fmt.Errorf("reply via channel %s failed: %w", msg.ChannelID, err)
	}
	return nil
}

func (gw *Gateway) langFor(msg *channel.Message) string {
	if msg.Lang != "" {
		return msg.Lang
	}
	return gw.deps.Skill.Lang()
}

// keepTyping refreshes the typing indicator until stop is called. Channels
// without one get a no-op.
func (gw *Gateway) keepTyping(ctx context.Context, ch channel.Channel, chatID string) (stop func()) {
	if err := ch.SendChatAction(ctx, chatID, channel.ChatActionTyping); errors.Is(err, channel.ErrUnsupportedOperation) {
		return func() {}
	}

	ticker := time.NewTicker(typingInterval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = ch.SendChatAction(ctx, chatID, channel.ChatActionTyping)
			}
		}
	}()

	return func() { close(done) }
}
