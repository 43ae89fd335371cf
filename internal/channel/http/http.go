package http

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"

	"github.com/tgifai/newscast/internal/catalog"
	"github.com/tgifai/newscast/internal/channel"
	"github.com/tgifai/newscast/internal/config"
	"github.com/tgifai/newscast/internal/media"
	"github.com/tgifai/newscast/internal/pkg/logs"
	"github.com/tgifai/newscast/internal/skill"
)

var _ channel.Channel = (*HTTP)(nil)
var _ channel.RouteProvider = (*HTTP)(nil)

// Backend is the part of the news skill the HTTP endpoints call directly.
type Backend interface {
	skill.Searcher
	FeaturedPlaylist(ctx context.Context) []skill.Result
	Lang() string
}

// Preferences manages the persisted user default station.
type Preferences interface {
	DefaultFeed() string
	SetDefaultFeed(id string) error
	ClearDefaultFeed() error
}

// StationLookup validates station ids supplied by callers.
type StationLookup interface {
	Lookup(id string) (*catalog.Station, error)
}

type Deps struct {
	Skill    Backend
	Settings Preferences
	Catalog  StationLookup
}

// inboundRequest is the JSON body expected on the message endpoint.
type inboundRequest struct {
	UserID   string            `json:"user_id"`
	ChatID   string            `json:"chat_id"`
	Content  string            `json:"content"`
	Lang     string            `json:"lang,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// outboundResponse is the JSON body returned by the message endpoint.
type outboundResponse struct {
	ID       string          `json:"id"`
	Spoken   string          `json:"spoken,omitempty"`
	Playback *skill.Playback `json:"playback,omitempty"`
}

type searchResponse struct {
	Results []skill.Result `json:"results"`
}

type defaultRequest struct {
	StationID string `json:"station_id"`
}

type defaultResponse struct {
	StationID string `json:"station_id"`
}

type reply struct {
	spoken   string
	playback *skill.Playback
}

// pendingReply carries the first outbound reply for one request back to the
// waiting handler.
type pendingReply struct {
	ch chan reply
}

type HTTP struct {
	id     string
	lang   string
	config Config
	deps   Deps

	handler channel.MessageHandler
	mu      sync.RWMutex

	// pending maps a request scoped chatID to its reply channel.
	pendingMu sync.Mutex
	pending   map[string]*pendingReply
	prefix    string
}

func NewChannel(chanID string, chCfg *config.ChannelConfig, deps Deps) (*HTTP, error) {
	cfg, err := ParseConfig(chCfg.Config)
	if err != nil {
		return nil, fmt.Errorf("parse http config: %w", err)
	}
	if deps.Skill == nil {
		return nil, errors.New("http channel needs a skill backend")
	}

	return &HTTP{
		id:      chanID,
		lang:    chCfg.Lang,
		config:  *cfg,
		deps:    deps,
		pending: make(map[string]*pendingReply),
		prefix:  fmt.Sprintf("/api/v1/%s", chanID),
	}, nil
}

// Routes implements channel.RouteProvider.
func (h *HTTP) Routes() []channel.Route {
	routes := []channel.Route{
		{Method: consts.MethodGet, Path: h.prefix + "/search", Handler: h.auth(h.handleSearch)},
		{Method: consts.MethodGet, Path: h.prefix + "/featured", Handler: h.auth(h.handleFeatured)},
		{Method: consts.MethodPost, Path: h.prefix + "/message", Handler: h.auth(h.handleMessage)},
	}
	if h.deps.Settings != nil {
		routes = append(routes,
			channel.Route{Method: consts.MethodGet, Path: h.prefix + "/settings/default", Handler: h.auth(h.handleGetDefault)},
			channel.Route{Method: consts.MethodPut, Path: h.prefix + "/settings/default", Handler: h.auth(h.handleSetDefault)},
			channel.Route{Method: consts.MethodDelete, Path: h.prefix + "/settings/default", Handler: h.auth(h.handleClearDefault)},
		)
	}
	return routes
}

func (h *HTTP) ID() string         { return h.id }
func (h *HTTP) Type() channel.Type { return channel.HTTP }

// Authenticated reports whether requests must carry the bearer api key.
func (h *HTTP) Authenticated() bool {
	return h.config.APIKey != ""
}

func (h *HTTP) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (h *HTTP) Stop(_ context.Context) error {
	return nil
}

// SendMessage delivers spoken text to the pending request identified by
// chatID. Replies for requests that already timed out are dropped.
func (h *HTTP) SendMessage(_ context.Context, chatID string, content string) error {
	h.deliver(chatID, reply{spoken: content})
	return nil
}

func (h *HTTP) SendPlayback(_ context.Context, chatID string, p skill.Playback) error {
	h.deliver(chatID, reply{playback: &p})
	return nil
}

func (h *HTTP) SendChatAction(_ context.Context, _ string, _ channel.ChatAction) error {
	return channel.ErrUnsupportedOperation
}

func (h *HTTP) RegisterMessageHandler(handler channel.MessageHandler) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if handler == nil {
		return errors.New("handler cannot be nil")
	}
	h.handler = handler
	return nil
}

func (h *HTTP) deliver(chatID string, r reply) {
	h.pendingMu.Lock()
	pr, ok := h.pending[chatID]
	if ok {
		delete(h.pending, chatID)
	}
	h.pendingMu.Unlock()

	if !ok {
		return
	}
	select {
	case pr.ch <- r:
	default:
	}
}

func (h *HTTP) auth(next app.HandlerFunc) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if h.config.APIKey != "" {
			if string(c.GetHeader("Authorization")) != "Bearer "+h.config.APIKey {
				writeError(c, consts.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next(ctx, c)
	}
}

func (h *HTTP) handleSearch(ctx context.Context, c *app.RequestContext) {
	phrase := c.Query("q")
	mediaType := media.News
	if raw := strings.TrimSpace(c.Query("media")); raw != "" {
		parsed, err := media.ParseType(raw)
		if err != nil {
			writeError(c, consts.StatusBadRequest, err.Error())
			return
		}
		mediaType = parsed
	}

	sess := skill.StaticSession(h.sessionLang(c.Query("lang")))
	results := h.deps.Skill.Search(ctx, sess, phrase, mediaType)
	if results == nil {
		results = []skill.Result{}
	}
	writeJSON(c, consts.StatusOK, searchResponse{Results: results})
}

func (h *HTTP) handleFeatured(ctx context.Context, c *app.RequestContext) {
	results := h.deps.Skill.FeaturedPlaylist(ctx)
	if results == nil {
		results = []skill.Result{}
	}
	writeJSON(c, consts.StatusOK, searchResponse{Results: results})
}

func (h *HTTP) handleGetDefault(_ context.Context, c *app.RequestContext) {
	writeJSON(c, consts.StatusOK, defaultResponse{StationID: h.deps.Settings.DefaultFeed()})
}

func (h *HTTP) handleSetDefault(ctx context.Context, c *app.RequestContext) {
	var req defaultRequest
	if err := sonic.Unmarshal(c.GetRequest().Body(), &req); err != nil || strings.TrimSpace(req.StationID) == "" {
		writeError(c, consts.StatusBadRequest, "station_id required")
		return
	}

	id := strings.TrimSpace(req.StationID)
	if h.deps.Catalog != nil {
		st, err := h.deps.Catalog.Lookup(id)
		if err != nil {
			writeError(c, consts.StatusNotFound, err.Error())
			return
		}
		id = st.ID
	}
	if err := h.deps.Settings.SetDefaultFeed(id); err != nil {
		logs.CtxError(ctx, "[channel:http] save default feed: %v", err)
		writeError(c, consts.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(c, consts.StatusOK, defaultResponse{StationID: id})
}

func (h *HTTP) handleClearDefault(ctx context.Context, c *app.RequestContext) {
	if err := h.deps.Settings.ClearDefaultFeed(); err != nil {
		logs.CtxError(ctx, "[channel:http] clear default feed: %v", err)
		writeError(c, consts.StatusInternalServerError, "failed to save settings")
		return
	}
	c.SetStatusCode(consts.StatusNoContent)
}

// handleMessage enqueues an utterance and waits for the first reply.
func (h *HTTP) handleMessage(ctx context.Context, c *app.RequestContext) {
	var req inboundRequest
	if err := sonic.Unmarshal(c.GetRequest().Body(), &req); err != nil {
		writeError(c, consts.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(c, consts.StatusBadRequest, "content required")
		return
	}

	requestID := uuid.New().String()
	// replies are routed by request id; the caller's chat id only orders lanes
	chatID := requestID
	sessionKey := ""
	if req.ChatID != "" {
		sessionKey = h.id + ":" + req.ChatID
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = make(map[string]string)
	}

	msg := &channel.Message{
		ID:          requestID,
		ChannelID:   h.id,
		ChannelType: channel.HTTP,
		UserID:      req.UserID,
		ChatID:      chatID,
		Content:     req.Content,
		Lang:        h.sessionLang(req.Lang),
		SessionKey:  sessionKey,
		Metadata:    metadata,
	}

	pr := &pendingReply{ch: make(chan reply, 1)}
	h.pendingMu.Lock()
	h.pending[chatID] = pr
	h.pendingMu.Unlock()

	defer func() {
		h.pendingMu.Lock()
		delete(h.pending, chatID)
		h.pendingMu.Unlock()
	}()

	h.mu.RLock()
	handler := h.handler
	h.mu.RUnlock()

	if handler == nil {
		writeError(c, consts.StatusServiceUnavailable, "no handler registered")
		return
	}
	if err := handler(ctx, msg); err != nil {
		logs.CtxError(ctx, "[channel:http] error enqueuing message: %v", err)
		writeError(c, consts.StatusInternalServerError, "failed to process message")
		return
	}

	timer := time.NewTimer(h.config.ResponseTimeout)
	defer timer.Stop()

	select {
	case r := <-pr.ch:
		writeJSON(c, consts.StatusOK, outboundResponse{
			ID:       requestID,
			Spoken:   r.spoken,
			Playback: r.playback,
		})
	case <-timer.C:
		writeError(c, consts.StatusGatewayTimeout, "response timeout")
	case <-ctx.Done():
		writeError(c, consts.StatusServiceUnavailable, "server shutting down")
	}
}

func (h *HTTP) sessionLang(requested string) string {
	if lang := catalog.NormalizeLang(requested); lang != "" {
		return lang
	}
	if h.lang != "" {
		return h.lang
	}
	return h.deps.Skill.Lang()
}

func writeJSON(c *app.RequestContext, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		writeError(c, consts.StatusInternalServerError, "encode response")
		return
	}
	c.SetStatusCode(status)
	c.SetContentType("application/json")
	c.Response.SetBody(body)
}

func writeError(c *app.RequestContext, status int, msg string) {
	c.JSON(status, map[string]string{"error": msg})
}
