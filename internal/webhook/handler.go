// Package webhook serves the course assistant over the LINE Messaging API.
// Each chat's history is held in memory and passed to the dialogue
// controller with every message.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"golang.org/x/time/rate"

	"github.com/targetzero/coursebot/internal/ctxutil"
	"github.com/targetzero/coursebot/internal/dialogue"
	"github.com/targetzero/coursebot/internal/logger"
	"github.com/targetzero/coursebot/internal/metrics"
	"github.com/targetzero/coursebot/internal/ratelimit"
)

// Handler defaults.
const (
	DefaultTimeout       = 60 * time.Second
	DefaultGlobalRPS     = 100.0
	maxEventsPerWebhook  = 100
	maxUtteranceRunes    = 2000
	loadingSeconds       = int32(60) // LINE accepts 5-60 in steps of 5
	redactedChatIDPrefix = 8
)

var resetPhrases = []string{"reset", "start over", "start again", "new search"}

// Dialogue handles one conversational turn.
type Dialogue interface {
	Handle(ctx context.Context, req dialogue.Request) (dialogue.Response, error)
}

// Replier sends messages back to LINE.
type Replier interface {
	Reply(replyToken string, messages []messaging_api.MessageInterface) error
	ShowLoading(chatID string, seconds int32) error
}

// Handler handles LINE webhook events.
type Handler struct {
	channelSecret string
	client        Replier
	dialogue      Dialogue
	conversations *Conversations
	chatLimiter   *ratelimit.KeyedLimiter
	apiLimiter    *rate.Limiter
	metrics       *metrics.Metrics
	logger        *logger.Logger
	timeout       time.Duration
	wg            sync.WaitGroup
}

// HandlerConfig holds configuration for creating a new Handler.
type HandlerConfig struct {
	ChannelSecret string
	ChannelToken  string
	Dialogue      Dialogue
	Conversations *Conversations
	// ChatLimiter limits messages per chat; nil disables it.
	ChatLimiter *ratelimit.KeyedLimiter
	// GlobalRPS caps calls to the LINE API across all chats.
	GlobalRPS float64
	// Timeout bounds the processing of one event.
	Timeout time.Duration
	Metrics *metrics.Metrics
	Logger  *logger.Logger
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithReplier replaces the LINE API client.
func WithReplier(r Replier) HandlerOption {
	return func(h *Handler) {
		h.client = r
	}
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig, opts ...HandlerOption) (*Handler, error) {
	if cfg.Dialogue == nil {
		return nil, errors.New("webhook: dialogue is required")
	}
	if cfg.Conversations == nil {
		cfg.Conversations = NewConversations(ConversationConfig{Metrics: cfg.Metrics})
	}
	if cfg.GlobalRPS <= 0 {
		cfg.GlobalRPS = DefaultGlobalRPS
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}

	h := &Handler{
		channelSecret: cfg.ChannelSecret,
		dialogue:      cfg.Dialogue,
		conversations: cfg.Conversations,
		chatLimiter:   cfg.ChatLimiter,
		apiLimiter:    rate.NewLimiter(rate.Limit(cfg.GlobalRPS), max(int(cfg.GlobalRPS), 1)),
		metrics:       cfg.Metrics,
		logger:        cfg.Logger.WithModule("webhook"),
		timeout:       cfg.Timeout,
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.client == nil {
		client, err := messaging_api.NewMessagingApiAPI(cfg.ChannelToken)
		if err != nil {
			return nil, fmt.Errorf("create messaging API client: %w", err)
		}
		h.client = lineClient{api: client}
	}
	return h, nil
}

// Conversations returns the handler's conversation store.
func (h *Handler) Conversations() *Conversations {
	return h.conversations
}

// Handle is the Gin handler for the webhook endpoint.
func (h *Handler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn("Invalid webhook signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).Error("Failed to parse webhook request")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	// LINE expects 200 before the reply is sent.
	c.Status(http.StatusOK)

	events := cb.Events
	if len(events) > maxEventsPerWebhook {
		h.logger.WithField("event_count", len(events)).Warn("Too many events in webhook batch; truncating")
		events = events[:maxEventsPerWebhook]
	}
	events = append([]webhook.EventInterface(nil), events...)

	h.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in async event processing")
			}
		}()
		for _, event := range events {
			h.processEvent(context.Background(), event)
		}
	})
}

func (h *Handler) processEvent(ctx context.Context, event webhook.EventInterface) {
	start := time.Now()

	eventID, isRedelivery := eventMeta(event)
	log := h.logger
	if eventID != "" {
		ctx = ctxutil.WithRequestID(ctx, eventID)
		log = log.WithRequestID(eventID)
	}
	if isRedelivery {
		log = log.WithField("is_redelivery", true)
	}

	var (
		eventType  string
		replyToken string
		messages   []messaging_api.MessageInterface
	)
	switch e := event.(type) {
	case webhook.MessageEvent:
		eventType, replyToken = "message", e.ReplyToken
		messages = h.processMessage(ctx, e, log)
	case webhook.FollowEvent:
		eventType, replyToken = "follow", e.ReplyToken
		messages = welcomeReply(true)
	case webhook.JoinEvent:
		eventType, replyToken = "join", e.ReplyToken
		messages = welcomeReply(false)
	case webhook.UnfollowEvent:
		eventType = "unfollow"
		h.conversations.Reset(chatID(e.Source))
	case webhook.LeaveEvent:
		eventType = "leave"
		h.conversations.Reset(chatID(e.Source))
	default:
		log.WithField("event_type", fmt.Sprintf("%T", e)).Debug("Unsupported event type")
		return
	}

	status := "success"
	if len(messages) > 0 && replyToken != "" {
		if err := h.reply(ctx, replyToken, messages); err != nil {
			status = "reply_error"
			if strings.Contains(err.Error(), "Invalid reply token") {
				log.WithError(err).Debug("Reply token already used or invalid")
			} else {
				log.WithError(err).Error("Failed to send reply")
			}
		}
	}

	duration := time.Since(start)
	h.metrics.RecordWebhook(eventType, status, duration.Seconds())
	log.WithField("event_type", eventType).
		WithField("duration_ms", duration.Milliseconds()).
		Info("Event processed")
}

// processMessage returns the reply to a message, or nil when the bot should
// stay quiet.
func (h *Handler) processMessage(ctx context.Context, e webhook.MessageEvent, log *logger.Logger) []messaging_api.MessageInterface {
	chat := chatID(e.Source)
	personal := isPersonalChat(e.Source)
	ctx = ctxutil.WithChatID(ctx, chat)
	ctx = ctxutil.WithUserID(ctx, userID(e.Source))

	msg, ok := e.Message.(webhook.TextMessageContent)
	if !ok {
		if personal {
			return textReply(msgTextOnly)
		}
		return nil
	}

	text := msg.Text
	if !personal {
		if !isBotMentioned(msg) {
			return nil
		}
		text = stripBotMentions(msg)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len([]rune(text)) > maxUtteranceRunes {
		return textReply(msgTooLong)
	}

	if h.chatLimiter != nil && !h.chatLimiter.Allow(chat) {
		log.WithField("chat_id", redact(chat)).Warn("Chat rate limit exceeded")
		if personal {
			return textReply(msgTooFast)
		}
		return nil
	}

	if isResetPhrase(text) {
		h.conversations.Reset(chat)
		return textReply(msgReset)
	}

	if personal {
		if err := h.client.ShowLoading(chat, loadingSeconds); err != nil {
			log.WithError(err).Debug("Failed to show loading animation")
		}
	}

	turnCtx, cancel := context.WithTimeout(ctxutil.PreserveTracing(ctx), h.timeout)
	defer cancel()

	resp, err := h.dialogue.Handle(turnCtx, dialogue.Request{
		History:   h.conversations.Get(chat),
		Utterance: text,
	})
	if err != nil {
		log.WithError(err).Error("Dialogue unavailable")
		return textReply(msgUnavailable)
	}

	h.conversations.Put(chat, resp.History)
	return buildReply(resp.Result, text)
}

func (h *Handler) reply(ctx context.Context, token string, messages []messaging_api.MessageInterface) error {
	if !h.apiLimiter.Allow() {
		h.metrics.RecordRateLimiterDrop("line_api")
		if err := h.apiLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for LINE API rate limit: %w", err)
		}
	}
	return h.client.Reply(token, messages)
}

// Shutdown waits for in-flight events. It returns the context's error if it
// ends first.
func (h *Handler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func eventMeta(event webhook.EventInterface) (string, bool) {
	var (
		id string
		dc *webhook.DeliveryContext
	)
	switch e := event.(type) {
	case webhook.MessageEvent:
		id, dc = e.WebhookEventId, e.DeliveryContext
	case webhook.FollowEvent:
		id, dc = e.WebhookEventId, e.DeliveryContext
	case webhook.JoinEvent:
		id, dc = e.WebhookEventId, e.DeliveryContext
	case webhook.UnfollowEvent:
		id, dc = e.WebhookEventId, e.DeliveryContext
	case webhook.LeaveEvent:
		id, dc = e.WebhookEventId, e.DeliveryContext
	}
	return id, dc != nil && dc.IsRedelivery
}

func isResetPhrase(text string) bool {
	return slices.Contains(resetPhrases, strings.ToLower(strings.Trim(text, " .!")))
}

func redact(id string) string {
	if len(id) > redactedChatIDPrefix {
		return id[:redactedChatIDPrefix] + "..."
	}
	return id
}

// lineClient adapts the SDK client to Replier.
type lineClient struct {
	api *messaging_api.MessagingApiAPI
}

func (c lineClient) Reply(replyToken string, messages []messaging_api.MessageInterface) error {
	_, err := c.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	return err
}

func (c lineClient) ShowLoading(chatID string, seconds int32) error {
	if chatID == "" {
		return nil
	}
	_, err := c.api.ShowLoadingAnimation(&messaging_api.ShowLoadingAnimationRequest{
		ChatId:         chatID,
		LoadingSeconds: seconds,
	})
	return err
}
