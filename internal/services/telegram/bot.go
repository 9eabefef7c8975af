package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"trackbot/internal/delivery"
	"trackbot/internal/fetch"
	"trackbot/internal/logging"
	"trackbot/internal/selection"
	"trackbot/internal/services"
)

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Pipeline is the core the bot drives.
type Pipeline interface {
	PresentCandidates(ctx context.Context, query string) ([]delivery.Option, error)
	ResolveSelection(ctx context.Context, token string) fetch.Result
	Finalize(ctx context.Context, result fetch.Result, handoff delivery.Handoff) delivery.Outcome
}

// Options configures the bot.
type Options struct {
	PollTimeoutSeconds int
	CandidateCount     int
	CeilingBytes       int64
}

// Bot routes Telegram updates into the pipeline.
type Bot struct {
	api      API
	pipeline Pipeline
	opts     Options
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewAPI connects to the Bot API. Requests time out after the longer of the
// poll window (plus slack) and sendTimeout, bounding audio uploads.
func NewAPI(token string, pollTimeout, sendTimeout time.Duration) (*tgbotapi.BotAPI, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, services.Wrap(services.ErrConfiguration, "telegram", "connect", "bot token required", nil)
	}
	timeout := max(pollTimeout+10*time.Second, sendTimeout)
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	return api, nil
}

// New constructs a bot.
func New(api API, pipeline Pipeline, opts Options, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.PollTimeoutSeconds <= 0 {
		opts.PollTimeoutSeconds = 60
	}
	return &Bot{
		api:      api,
		pipeline: pipeline,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "telegram"),
	}
}

// Run polls for updates until ctx is cancelled, then waits for in-flight
// handlers to finish.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = b.opts.PollTimeoutSeconds
	updates := b.api.GetUpdatesChan(cfg)
	b.logger.Info("polling for updates", logging.Int("poll_timeout_seconds", cfg.Timeout))

	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate processes one update synchronously.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	ctx = services.WithRequestID(ctx, uuid.NewString())
	defer func() {
		if rec := recover(); rec != nil {
			logging.ErrorWithContext(logging.WithContext(ctx, b.logger), "update handler panicked", "handler_panic",
				logging.Int("update_id", update.UpdateID),
				logging.String("panic", fmt.Sprint(rec)),
			)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleSelection(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Chat != nil:
		msg := update.Message
		ctx = services.WithChatID(ctx, msg.Chat.ID)
		if msg.IsCommand() {
			b.handleCommand(ctx, msg)
			return
		}
		b.handleSearch(ctx, msg)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.reply(ctx, msg.Chat.ID, delivery.MessageWelcome, nil)
	case "help":
		b.reply(ctx, msg.Chat.ID, delivery.HelpMessage(b.opts.CandidateCount, b.opts.CeilingBytes), nil)
	default:
		logging.WithContext(ctx, b.logger).Debug("unknown command ignored", logging.String("command", msg.Command()))
	}
}

func (b *Bot) handleSearch(ctx context.Context, msg *tgbotapi.Message) {
	query := strings.TrimSpace(msg.Text)
	if query == "" {
		return
	}
	logger := logging.WithContext(ctx, b.logger)
	logger.Info("search requested", logging.String("query", query))
	b.reply(ctx, msg.Chat.ID, delivery.SearchingMessage(query), nil)

	options, err := b.pipeline.PresentCandidates(ctx, query)
	if err != nil {
		b.reply(ctx, msg.Chat.ID, delivery.SearchErrorMessage(err), nil)
		return
	}
	b.reply(ctx, msg.Chat.ID, delivery.MessageResultsHeader, keyboard(options))
}

func keyboard(options []delivery.Option) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(options))
	for _, opt := range options {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(opt.Label, opt.Token)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) handleSelection(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	logger := logging.WithContext(ctx, b.logger)
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		logger.Debug("callback answer failed", logging.Error(err))
	}
	if cb.Message == nil || cb.Message.Chat == nil {
		logger.Warn("callback without message ignored",
			logging.String(logging.FieldImpact, "selection not processed"),
		)
		return
	}
	if _, err := selection.Decode(cb.Data); err != nil {
		logger.Warn("selection rejected",
			logging.String("data", cb.Data),
			logging.String(logging.FieldImpact, "selection ignored"),
			logging.Error(err),
		)
		return
	}

	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID
	ctx = services.WithChatID(ctx, chatID)

	b.edit(ctx, chatID, messageID, delivery.MessageDownloading)
	result := b.pipeline.ResolveSelection(ctx, cb.Data)
	if _, ok := result.(fetch.Ready); ok {
		b.edit(ctx, chatID, messageID, delivery.MessageSending)
	}
	outcome := b.pipeline.Finalize(ctx, result, b.audioHandoff(chatID))
	logging.WithContext(ctx, b.logger).Info("selection finished", logging.String("outcome", string(outcome.Kind)))
	if outcome.Message != "" {
		b.edit(ctx, chatID, messageID, outcome.Message)
	}
}

func (b *Bot) audioHandoff(chatID int64) delivery.HandoffFunc {
	return func(_ context.Context, artifact delivery.Artifact) error {
		audio := tgbotapi.NewAudio(chatID, tgbotapi.FilePath(artifact.Path))
		audio.Title = artifact.Title
		audio.Duration = int(artifact.Duration.Seconds())
		if _, err := b.api.Send(audio); err != nil {
			return fmt.Errorf("send audio: %w", err)
		}
		return nil
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logSendFailure(ctx, "reply", err)
	}
}

func (b *Bot) edit(ctx context.Context, chatID int64, messageID int, text string) {
	if _, err := b.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		b.logSendFailure(ctx, "edit", err)
	}
}

func (b *Bot) logSendFailure(ctx context.Context, op string, err error) {
	var apiErr *tgbotapi.Error
	attrs := []logging.Attr{
		logging.String("operation", op),
		logging.String(logging.FieldImpact, "user did not receive a status message"),
		logging.String(logging.FieldErrorHint, "check bot token and network reachability of api.telegram.org"),
		logging.Error(err),
	}
	if errors.As(err, &apiErr) {
		attrs = append(attrs, logging.Int("telegram_code", apiErr.Code))
	}
	logging.WarnWithContext(logging.WithContext(ctx, b.logger), "telegram send failed", "telegram_send_failed", attrs...)
}
