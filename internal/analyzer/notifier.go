package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Min interval between any two Telegram messages to the same chat to avoid 429 Too Many Requests (~30/min limit).
const telegramSendInterval = 2 * time.Second

// messageType represents the type of message to send
type messageType int

const (
	messageTypeValue messageType = iota
	messageTypeSummary
)

// queuedMessage represents a message queued for sending
type queuedMessage struct {
	msgType messageType
	alert   *ValueAlert
	stats   *RefreshStats
}

// TelegramNotifier sends Telegram notifications for value picks
type TelegramNotifier struct {
	bot      *tgbotapi.BotAPI
	chatID   int64
	mu       sync.Mutex
	lastSend time.Time

	// Async queue for sending messages
	queue     chan queuedMessage
	queueDone chan struct{}
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewTelegramNotifier creates a new Telegram notifier. Returns nil when the
// bot cannot be reached so the analyzer runs without notifications.
func NewTelegramNotifier(token string, chatID int64) *TelegramNotifier {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		slog.Error("Failed to create telegram bot", "error", err)
		return nil
	}

	bot.Debug = false

	// Test bot connection
	_, err = bot.GetMe()
	if err != nil {
		slog.Error("Failed to get bot info", "error", err)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	notifier := &TelegramNotifier{
		bot:       bot,
		chatID:    chatID,
		queue:     make(chan queuedMessage, 100), // Buffer up to 100 messages
		queueDone: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}

	// Start background worker for sending messages
	notifier.wg.Add(1)
	go notifier.messageSender()

	slog.Info("Telegram notifier initialized", "chat_id", chatID)

	return notifier
}

// messageSender runs in background and sends queued messages with proper intervals
func (n *TelegramNotifier) messageSender() {
	defer n.wg.Done()

	for {
		select {
		case <-n.ctx.Done():
			// Drain remaining messages before exit
			for {
				select {
				case msg := <-n.queue:
					n.sendQueuedMessage(msg)
				default:
					close(n.queueDone)
					return
				}
			}
		case msg := <-n.queue:
			n.sendQueuedMessage(msg)
		}
	}
}

// sendQueuedMessage sends a queued message with proper rate limiting
func (n *TelegramNotifier) sendQueuedMessage(msg queuedMessage) {
	var messageText string

	switch msg.msgType {
	case messageTypeValue:
		messageText = formatValueAlert(msg.alert)
	case messageTypeSummary:
		messageText = formatRefreshSummary(msg.stats)
	default:
		slog.Error("Unknown message type", "type", msg.msgType)
		return
	}

	tgMsg := tgbotapi.NewMessage(n.chatID, messageText)
	tgMsg.ParseMode = tgbotapi.ModeMarkdown

	// Wait for proper interval
	n.mu.Lock()
	elapsed := time.Since(n.lastSend)
	if elapsed < telegramSendInterval {
		waitTime := telegramSendInterval - elapsed
		n.mu.Unlock()
		select {
		case <-n.ctx.Done():
			slog.Warn("Telegram send: cancelled during wait", "type", msg.msgType)
			return
		case <-time.After(waitTime):
		}
		n.mu.Lock()
	}

	n.lastSend = time.Now()
	_, err := n.bot.Send(tgMsg)
	n.mu.Unlock()

	if err != nil {
		slog.Error("Telegram send: failed", "error", err, "type", msg.msgType)
	} else {
		slog.Info("Telegram send: success", "type", msg.msgType, "queue_length", len(n.queue))
	}
}

// Stop stops the notifier and waits for all queued messages to be sent
func (n *TelegramNotifier) Stop() {
	if n == nil {
		return
	}
	n.cancel()
	<-n.queueDone
	n.wg.Wait()
}

// SendValueAlert queues an alert for a value pick (non-blocking)
func (n *TelegramNotifier) SendValueAlert(ctx context.Context, alert *ValueAlert) error {
	if n == nil || n.bot == nil {
		return fmt.Errorf("telegram notifier not initialized")
	}

	select {
	case <-n.ctx.Done():
		return fmt.Errorf("notifier stopped")
	case <-ctx.Done():
		return ctx.Err()
	case n.queue <- queuedMessage{
		msgType: messageTypeValue,
		alert:   alert,
	}:
		return nil
	default:
		// Queue is full, log warning but don't block
		slog.Warn("Telegram message queue is full, dropping message", "match", alert.MatchName)
		return fmt.Errorf("message queue is full")
	}
}

// SendRefreshSummary queues a summary of a finished refresh (non-blocking)
func (n *TelegramNotifier) SendRefreshSummary(ctx context.Context, stats *RefreshStats) error {
	if n == nil || n.bot == nil {
		return fmt.Errorf("telegram notifier not initialized")
	}

	select {
	case <-n.ctx.Done():
		return fmt.Errorf("notifier stopped")
	case <-ctx.Done():
		return ctx.Err()
	case n.queue <- queuedMessage{
		msgType: messageTypeSummary,
		stats:   stats,
	}:
		return nil
	default:
		slog.Warn("Telegram message queue is full, dropping summary", "coupon", stats.CouponID)
		return fmt.Errorf("message queue is full")
	}
}

// formatValueAlert formats a value pick as a Telegram message.
func formatValueAlert(alert *ValueAlert) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("🎯 *Value Pick | week %d/%d*\n\n", alert.Week, alert.Year))
	builder.WriteString(fmt.Sprintf("*%s* (match %d)\n", escapeMarkdown(alert.MatchName), alert.Slot))
	builder.WriteString(fmt.Sprintf("⚽ Sign: *%s*\n\n", alert.Sign))
	builder.WriteString(fmt.Sprintf("📈 *Value: %.2f*\n", alert.Value))
	builder.WriteString(fmt.Sprintf("💰 Bookmakers: %.1f%% | Public: %.1f%%\n", alert.Probability*100, alert.PublicPct))
	builder.WriteString(fmt.Sprintf("_%s_\n", alert.Reason))
	return builder.String()
}

// formatRefreshSummary formats refresh stats as a Telegram message.
func formatRefreshSummary(stats *RefreshStats) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("📊 *Refresh Summary | week %d/%d*\n\n", stats.Week, stats.Year))
	builder.WriteString(fmt.Sprintf("Quotes: %d", stats.Quotes))
	if stats.QuotesRejected > 0 {
		builder.WriteString(fmt.Sprintf(" (%d rejected)", stats.QuotesRejected))
	}
	builder.WriteString("\n")
	builder.WriteString(fmt.Sprintf("Picks: %d", stats.Picks))
	if stats.PicksRejected > 0 {
		builder.WriteString(fmt.Sprintf(" (%d rejected)", stats.PicksRejected))
	}
	builder.WriteString("\n")
	builder.WriteString(fmt.Sprintf("Rows: %d", stats.Rows))
	if stats.Rows > 0 {
		builder.WriteString(fmt.Sprintf(" | top EV: %.4f", stats.TopRowEV))
	}
	builder.WriteString("\n")
	builder.WriteString(fmt.Sprintf("Alerts: %d\n", stats.Alerts))
	if len(stats.ProviderErrors) > 0 {
		builder.WriteString(fmt.Sprintf("⚠️ Provider errors: %d\n", len(stats.ProviderErrors)))
	}
	builder.WriteString(fmt.Sprintf("🕐 Took %s\n", stats.Duration))
	return builder.String()
}

func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"(", "\\(",
		")", "\\)",
		"~", "\\~",
		"`", "\\`",
		">", "\\>",
		"#", "\\#",
		"+", "\\+",
		"-", "\\-",
		"=", "\\=",
		"|", "\\|",
		"{", "\\{",
		"}", "\\}",
		".", "\\.",
		"!", "\\!",
	)
	return replacer.Replace(text)
}
