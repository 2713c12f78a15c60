// Package telegram sends opportunity alerts through the Telegram Bot
// API.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/app"
	"github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/domain"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/config"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/httpclient"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/logger"
	"github.com/replitcryptobots-blip/Sonicarbi/internal/ratelimit"
)

const apiBaseURL = "https://api.telegram.org"

// The Bot API allows ~20 messages per minute to the same chat.
const messagesPerMinute = 20

// Delivery budget per alert.
const (
	sendAttempts   = 3
	retryDelay     = 2 * time.Second
	deliverTimeout = 30 * time.Second
)

// Ensure Notifier implements Reporter.
var _ app.Reporter = (*Notifier)(nil)

// sendMessageRequest is the sendMessage call payload.
type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// sendMessageResponse is the subset of the API response we check.
type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notifier reports profitable opportunities to a Telegram chat.
// Delivery is best effort: failures are logged, never propagated into
// the scan loop.
type Notifier struct {
	client     httpclient.Client
	token      string
	chatID     string
	limiter    *ratelimit.Limiter
	retryDelay time.Duration
	log        logger.LoggerInterface

	wg sync.WaitGroup
}

// NewNotifier creates a Notifier from the Telegram configuration.
func NewNotifier(cfg config.TelegramConfig, log logger.LoggerInterface) (*Notifier, error) {
	return newNotifier(cfg, apiBaseURL, log)
}

func newNotifier(cfg config.TelegramConfig, baseURL string, log logger.LoggerInterface) (*Notifier, error) {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return nil, fmt.Errorf("telegram notifier needs bot_token and chat_id")
	}

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("telegram"),
		httpclient.WithBaseURL(baseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	return &Notifier{
		client:     client,
		token:      cfg.BotToken,
		chatID:     cfg.ChatID,
		limiter:    ratelimit.New(messagesPerMinute),
		retryDelay: retryDelay,
		log:        log,
	}, nil
}

// Start announces the scanner is live.
func (n *Notifier) Start(ctx context.Context) error {
	return n.send(ctx, "Arbitrage scanner started")
}

// Report queues an opportunity summary for delivery and returns
// immediately; the scan worker never waits on Telegram. Rate limiting
// may drop alerts under bursts; the newest information is the valuable
// one anyway.
func (n *Notifier) Report(ctx context.Context, opp *domain.Opportunity) {
	if !n.limiter.Allow() {
		n.log.Warn(ctx, "telegram alert dropped by rate limit", "id", opp.ID)
		return
	}

	n.wg.Add(1)
	go n.deliver(opp)
}

// deliver sends the alert with a bounded retry budget. It runs outside
// the scan pass context so an ending pass does not cancel delivery.
func (n *Notifier) deliver(opp *domain.Opportunity) {
	defer n.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	text := formatOpportunity(opp)

	var err error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		if err = n.send(ctx, text); err == nil {
			return
		}
		if attempt < sendAttempts {
			select {
			case <-ctx.Done():
				err = ctx.Err()
				attempt = sendAttempts
			case <-time.After(n.retryDelay):
			}
		}
	}

	n.log.Warn(ctx, "telegram alert failed",
		"id", opp.ID,
		"attempts", sendAttempts,
		"error", err.Error(),
	)
}

// Stop waits for in-flight alerts and announces shutdown.
func (n *Notifier) Stop() error {
	n.wg.Wait()
	return n.send(context.Background(), "Arbitrage scanner stopped")
}

func (n *Notifier) send(ctx context.Context, text string) error {
	var result sendMessageResponse

	resp, err := n.client.NewRequest().
		SetBody(sendMessageRequest{
			ChatID:    n.chatID,
			Text:      text,
			ParseMode: "Markdown",
		}).
		SetResult(&result).
		Post(ctx, fmt.Sprintf("/bot%s/sendMessage", n.token))
	if err != nil {
		return err
	}

	if resp.IsError() || !result.OK {
		return fmt.Errorf("telegram API rejected message: %s", result.Description)
	}

	return nil
}

func formatOpportunity(opp *domain.Opportunity) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*Arbitrage opportunity*\n")
	fmt.Fprintf(&b, "Route: `%s`\n", opp.Route.String())
	fmt.Fprintf(&b, "Buy on %s, sell on %s\n", opp.BuyVenue, opp.SellVenue)
	fmt.Fprintf(&b, "Size: %s %s\n", opp.TradeSize.StringFixed(2), opp.BorrowToken.Symbol())
	if opp.Profit != nil {
		fmt.Fprintf(&b, "Net: *$%s* (%s%%)\n",
			opp.Profit.NetUSD.StringFixed(2), opp.Profit.NetPct.StringFixed(3))
		fmt.Fprintf(&b, "Gross $%s, costs $%s",
			opp.Profit.GrossUSD.StringFixed(2), opp.Profit.CostsUSD.StringFixed(2))
	}

	return b.String()
}
