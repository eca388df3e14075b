// Package notify pushes the best deals of a run to Telegram.
package notify

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/NaNostyle/pc-component-mixer-ai/internal/market"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// MaxNotifiedDeals caps how many listings one notification reports.
const MaxNotifiedDeals = 5

// Notifier sends run results to a fixed Telegram chat.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewFromEnv builds a Notifier from TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID.
// Returns (nil, nil) when either variable is unset, so notification stays
// opt-in.
func NewFromEnv() (*Notifier, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatIDStr := os.Getenv("TELEGRAM_CHAT_ID")
	if token == "" || chatIDStr == "" {
		return nil, nil
	}

	chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Notifier{bot: bot, chatID: chatID}, nil
}

// SendTopDeals sends one message listing the highest scored good deals. Deals
// without an analysis are ignored.
func (n *Notifier) SendTopDeals(intent string, listings []market.Listing) error {
	deals := goodDeals(listings)
	if len(deals) == 0 {
		log.Debug().Msg("no good deals to notify")
		return nil
	}
	if len(deals) > MaxNotifiedDeals {
		deals = deals[:MaxNotifiedDeals]
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔔 *Bonnes affaires:* \"%s\"\n\n", escapeMarkdown(intent)))
	for _, l := range deals {
		sb.WriteString(fmt.Sprintf("*%s*\n", escapeMarkdown(l.Name)))
		if l.PriceKnown {
			sb.WriteString(fmt.Sprintf("💰 %s %s\n", l.Price.String(), l.Currency))
		}
		sb.WriteString(fmt.Sprintf("⭐ %d/10, %s\n", l.Analysis.DealScore, escapeMarkdown(l.Analysis.Recommendation)))
		if l.URL != "" {
			sb.WriteString(l.URL + "\n")
		}
		sb.WriteString("\n")
	}

	msg := tgbotapi.NewMessage(n.chatID, sb.String())
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	log.Debug().Int("deals", len(deals)).Msg("notification sent")
	return nil
}

// goodDeals filters to analyzed good deals, best score first.
func goodDeals(listings []market.Listing) []market.Listing {
	var deals []market.Listing
	for _, l := range listings {
		if l.Analysis != nil && l.Analysis.IsGoodDeal {
			deals = append(deals, l)
		}
	}
	sort.SliceStable(deals, func(i, j int) bool {
		return deals[i].Analysis.DealScore > deals[j].Analysis.DealScore
	})
	return deals
}

func escapeMarkdown(text string) string {
	text = strings.ReplaceAll(text, "*", "\\*")
	text = strings.ReplaceAll(text, "_", "\\_")
	text = strings.ReplaceAll(text, "`", "\\`")
	text = strings.ReplaceAll(text, "[", "\\[")
	return text
}
