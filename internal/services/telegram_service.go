package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/lifecycle"
	"github.com/example/storefront/internal/models"
)

const defaultTelegramURL = "https://api.telegram.org"

// TelegramService sends admin notifications through a Telegram bot.
type TelegramService struct {
	baseURL     string
	botToken    string
	adminChatID string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewTelegramService creates a new TelegramService. An empty baseURL targets the public Bot API.
func NewTelegramService(baseURL, botToken, adminChatID string, log *zap.Logger) *TelegramService {
	if baseURL == "" {
		baseURL = defaultTelegramURL
	}
	return &TelegramService{
		baseURL:     strings.TrimRight(baseURL, "/"),
		botToken:    botToken,
		adminChatID: adminChatID,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      log,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" {
		s.logger.Debug("telegram bot token not configured")
		return nil
	}

	body, err := json.Marshal(telegramMessage{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("failed to send telegram message", zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("unexpected telegram status", zap.Int("status", resp.StatusCode))
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s.adminChatID == "" {
		s.logger.Debug("telegram admin chat not configured")
		return nil
	}
	return s.SendMessage(ctx, s.adminChatID, text)
}

// FormatPrice formats an amount with thousand separators and the currency code.
func FormatPrice(amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = "VND"
	}

	whole := amount.Truncate(0)
	digits := whole.Abs().String()

	var b strings.Builder
	if amount.IsNegative() {
		b.WriteByte('-')
	}
	for i, digit := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	if frac := amount.Sub(whole).Abs(); !frac.IsZero() {
		b.WriteString(strings.TrimPrefix(frac.StringFixed(2), "0"))
	}
	return b.String() + " " + strings.ToUpper(currency)
}

var paymentMethodLabels = map[lifecycle.PaymentMethod]string{
	lifecycle.MethodCOD:    "Cash on delivery",
	lifecycle.MethodStripe: "Card (Stripe)",
	lifecycle.MethodMomo:   "MoMo transfer",
}

// NotifyNewOrder sends notification about new order to admin chat.
func (s *TelegramService) NotifyNewOrder(ctx context.Context, order *models.Order) error {
	var items strings.Builder
	for i, item := range order.Items {
		fmt.Fprintf(&items, "%d. <b>%s</b>\n   %d x %s = %s\n",
			i+1,
			html.EscapeString(item.ProductName),
			item.Quantity,
			FormatPrice(item.Price, order.Currency),
			FormatPrice(item.LineTotal(), order.Currency),
		)
	}

	addr := order.DeliveryAddress
	message := fmt.Sprintf(`<b>🛒 NEW ORDER</b>
<b>Order:</b> %s
<b>Customer:</b> %s
<b>Phone:</b> %s
<b>Address:</b> %s
<b>Items:</b>
%s
<b>Total:</b> %s
<b>Payment:</b> %s`,
		order.OrderNumber,
		html.EscapeString(addr.FullName),
		html.EscapeString(addr.Phone),
		html.EscapeString(joinNonEmpty(addr.Street, addr.WardName, addr.DistrictName, addr.ProvinceName)),
		items.String(),
		FormatPrice(order.TotalAmount, order.Currency),
		paymentMethodLabels[order.PaymentMethod],
	)

	return s.SendToAdmin(ctx, strings.TrimSpace(message))
}

// NotifyManualTransfer tells admins a customer reports having sent a MoMo transfer.
func (s *TelegramService) NotifyManualTransfer(ctx context.Context, order *models.Order) error {
	message := fmt.Sprintf(`<b>💸 MOMO TRANSFER REPORTED</b>
<b>Order:</b> %s
<b>Amount:</b> %s
<b>Note:</b> %s
Please verify the transfer and update the payment status.`,
		order.OrderNumber,
		FormatPrice(order.TotalAmount, order.Currency),
		html.EscapeString(order.MomoTransferNote),
	)

	return s.SendToAdmin(ctx, strings.TrimSpace(message))
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
