package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultAPIBaseURL = "https://api.telegram.org"

type TelegramConfig struct {
	Token        string
	ChatIDs      []string // registration notices go here
	AlertChatIDs []string // worker alerts go here

	// overridable for tests
	APIBaseURL     string
	MaxAttempts    int
	InitialBackoff time.Duration
	HTTPClient     *http.Client
}

// TelegramNotifier fans a Markdown message out to every configured chat.
// A send attempt is all-or-nothing: if any chat fails, the whole fan-out
// is retried, including chats that already succeeded. That matches the
// observed upstream behavior; per-destination tracking would change it.
type TelegramNotifier struct {
	cfg TelegramConfig
	log *slog.Logger
}

func NewTelegramNotifier(cfg TelegramConfig, logger *slog.Logger) *TelegramNotifier {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &TelegramNotifier{cfg: cfg, log: logger}
}

func (n *TelegramNotifier) SendRegistrationNotice(ctx context.Context, notice RegistrationNotice) error {
	return n.sendWithRetry(ctx, n.cfg.ChatIDs, formatNotice(notice))
}

// SendAlert is single-shot: it runs on the worker's fatal path where
// retry loops would only delay the restart.
func (n *TelegramNotifier) SendAlert(ctx context.Context, subject string, cause error) error {
	targets := n.cfg.AlertChatIDs

	if len(targets) == 0 {
		targets = n.cfg.ChatIDs
	}

	return n.broadcast(ctx, targets, formatAlert(subject, cause))
}

// sendWithRetry makes up to MaxAttempts fan-outs with exponential backoff
// (1s, 2s, 4s by default) between them.
func (n *TelegramNotifier) sendWithRetry(ctx context.Context, chatIDs []string, text string) error {
	var lastErr error

	for attempt := 1; attempt <= n.cfg.MaxAttempts; attempt++ {
		lastErr = n.broadcast(ctx, chatIDs, text)

		if lastErr == nil {
			if attempt > 1 {
				n.log.Info("telegram send recovered", "attempt", attempt)
			}
			return nil
		}

		if attempt == n.cfg.MaxAttempts {
			break
		}

		delay := n.cfg.InitialBackoff << (attempt - 1)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("telegram: all %d attempts failed: %w", n.cfg.MaxAttempts, lastErr)
}

// broadcast sends the same message to every chat id concurrently and
// fails if any destination fails.
func (n *TelegramNotifier) broadcast(ctx context.Context, chatIDs []string, text string) error {
	if n.cfg.Token == "" || len(chatIDs) == 0 {
		n.log.Warn("telegram credentials not configured, skipping send")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, chatID := range chatIDs {
		g.Go(func() error {
			return n.sendMessage(gctx, chatID, text)
		})
	}

	return g.Wait()
}

func (n *TelegramNotifier) sendMessage(ctx context.Context, chatID, text string) error {
	payload, err := json.Marshal(map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "Markdown",
		"disable_web_page_preview": false,
	})

	if err != nil {
		return fmt.Errorf("telegram payload: %w", err)
	}

	endpoint := n.cfg.APIBaseURL + "/bot" + n.cfg.Token + "/sendMessage"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))

	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.cfg.HTTPClient.Do(req)

	if err != nil {
		return fmt.Errorf("telegram send to %s: %w", chatID, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram send to %s: HTTP %d: %s", chatID, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}

func formatNotice(d RegistrationNotice) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🆕 *PENDAFTAR BARU!*\n\n")
	fmt.Fprintf(&b, "No. Pendaftar: *%d / %d*\n", d.RegistrationNumber, d.MaxQuota)
	fmt.Fprintf(&b, "━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "👤 *DATA DIRI*\n")
	fmt.Fprintf(&b, "Nama: %s\n", d.Name)
	fmt.Fprintf(&b, "Email: %s\n", d.Email)
	fmt.Fprintf(&b, "WA: %s\n", d.Phone)
	fmt.Fprintf(&b, "Usia: %d th | Kota: %s\n", d.Age, d.City)
	fmt.Fprintf(&b, "IG: [%s](https://instagram.com/%s)\n", d.InstagramUsername, strings.TrimPrefix(d.InstagramUsername, "@"))
	fmt.Fprintf(&b, "History: %s\n\n", orDash(d.ParticipationHistory))
	fmt.Fprintf(&b, "👕 *ATRIBUT*\n")
	fmt.Fprintf(&b, "Ukuran Vest: *%s*\n\n", d.VestSize)
	fmt.Fprintf(&b, "📎 *LAMPIRAN*\n")
	fmt.Fprintf(&b, "• [Bukti Bayar (Link)](%s)\n", d.PaymentProofURL)
	fmt.Fprintf(&b, "━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "📅 %s", time.Now().Format("02/01/2006 15.04.05"))

	return b.String()
}

func formatAlert(subject string, cause error) string {
	msg := "unknown"

	if cause != nil {
		msg = cause.Error()
	}

	return fmt.Sprintf("🚨 *WORKER ERROR ALERT*\n\n"+
		"*Context:* %s\n"+
		"*Error:* %s\n"+
		"*Time:* %s\n\n"+
		"_Worker will attempt to recover or restart..._",
		subject, msg, time.Now().Format("02/01/2006 15.04.05"))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
