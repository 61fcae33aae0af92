// Package alert sends best-effort outcome notifications to a chat webhook.
// Delivery failures are logged and swallowed: a broken webhook must never
// fail or re-enter the ingestion path.
package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// maxFieldLen bounds every formatted field to respect webhook limits.
const maxFieldLen = 1500

// Options qualify a notification.
type Options struct {
	Severity  string
	Component string
	Extra     map[string]any
	Err       error
}

type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     *slog.Logger
}

// NewNotifier builds a notifier for the given webhook URL. An empty URL
// yields a no-op notifier.
func NewNotifier(webhookURL string, logger *slog.Logger) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Notify posts one message. It never returns an error; failures are only
// logged locally.
func (n *Notifier) Notify(message string, opts Options) {
	if n.webhookURL == "" {
		return
	}

	severity := strings.ToUpper(opts.Severity)
	if severity == "" {
		severity = "INFO"
	}

	var lines []string
	head := fmt.Sprintf("**%s** ", severity)
	if opts.Component != "" {
		head += "[" + opts.Component + "] "
	}
	lines = append(lines, head+truncate(message))

	if opts.Err != nil {
		lines = append(lines, "Error: "+truncate(opts.Err.Error()))
	}
	keys := make([]string, 0, len(opts.Extra))
	for k := range opts.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, truncate(fmt.Sprint(opts.Extra[k]))))
	}

	body, err := json.Marshal(map[string]string{"content": strings.Join(lines, "\n")})
	if err != nil {
		n.logger.Error("alert payload marshal failed", "error", err)
		return
	}

	resp, err := n.client.Post(n.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		// Last resort: log locally, never alert about a failed alert.
		n.logger.Error("alert send failed", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.logger.Error("alert send rejected", "status", resp.StatusCode)
	}
}

// truncate caps a field at maxFieldLen bytes without splitting a UTF-8
// rune; error messages regularly carry umlauts.
func truncate(s string) string {
	if len(s) <= maxFieldLen {
		return s
	}
	cut := maxFieldLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
