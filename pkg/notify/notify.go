// Package notify posts a run summary to a Discord webhook. Notification
// failures are logged and swallowed; a backup never fails because the
// report could not be delivered.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/NDilbone/Backupper/pkg/plog"
	"github.com/NDilbone/Backupper/pkg/util"
)

// fieldValueLimit is Discord's maximum length for an embed field value.
const fieldValueLimit = 1024

// embed colors, Discord decimal RGB.
const (
	colorSuccess = 0x2ECC71
	colorWarning = 0xE67E22
)

// Summary carries the facts of a finished run into the notification.
type Summary struct {
	SourceDir   string
	SnapshotDir string
	Duration    time.Duration
	FilesCopied int64
	Failed      []string
	Incomplete  bool
}

// Notifier posts summaries to a single webhook URL. A zero-value URL
// disables it.
type Notifier struct {
	webhookURL string
	userID     int64
	client     *http.Client
}

func New(webhookURL string, userID int64) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		userID:     userID,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether a webhook is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.webhookURL != ""
}

// webhook payload structures, trimmed to the fields Discord needs.
type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type embed struct {
	Title  string       `json:"title"`
	Color  int          `json:"color"`
	Fields []embedField `json:"fields"`
}

type webhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []embed `json:"embeds"`
}

// Send posts the summary. Errors are logged, never returned, so callers
// treat notification as fire-and-forget.
func (n *Notifier) Send(ctx context.Context, s Summary) {
	if !n.Enabled() {
		return
	}
	if err := n.post(ctx, buildPayload(n.userID, s)); err != nil {
		plog.Warn("Failed to deliver notification", "error", err)
	}
}

func buildPayload(userID int64, s Summary) webhookPayload {
	e := embed{
		Title: "Backup finished",
		Color: colorSuccess,
		Fields: []embedField{
			{Name: "Source", Value: s.SourceDir, Inline: true},
			{Name: "Snapshot", Value: s.SnapshotDir, Inline: true},
			{Name: "Duration", Value: util.FormatDuration(s.Duration)},
			{Name: "Files copied", Value: strconv.FormatInt(s.FilesCopied, 10), Inline: true},
		},
	}

	var content string
	if len(s.Failed) > 0 || s.Incomplete {
		e.Title = "Backup finished with problems"
		e.Color = colorWarning
		if userID != 0 {
			content = fmt.Sprintf("<@%d>", userID)
		}
	}
	if s.Incomplete {
		e.Fields = append(e.Fields, embedField{
			Name:  "Warning",
			Value: "Some copy workers were still running when the run timed out.",
		})
	}
	if len(s.Failed) > 0 {
		e.Fields = append(e.Fields, embedField{
			Name:  fmt.Sprintf("Failed files (%d)", len(s.Failed)),
			Value: truncate(strings.Join(s.Failed, "\n"), fieldValueLimit),
		})
	}

	return webhookPayload{Content: content, Embeds: []embed{e}}
}

// truncate shortens s to at most limit characters, marking the cut.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	const marker = "\n..."
	return s[:limit-len(marker)] + marker
}

func (n *Notifier) post(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(snippet))
	}
	return nil
}
