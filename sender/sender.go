package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kashee337/ac_store/model"
)

// MakePendingReport formats the contests still waiting for a rating pass.
func MakePendingReport(now time.Time, contest_ids []string) string {
	header := fmt.Sprintf("[%s]\n%d contests are waiting for rating\n", now.Format("2006-01-02"), len(contest_ids))
	var body strings.Builder
	for _, id := range contest_ids {
		fmt.Fprintf(&body, "%s: https://atcoder.jp/contests/%s\n", id, id)
	}
	return header + body.String()
}

// Notify posts text to a Slack-compatible incoming webhook.
func Notify(ctx context.Context, client *http.Client, webhook_url string, text string) error {
	if client == nil {
		client = http.DefaultClient
	}
	data, err := json.Marshal(model.Payload{Text: text})
	if err != nil {
		return err
	}
	form := url.Values{"payload": {string(data)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook_url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return fmt.Errorf("post webhook: unexpected status %s", res.Status)
	}
	return nil
}
