package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// APIClient calls the tournament site's internal matches endpoint. The
// endpoint is what the event page's own script calls once the embedded
// app boots, so it is only tried after the embedded app root is detected.
type APIClient struct {
	http    *resty.Client
	baseURL string
}

// NewAPIClient builds a client for the internal API rooted at baseURL,
// e.g. "https://tv.dartconnect.com".
func NewAPIClient(baseURL string) *APIClient {
	httpClient := resty.New()
	httpClient.SetTimeout(30 * time.Second)
	httpClient.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	httpClient.SetHeader("Accept", "application/json")
	httpClient.SetHeader("X-Requested-With", "XMLHttpRequest")
	return &APIClient{http: httpClient, baseURL: baseURL}
}

// EventMatches fetches the raw matches document for an event. Single
// attempt, no retry; the caller falls through to weaker discovery
// strategies on failure.
func (c *APIClient) EventMatches(ctx context.Context, eventID string) (json.RawMessage, error) {
	apiURL := fmt.Sprintf("%s/api/event/%s/matches", c.baseURL, eventID)
	resp, err := c.http.R().SetContext(ctx).Post(apiURL)
	if err != nil {
		return nil, fmt.Errorf("calling matches API: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("matches API returned status %d", resp.StatusCode())
	}
	return json.RawMessage(resp.Body()), nil
}

// completedMatches digs the "completed matches" collection out of the
// API's nested response. The standard shape is
// {"status":"OK","payload":{"completed":[...]}} but older responses used
// other top-level keys, so several are probed before giving up.
func completedMatches(raw json.RawMessage) []map[string]any {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		// The whole response may itself be the match array.
		var direct []map[string]any
		if err := json.Unmarshal(raw, &direct); err == nil {
			return direct
		}
		return nil
	}

	if payloadRaw, ok := envelope["payload"]; ok {
		var payload map[string]json.RawMessage
		if err := json.Unmarshal(payloadRaw, &payload); err == nil {
			if records := matchList(payload["completed"]); len(records) > 0 {
				return records
			}
		}
	}

	for _, key := range []string{"matches", "data", "match", "items"} {
		if records := matchList(envelope[key]); len(records) > 0 {
			return records
		}
	}
	return nil
}

func matchList(raw json.RawMessage) []map[string]any {
	if raw == nil {
		return nil
	}
	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err == nil {
		return records
	}
	var single map[string]any
	if err := json.Unmarshal(raw, &single); err == nil {
		return []map[string]any{single}
	}
	return nil
}

// stringField returns the first non-empty string among the named keys of
// a loosely-typed match record. Numeric values are stringified, since the
// feed is inconsistent about identifier types.
func stringField(record map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := record[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
