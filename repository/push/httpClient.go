package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"bookswap/model"
	"bookswap/util/httpx"
)

type httpRepo struct {
	gatewayURL string
	apiKey     string
	client     *http.Client
}

// NewHTTP returns an adapter that relays notifications to an external
// push gateway (web push, device push — the gateway's business).
func NewHTTP(gatewayURL, apiKey string) Repo {
	return &httpRepo{gatewayURL: gatewayURL, apiKey: apiKey, client: httpx.Client()}
}

func (r *httpRepo) Push(ctx context.Context, userID int64, n *model.Notification) error {
	body := map[string]any{
		"user_id": userID,
		"notification": map[string]any{
			"id":         n.ID,
			"type":       n.Type,
			"message":    n.Message,
			"data":       n.Data,
			"created_at": n.CreatedAt,
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.gatewayURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.SetBasicAuth(r.apiKey, "")
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway: %s", resp.Status)
	}
	return nil
}
