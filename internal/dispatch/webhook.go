package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/taxi-dispatch/internal/models"
)

// Webhook posts events as JSON to an external endpoint, e.g. an admin
// alerting service.
type Webhook struct {
	Endpoint string
	Key      string
	Client   *http.Client
}

func NewWebhook(endpoint, key string) *Webhook {
	return &Webhook{Endpoint: endpoint, Key: key, Client: &http.Client{Timeout: 3 * time.Second}}
}

func (w *Webhook) Notify(target string, ev models.RideEvent) error {
	b, err := json.Marshal(map[string]interface{}{"target": target, "event": ev})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, w.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.Key != "" {
		req.Header.Set("Authorization", "Bearer "+w.Key)
	}
	resp, err := w.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
