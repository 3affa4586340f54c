// Package notify sends the best-effort completion callback to the
// backend API. Failures are logged and never retried; notification is
// not part of the pipeline's success criteria.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const requestTimeout = 5 * time.Second

// Notifier posts completion notifications for treated evaluations.
type Notifier struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// New creates a Notifier. An empty URL disables notification entirely.
func New(url string, log *logrus.Logger) *Notifier {
	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: requestTimeout},
		log:    log,
	}
}

// Completion notifies the backend that an evaluation's analysis is
// stored. Errors are absorbed after logging.
func (n *Notifier) Completion(ctx context.Context, evaluationID string) {
	if n.url == "" {
		return
	}

	body, err := json.Marshal(map[string]string{"recordId": evaluationID})
	if err != nil {
		n.log.WithError(err).Warn("completion notification not sent")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.log.WithError(err).Warn("completion notification not sent")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.WithError(err).WithField("record_id", evaluationID).Warn("completion notification failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.log.WithFields(logrus.Fields{
			"record_id": evaluationID,
			"status":    resp.StatusCode,
		}).Warn("completion notification rejected")
		return
	}

	n.log.WithField("record_id", evaluationID).Debug("completion notified")
}
