// Package status delivers job status updates to the results backend.
//
// Delivery is fire-and-forget: a failed post is logged and counted but
// never retried, and callers never treat it as fatal. The backend's
// at-least-one-terminal-update contract is satisfied by the supervisor
// attempting exactly one terminal post per job.
package status

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/compmat-es/scrunner/internal/metrics"
	"github.com/compmat-es/scrunner/internal/observability"
)

// Status is a job status value understood by the backend.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Update is a single status report. Updates are value types constructed
// fresh for every call and never persisted.
type Update struct {
	ProjectID string
	Status    Status
}

// Reporter posts status updates for one job to one backend.
type Reporter struct {
	backendURL string
	token      string
	client     *http.Client
	log        *zap.Logger
}

// NewReporter creates a reporter for the given backend and credential.
func NewReporter(backendURL, token string) *Reporter {
	return &Reporter{
		backendURL: strings.TrimRight(strings.TrimSpace(backendURL), "/"),
		token:      token,
		client:     &http.Client{Timeout: 15 * time.Second},
		log:        observability.Logger.Named("status"),
	}
}

// Send posts one status update.
//
// Any transport error or non-2xx response is logged and returned, but
// callers are expected to drop the error: delivery is best-effort for
// intermediate updates and attempt-once for terminal ones.
func (r *Reporter) Send(ctx context.Context, u Update) error {
	err := r.post(ctx, u)
	if err != nil {
		metrics.StatusUpdates.WithLabelValues(string(u.Status), metrics.ResultError).Inc()
		r.log.Warn("status update failed",
			zap.String("project_id", u.ProjectID),
			zap.String("status", string(u.Status)),
			zap.Error(err))
		return err
	}
	metrics.StatusUpdates.WithLabelValues(string(u.Status), metrics.ResultOK).Inc()
	r.log.Info("status update sent",
		zap.String("project_id", u.ProjectID),
		zap.String("status", string(u.Status)))
	return nil
}

func (r *Reporter) post(ctx context.Context, u Update) error {
	if u.ProjectID == "" {
		return fmt.Errorf("project id is required")
	}

	body, err := json.Marshal(map[string]string{"status": string(u.Status)})
	if err != nil {
		return fmt.Errorf("marshal status body: %w", err)
	}

	url := fmt.Sprintf("%s/resultupload/%s/", r.backendURL, u.ProjectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+r.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("post status: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("backend rejected status update: %s", resp.Status)
	}
	return nil
}
