// Package export ships completed fee comparisons to a webhook endpoint for
// dashboards and alerting.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/yourorg/bridge-fee-tracker/internal/compare"
)

// Config holds configuration for comparison exporting
type Config struct {
	// Enabled turns the exporter on; a zero Config yields an inert exporter
	Enabled bool `json:"enabled"`

	// WebhookURL receives batched comparisons as JSON POSTs
	WebhookURL string `json:"webhook_url"`

	// APIKey is sent as a bearer token when set
	APIKey string `json:"api_key,omitempty"`

	// Interval between periodic flushes
	Interval time.Duration `json:"interval"`

	// BatchSize triggers an immediate flush once reached
	BatchSize int `json:"batch_size"`
}

// Exporter batches comparisons and posts them to the configured webhook. It
// flushes on a timer and immediately once the batch is full.
type Exporter struct {
	config     Config
	httpClient *http.Client

	mutex      sync.Mutex
	batch      []compare.Comparison
	lastExport time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// payload is the JSON body sent to the webhook.
type payload struct {
	Comparisons []compare.Comparison `json:"comparisons"`
	ExportTime  string               `json:"export_time"`
	Count       int                  `json:"count"`
}

// New creates an exporter. With Enabled false it returns an inert exporter
// whose methods are all no-ops.
func New(cfg Config) *Exporter {
	if !cfg.Enabled {
		return &Exporter{config: cfg}
	}

	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = 10 * time.Second

	e := &Exporter{
		config:     cfg,
		httpClient: retryClient.StandardClient(),
		batch:      make([]compare.Comparison, 0, cfg.BatchSize),
		done:       make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	go e.periodicFlush(ctx)

	logrus.Infof("Comparison exporter initialized, flushing every %s", cfg.Interval)
	return e
}

// Add queues a comparison for export. A full batch is flushed immediately.
func (e *Exporter) Add(c compare.Comparison) {
	if !e.config.Enabled {
		return
	}

	e.mutex.Lock()
	e.batch = append(e.batch, c)
	full := len(e.batch) >= e.config.BatchSize
	e.mutex.Unlock()

	if full {
		go e.Flush()
	}
}

// Flush posts the current batch to the webhook. Failed batches are dropped
// after logging; the webhook is a best-effort sink, not a system of record.
func (e *Exporter) Flush() {
	if !e.config.Enabled {
		return
	}

	e.mutex.Lock()
	if len(e.batch) == 0 {
		e.mutex.Unlock()
		return
	}
	comparisons := make([]compare.Comparison, len(e.batch))
	copy(comparisons, e.batch)
	e.batch = e.batch[:0]
	e.lastExport = time.Now()
	e.mutex.Unlock()

	if err := e.post(comparisons); err != nil {
		logrus.Errorf("Failed to export %d comparisons: %v", len(comparisons), err)
		return
	}
	logrus.Debugf("Exported %d comparisons to webhook", len(comparisons))
}

// Stop cancels the periodic flush and exports any remaining comparisons.
func (e *Exporter) Stop() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
	e.Flush()
}

// Status returns the current state of the exporter for the status endpoint.
func (e *Exporter) Status() map[string]interface{} {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	status := map[string]interface{}{
		"enabled":       e.config.Enabled,
		"batch_size":    e.config.BatchSize,
		"interval":      e.config.Interval.String(),
		"current_batch": len(e.batch),
	}
	if !e.lastExport.IsZero() {
		status["last_export"] = e.lastExport.Format(time.RFC3339)
	}
	return status
}

// periodicFlush runs the background flush loop until the exporter is stopped.
func (e *Exporter) periodicFlush(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func (e *Exporter) post(comparisons []compare.Comparison) error {
	body, err := json.Marshal(payload{
		Comparisons: comparisons,
		ExportTime:  time.Now().UTC().Format(time.RFC3339),
		Count:       len(comparisons),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal comparisons: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, e.config.WebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.config.APIKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned error status: %d", resp.StatusCode)
	}
	return nil
}
