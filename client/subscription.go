package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
)

// subscription reads the SSE status stream for one org and feeds full
// snapshots into the reconciler.
type subscription struct {
	reconciler *Reconciler
	orgID      int64
	done       atomic.Bool
	cancel     context.CancelFunc
}

func newSubscription(r *Reconciler, orgID int64) *subscription {
	return &subscription{reconciler: r, orgID: orgID}
}

func (s *subscription) stopped() bool {
	return s.done.Load()
}

// stop makes teardown observable before the reader goroutine notices
func (s *subscription) stop() {
	s.done.Store(true)
	if s.cancel != nil {
		s.cancel()
	}
}

// start opens the stream and consumes events until stop or context cancel.
// Connection errors end the subscription but leave the cache intact.
func (s *subscription) start(ctx context.Context) error {
	// Make stop effective from here on, even when it raced the setup.
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	if s.stopped() {
		cancel()
		return nil
	}

	query := url.Values{"org_id": {strconv.FormatInt(s.orgID, 10)}}
	target := s.reconciler.client.BaseURL() + "/user/instance/stream?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.reconciler.client.httpClient.Do(req)
	if err != nil {
		cancel()
		return err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		if resp.StatusCode == http.StatusUnauthorized {
			s.reconciler.client.notifyUnauthorized()
		}
		return &APIError{Status: resp.StatusCode, Message: "stream rejected"}
	}

	go s.consume(resp)
	return nil
}

// consume parses the SSE framing: data lines accumulate until a blank line
// dispatches the event. Comments (heartbeats) and retry hints are skipped.
func (s *subscription) consume(resp *http.Response) {
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		if s.stopped() {
			return
		}

		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				s.dispatch(data.String())
				data.Reset()
			}
		case strings.HasPrefix(line, ":"):
			// heartbeat
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// retry hints and unknown fields are ignored
		}
	}
}

// dispatch decodes one event payload. Malformed events are logged and
// dropped; they never clear or corrupt the cache.
func (s *subscription) dispatch(payload string) {
	var snap InstanceSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		log.Printf("⚠️ Dropping malformed status event for org %d: %v", s.orgID, err)
		return
	}

	s.reconciler.applyPush(s, &snap)
}
