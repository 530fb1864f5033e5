package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Clock supplies the current time for authenticator codes.
type Clock interface {
	Now() time.Time
}

// TimeSync estimates the offset between the local clock and the
// servers' clocks from their HTTP Date headers. Authenticator codes are
// only accepted within a short window, so a drifting local clock is
// enough to fail sign-in.
type TimeSync struct {
	hosts  []string
	client *http.Client
	log    *logrus.Entry
	offset time.Duration
	synced bool
}

func NewTimeSync(hosts []string, log *logrus.Entry) *TimeSync {
	return &TimeSync{
		hosts:  hosts,
		client: &http.Client{Timeout: 5 * time.Second},
		log:    log.WithField("component", "timesync"),
	}
}

// Sync averages the offset over every host that answered.
func (ts *TimeSync) Sync(ctx context.Context) error {
	var totalOffset time.Duration
	successCount := 0

	for _, host := range ts.hosts {
		offset, err := ts.getTimeOffset(ctx, host)
		if err != nil {
			ts.log.WithError(err).WithField("host", host).Debug("time sync failed")
			continue
		}

		totalOffset += offset
		successCount++
		ts.log.WithFields(logrus.Fields{"host": host, "offset": offset}).Debug("time offset measured")
	}

	if successCount == 0 {
		return fmt.Errorf("failed to sync time with any of %d hosts", len(ts.hosts))
	}

	ts.offset = totalOffset / time.Duration(successCount)
	ts.synced = true
	return nil
}

func (ts *TimeSync) getTimeOffset(ctx context.Context, url string) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}

	beforeRequest := time.Now()
	resp, err := ts.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	afterRequest := time.Now()

	dateHeader := resp.Header.Get("Date")
	if dateHeader == "" {
		return 0, fmt.Errorf("no Date header in response")
	}

	serverTime, err := http.ParseTime(dateHeader)
	if err != nil {
		return 0, fmt.Errorf("failed to parse Date header: %w", err)
	}

	// The server stamped the response roughly half a round trip in.
	latency := afterRequest.Sub(beforeRequest) / 2
	return serverTime.Sub(beforeRequest.Add(latency)), nil
}

// Now returns local time corrected by the measured offset, or plain local
// time before a successful Sync.
func (ts *TimeSync) Now() time.Time {
	if !ts.synced {
		return time.Now()
	}
	return time.Now().Add(ts.offset)
}

func (ts *TimeSync) IsSynced() bool {
	return ts.synced
}

func (ts *TimeSync) GetOffset() time.Duration {
	return ts.offset
}
