// Package eventsapi polls the tip-events feed and turns tip events into work
// for the request pipeline.
package eventsapi

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/valyala/fastjson"
)

// maxRecentEvents bounds the buffer of raw events kept for the dashboard.
const maxRecentEvents = 500

// tipBuffer is the capacity of the outbound tip channel. Tips are dropped
// with a log line when the processor falls this far behind.
const tipBuffer = 1000

// TipEvent is a single qualifying tip from the feed.
type TipEvent struct {
	Username string
	Tokens   int
	Message  string
	TS       time.Time
}

// RecentEvent is any event seen on the feed, kept for the dashboard.
type RecentEvent struct {
	TS     time.Time `json:"ts"`
	Method string    `json:"method"`
	Raw    string    `json:"raw"`
}

// Client polls the events feed following the nextUrl cursor.
type Client struct {
	http     *http.Client
	startURL string
	rpm      int
	log      *log.Logger

	tips chan TipEvent

	mu      sync.Mutex
	recent  []RecentEvent
	nextURL string
}

// NewClient builds a polling client. httpClient carries the request timeout.
// rpm is the feed's max requests per minute; the poll interval is derived
// from a tenth of that budget.
func NewClient(httpClient *http.Client, startURL string, rpm int, logger *log.Logger) *Client {
	return &Client{
		http:     httpClient,
		startURL: startURL,
		rpm:      rpm,
		log:      logger,
		tips:     make(chan TipEvent, tipBuffer),
	}
}

// Tips is the channel of qualifying tip events.
func (c *Client) Tips() <-chan TipEvent {
	return c.tips
}

// Recent returns up to limit recently seen events, newest first. limit <= 0
// returns all.
func (c *Client) Recent(limit int) []RecentEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.recent)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]RecentEvent, 0, n)
	for i := len(c.recent) - 1; i >= len(c.recent)-n; i-- {
		out = append(out, c.recent[i])
	}
	return out
}

// PollInterval derives the wait between polls from the feed's request
// budget, using a tenth of the allowed requests per minute.
func (c *Client) PollInterval() time.Duration {
	rpm := c.rpm
	if rpm < 10 {
		rpm = 10
	}
	return time.Duration(60 / (float64(rpm) / 10) * float64(time.Second))
}

// Run polls until ctx is cancelled. Poll errors are logged and retried on
// the next tick; the cursor is kept so no events are skipped.
func (c *Client) Run(ctx context.Context) {
	var p fastjson.Parser
	ticker := time.NewTicker(c.PollInterval())
	defer ticker.Stop()
	for {
		if err := c.poll(ctx, &p); err != nil && ctx.Err() == nil {
			c.log.Printf("events poll: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Client) poll(ctx context.Context, p *fastjson.Parser) error {
	c.mu.Lock()
	url := c.nextURL
	c.mu.Unlock()
	if url == "" {
		url = c.startURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("events feed returned %s", res.Status)
	}

	v, err := p.ParseBytes(body)
	if err != nil {
		return fmt.Errorf("events feed returned non-json: %w", err)
	}
	if next := string(v.GetStringBytes("nextUrl")); next != "" {
		c.mu.Lock()
		c.nextURL = next
		c.mu.Unlock()
	}

	now := time.Now()
	for _, e := range v.GetArray("events") {
		method := string(e.GetStringBytes("method"))
		c.remember(RecentEvent{TS: now, Method: method, Raw: string(e.MarshalTo(nil))})
		if method != "tip" {
			continue
		}
		tip := TipEvent{
			Username: string(e.GetStringBytes("object", "user", "username")),
			Tokens:   e.GetInt("object", "tip", "tokens"),
			Message:  string(e.GetStringBytes("object", "tip", "message")),
			TS:       now,
		}
		select {
		case c.tips <- tip:
		default:
			c.log.Printf("tip backlog full, dropping tip from %s", tip.Username)
		}
	}
	return nil
}

func (c *Client) remember(e RecentEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recent = append(c.recent, e)
	if len(c.recent) > maxRecentEvents {
		c.recent = c.recent[len(c.recent)-maxRecentEvents:]
	}
}
