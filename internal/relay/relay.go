// Package relay is a minimal NIP-01 websocket client implementing
// capability.Network (spec.md §1 lists relay transport as an external
// collaborator the core only needs through that narrow interface).
// It exists so the relay-transport dependency the teacher would reach
// for a transport library has a real home here too: one connection per
// call, opened and closed around the single publish or query it serves,
// matching the capability's "one relay at a time per call" contract.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/make-os/nostrgit/internal/capability"
	"github.com/make-os/nostrgit/internal/eventmodel"
)

// Client is the production capability.Network: a thin NIP-01 websocket
// client, one short-lived connection per Publish/Query call.
type Client struct {
	// DialTimeout bounds the websocket handshake. Zero means no bound
	// beyond ctx.
	DialTimeout time.Duration
}

var _ capability.Network = (*Client)(nil)

func (c *Client) dial(ctx context.Context, relayURL string) (*websocket.Conn, error) {
	dialer := websocket.DefaultDialer
	if c.DialTimeout > 0 {
		dialer = &websocket.Dialer{HandshakeTimeout: c.DialTimeout}
	}
	conn, _, err := dialer.DialContext(ctx, relayURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", relayURL, err)
	}
	return conn, nil
}

// Publish sends ev to relayURL as a NIP-01 ["EVENT", ev] message and
// waits for the matching ["OK", id, accepted, message] response.
func (c *Client) Publish(ctx context.Context, relayURL string, ev *eventmodel.Event) error {
	conn, err := c.dial(ctx, relayURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(dl)
		_ = conn.SetReadDeadline(dl)
	}

	msg, err := json.Marshal([2]interface{}{"EVENT", ev})
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", relayURL, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read OK from %s: %w", relayURL, err)
		}
		var frame []json.RawMessage
		if err := json.Unmarshal(raw, &frame); err != nil || len(frame) < 3 {
			continue
		}
		var kind string
		if err := json.Unmarshal(frame[0], &kind); err != nil || kind != "OK" {
			continue
		}
		var id string
		_ = json.Unmarshal(frame[1], &id)
		if id != ev.ID {
			continue
		}
		var accepted bool
		_ = json.Unmarshal(frame[2], &accepted)
		if !accepted {
			var reason string
			if len(frame) > 3 {
				_ = json.Unmarshal(frame[3], &reason)
			}
			return fmt.Errorf("relay %s rejected event %s: %s", relayURL, ev.ID, reason)
		}
		return nil
	}
}

// nip01Filter is the wire shape of a NIP-01 REQ filter.
type nip01Filter struct {
	IDs     []string            `json:"ids,omitempty"`
	Authors []string            `json:"authors,omitempty"`
	Kinds   []int               `json:"kinds,omitempty"`
	Since   *int64              `json:"since,omitempty"`
	Until   *int64              `json:"until,omitempty"`
	Limit   int                 `json:"limit,omitempty"`
	Extra   map[string][]string `json:"-"`
}

func (f nip01Filter) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{}
	if len(f.IDs) > 0 {
		m["ids"] = f.IDs
	}
	if len(f.Authors) > 0 {
		m["authors"] = f.Authors
	}
	if len(f.Kinds) > 0 {
		m["kinds"] = f.Kinds
	}
	if f.Since != nil {
		m["since"] = *f.Since
	}
	if f.Until != nil {
		m["until"] = *f.Until
	}
	if f.Limit > 0 {
		m["limit"] = f.Limit
	}
	for k, v := range f.Extra {
		m["#"+k] = v
	}
	return json.Marshal(m)
}

func toNIP01Filter(f capability.Filter) nip01Filter {
	out := nip01Filter{IDs: f.IDs, Authors: f.Authors, Limit: f.Limit}
	for _, k := range f.Kinds {
		out.Kinds = append(out.Kinds, int(k))
	}
	if f.Since != nil {
		s := f.Since.Unix()
		out.Since = &s
	}
	if f.Until != nil {
		u := f.Until.Unix()
		out.Until = &u
	}
	if len(f.Tags) > 0 {
		out.Extra = f.Tags
	}
	return out
}

// Query opens a subscription against relayURL, collects every EVENT
// until EOSE (or ctx expires), then closes the subscription.
func (c *Client) Query(ctx context.Context, relayURL string, filter capability.Filter) ([]*eventmodel.Event, error) {
	conn, err := c.dial(ctx, relayURL)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(dl)
		_ = conn.SetReadDeadline(dl)
	}

	subID := fmt.Sprintf("nostrgit-%d", time.Now().UnixNano())
	req, err := json.Marshal([3]interface{}{"REQ", subID, toNIP01Filter(filter)})
	if err != nil {
		return nil, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, req); err != nil {
		return nil, fmt.Errorf("query %s: %w", relayURL, err)
	}
	defer func() {
		closeMsg, _ := json.Marshal([2]interface{}{"CLOSE", subID})
		_ = conn.WriteMessage(websocket.TextMessage, closeMsg)
	}()

	var events []*eventmodel.Event
	for {
		select {
		case <-ctx.Done():
			return events, ctx.Err()
		default:
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return events, nil
		}
		var frame []json.RawMessage
		if err := json.Unmarshal(raw, &frame); err != nil || len(frame) < 2 {
			continue
		}
		var kind string
		if err := json.Unmarshal(frame[0], &kind); err != nil {
			continue
		}
		switch kind {
		case "EVENT":
			if len(frame) < 3 {
				continue
			}
			var ev eventmodel.Event
			if err := json.Unmarshal(frame[2], &ev); err != nil {
				continue
			}
			events = append(events, &ev)
		case "EOSE":
			return events, nil
		case "NOTICE", "CLOSED":
			continue
		}
	}
}
