// Package inspect answers questions about the live state of a connected app
// from its latest snapshot, evaluating expressions and fetching widget
// properties on the app when the snapshot is not enough.
package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"wavepulse/internal/client"
	"wavepulse/internal/config"
	"wavepulse/internal/logging"
	"wavepulse/internal/router"
	"wavepulse/internal/snapshot"
)

// Outbound message types sent to the app.
const (
	KindEval  = "eval"
	KindProps = "props"
)

// ErrNotConnected is returned by a Notifier when no app listens on a channel.
var ErrNotConnected = errors.New("no app connected on channel")

// Message is a request sent to the app over its channel.
type Message struct {
	Type       string `json:"type"`
	RequestID  string `json:"requestId"`
	Expression string `json:"expression,omitempty"`
	Widget     string `json:"widget,omitempty"`
}

// Notifier delivers messages to the app connected on a channel.
type Notifier interface {
	Send(ctx context.Context, channelID string, msg Message) error
}

// NoSnapshotMessage is the answer when the channel has no snapshot yet.
const NoSnapshotMessage = "No live app state is available for this channel yet. " +
	"Open the app with the WavePulse agent connected, then ask again."

const maxRounds = 3

// Inspector is the UI-state sub-agent.
type Inspector struct {
	snapshots snapshot.Store[*snapshot.Snapshot]
	pending   *snapshot.Pending
	notifier  Notifier
	gen       client.Generator
	model     string
	temp      float32
	cfg       config.InspectConfig
}

// New creates an inspector.
func New(
	snapshots snapshot.Store[*snapshot.Snapshot],
	pending *snapshot.Pending,
	notifier Notifier,
	gen client.Generator,
	mc config.ModelConfig,
	cfg config.InspectConfig,
) *Inspector {
	return &Inspector{
		snapshots: snapshots,
		pending:   pending,
		notifier:  notifier,
		gen:       gen,
		model:     mc.Name,
		temp:      mc.Temperature,
		cfg:       cfg,
	}
}

// Evaluate runs expression in the app on channelID and waits for its result.
func (i *Inspector) Evaluate(ctx context.Context, channelID, expression string) (json.RawMessage, error) {
	return i.request(ctx, channelID, Message{Type: KindEval, Expression: expression}, i.cfg.EvalInterval, i.cfg.EvalAttempts)
}

// WidgetProperties fetches the properties and styles of widget from the app.
func (i *Inspector) WidgetProperties(ctx context.Context, channelID, widget string) (json.RawMessage, error) {
	return i.request(ctx, channelID, Message{Type: KindProps, Widget: widget}, i.cfg.PropsInterval, i.cfg.PropsAttempts)
}

func (i *Inspector) request(ctx context.Context, channelID string, msg Message, interval time.Duration, attempts int) (json.RawMessage, error) {
	if i.notifier == nil {
		return nil, ErrNotConnected
	}
	req := i.pending.Submit(channelID, msg.Type)
	msg.RequestID = req.ID
	if err := i.notifier.Send(ctx, channelID, msg); err != nil {
		i.pending.Cancel(req)
		return nil, fmt.Errorf("send %s request: %w", msg.Type, err)
	}
	return i.pending.Await(ctx, req, interval, attempts)
}

type action struct {
	Action     string `json:"action"`
	Answer     string `json:"answer"`
	Expression string `json:"expression"`
	Widget     string `json:"widget"`
}

// Answer responds to q from the snapshot of q.ChannelID. It never fails:
// every problem becomes part of the returned text.
func (i *Inspector) Answer(ctx context.Context, q router.Query) string {
	snap, ok := i.snapshots.Get(q.ChannelID)
	if !ok || snap == nil {
		return NoSnapshotMessage
	}

	var observations []string
	for round := 0; round < maxRounds; round++ {
		prompt := buildPrompt(q, snap, observations, round == maxRounds-1)
		text, err := i.gen.Generate(ctx, i.model, prompt, client.Options{Temperature: i.temp, JSON: true})
		if err != nil {
			logging.Warn("ui-state inspection failed", "channel", q.ChannelID, "error", err)
			return fmt.Sprintf("I couldn't inspect the app state: %v", err)
		}

		var a action
		if err := json.Unmarshal([]byte(client.StripCodeFence(text)), &a); err != nil {
			return strings.TrimSpace(text)
		}
		switch a.Action {
		case KindEval:
			observations = append(observations, i.observe(ctx, q.ChannelID, "eval "+a.Expression, func() (json.RawMessage, error) {
				return i.Evaluate(ctx, q.ChannelID, a.Expression)
			}))
		case KindProps:
			observations = append(observations, i.observe(ctx, q.ChannelID, "props "+a.Widget, func() (json.RawMessage, error) {
				return i.WidgetProperties(ctx, q.ChannelID, a.Widget)
			}))
		default:
			if strings.TrimSpace(a.Answer) != "" {
				return strings.TrimSpace(a.Answer)
			}
			return strings.TrimSpace(text)
		}
	}
	return "I couldn't reach a conclusion from the live app state. Observations:\n" + strings.Join(observations, "\n")
}

func (i *Inspector) observe(ctx context.Context, channelID, label string, fetch func() (json.RawMessage, error)) string {
	res, err := fetch()
	if err != nil {
		logging.Warn("app request failed", "channel", channelID, "request", label, "error", err)
		return fmt.Sprintf("- %s: failed (%v)", label, err)
	}
	return fmt.Sprintf("- %s: %s", label, truncate(string(res), 4000))
}
