// Package relay drives one generation call end to end: it wraps the
// normalized request in the upstream envelope, sends it through the
// antigravity client, parses the upstream output into stream events, and
// feeds those to an outbound renderer. Account feedback (quota, disable)
// flows back through the dispatch error; callers release the account with
// the label Outcome derives from it.
package relay

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/cache"
	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/constants"
	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/events"
	"antigravity2api-go/internal/models"
	"antigravity2api-go/internal/translator"
)

// Transport is the slice of the upstream client the dispatcher uses.
// Both calls hand back the raw *http.Response; the dispatcher owns the body.
type Transport interface {
	Stream(ctx context.Context, payload []byte, accessToken string) (*http.Response, error)
	Generate(ctx context.Context, payload []byte, accessToken string) (*http.Response, error)
}

// Sink receives parsed stream events in upstream byte-arrival order. All
// translator stream renderers satisfy it.
type Sink interface {
	Render(ev translator.StreamEvent) error
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(ev translator.StreamEvent) error

func (f SinkFunc) Render(ev translator.StreamEvent) error { return f(ev) }

// Dispatcher owns the per-stream parsing state pools and the upstream
// transport. One instance serves all handlers.
type Dispatcher struct {
	cfg    *config.Manager
	client Transport
	stores *cache.Stores

	lines *cache.Pool
	calls *cache.Pool

	unsubs []func()
}

// New builds a dispatcher. hub may be nil; when present the object pools
// follow its pressure transitions.
func New(cfg *config.Manager, client Transport, stores *cache.Stores, hub *events.Hub) *Dispatcher {
	d := &Dispatcher{
		cfg:    cfg,
		client: client,
		stores: stores,
		lines: cache.NewPool(constants.LineBufferPoolCaps,
			func() any { return make([]byte, 0, constants.SSEScannerInitialBufferSize) },
			nil),
		calls: cache.NewPool(constants.ToolCallPoolCaps,
			func() any { return &toolCallList{calls: make([]translator.ToolCall, 0, 8)} },
			func(v any) { v.(*toolCallList).reset() }),
	}
	if hub != nil {
		d.unsubs = append(d.unsubs, d.lines.WatchPressure(hub), d.calls.WatchPressure(hub))
	}
	return d
}

// Close detaches the pools from the pressure hub.
func (d *Dispatcher) Close() {
	for _, unsub := range d.unsubs {
		unsub()
	}
	d.unsubs = nil
}

var (
	dataPrefix = []byte("data: ")
	doneMarker = []byte("[DONE]")
)

// Stream runs one streaming generation call against the given account
// snapshot and renders every parsed event into sink. The returned error is
// either an *errors.APIError ready for the client or a context error when
// the client went away.
func (d *Dispatcher) Stream(ctx context.Context, ireq *translator.InternalRequest, acct *models.Account, sink Sink) error {
	payload, err := translator.BuildEnvelope(ireq, acct, constants.InternalUserAgentField)
	if err != nil {
		return apperrors.New(http.StatusInternalServerError, "internal_error", "api_error",
			"failed to encode upstream request: "+err.Error())
	}

	resp, err := d.client.Stream(ctx, payload, acct.AccessToken)
	if err != nil {
		return transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return failFromResponse(resp)
	}
	return d.pump(ctx, resp.Body, ireq, acct, sink)
}

// Complete runs one non-streaming call and aggregates the upstream answer.
// The unary timeout comes from other.timeout; streaming calls deliberately
// carry none.
func (d *Dispatcher) Complete(ctx context.Context, ireq *translator.InternalRequest, acct *models.Account) (*translator.Completion, error) {
	payload, err := translator.BuildEnvelope(ireq, acct, constants.InternalUserAgentField)
	if err != nil {
		return nil, apperrors.New(http.StatusInternalServerError, "internal_error", "api_error",
			"failed to encode upstream request: "+err.Error())
	}

	if timeout := d.cfg.Get().Other.TimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := d.client.Generate(ctx, payload, acct.AccessToken)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, failFromResponse(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(ctx, err)
	}

	parser := d.newParser(ireq, acct)
	defer parser.release()

	comp := &translator.Completion{}
	absorb := func(ev translator.StreamEvent) error { comp.Absorb(ev); return nil }
	if err := parser.feed(bytes.TrimSpace(body), absorb); err != nil {
		return nil, err
	}
	if err := parser.finalize(absorb); err != nil {
		return nil, err
	}
	return comp, nil
}

// pump scans the upstream SSE body line by line and feeds data payloads to
// the parser. The scanner buffer comes from the line pool and goes back on
// every exit path; line slices stay valid only until the next Scan, which
// is fine because each payload is fully consumed before advancing.
func (d *Dispatcher) pump(ctx context.Context, body io.Reader, ireq *translator.InternalRequest, acct *models.Account, sink Sink) error {
	parser := d.newParser(ireq, acct)
	defer parser.release()

	buf := d.lines.Get().([]byte)
	defer d.lines.Put(buf)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(buf[:0], constants.SSEScannerMaxBufferSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || !bytes.HasPrefix(line, dataPrefix) {
			continue
		}
		data := bytes.TrimSpace(line[len(dataPrefix):])
		if bytes.EqualFold(data, doneMarker) {
			break
		}
		if !gjson.ValidBytes(data) {
			continue
		}
		if err := parser.feed(data, sink.Render); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return transportError(ctx, err)
	}
	return parser.finalize(sink.Render)
}

func (d *Dispatcher) newParser(ireq *translator.InternalRequest, acct *models.Account) *streamParser {
	sessionID := ireq.SessionID
	if sessionID == "" && acct != nil {
		sessionID = acct.SessionID
	}
	return &streamParser{
		stores:    d.stores,
		pool:      d.calls,
		list:      d.calls.Get().(*toolCallList),
		sessionID: sessionID,
		model:     ireq.Model,
	}
}

// transportError keeps context errors recognizable for the cancellation
// path and maps everything else onto the network taxonomy.
func transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return apperrors.MapNetworkError(err)
}
