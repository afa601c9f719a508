// Package recorder implements the Recorder's capture pipeline (spec §4.7).
// Replay does not depend on this package — only on the Step schema the
// Recorder produces — but nothing in the spec's Non-goals excludes shipping
// a concrete capture implementation, and a working recorder is what exercises
// the Locator Bundle schema end to end. Grounded in the teacher's
// browser.InstallShadowInterceptor/EvalOnNewDocument injection pattern
// (internal/browser/shadow.go), generalized from a one-shot fingerprint
// shim into a persistent capture-phase event listener.
package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/google/uuid"
	"github.com/pharrisenterprises/replaycore/internal/browser"
	"github.com/pharrisenterprises/replaycore/internal/locator"
)

// RecordedEvent is what the capture pipeline emits per captured interaction
// — a Step still missing its post-replay fields (status/duration/error),
// plus the event's own id for host-side correlation.
type RecordedEvent struct {
	ID   string
	Step locator.Step
}

// Options configures the capture pipeline (a narrow slice of spec §6's
// config surface relevant to recording).
type Options struct {
	// IgnoreSelectors are CSS selectors whose matching elements are never
	// captured (spec §4.7b).
	IgnoreSelectors []string
	// InputDebounce is how long to wait after the last keystroke on one
	// element before flushing its input event (spec §4.7c).
	InputDebounce time.Duration
	// CaptureFocusBlur additionally captures focus/blur events.
	CaptureFocusBlur bool
}

// DefaultOptions mirrors the teacher pack's conservative recorder defaults:
// a short debounce and no focus/blur noise.
func DefaultOptions() Options {
	return Options{InputDebounce: 400 * time.Millisecond}
}

// captureInstallJS attaches capture-phase listeners for mousedown, input,
// keydown (Enter), change, and submit on the document of the page or frame
// it is evaluated in,
// buffering captured events (each as a JSON-encodable record with the raw
// DOM attributes the Go side turns into a locator.Bundle) onto a
// well-known global array the Go side polls via page.Eval. composedPath()
// is used to resolve the true target across shadow boundaries (spec
// §4.7a).
const captureInstallJS = `(ignoreSelectors, debounceMs, captureFocusBlur) => {
	if (window.__replaycoreCapture) return;
	window.__replaycoreCapture = { queue: [], timers: new Map() };

	function ignored(el) {
		for (const sel of ignoreSelectors) {
			if (el.matches && el.matches(sel)) return true;
		}
		return false;
	}

	function trueTarget(ev) {
		const path = ev.composedPath ? ev.composedPath() : [ev.target];
		return path[0] || ev.target;
	}

	function describeBundle(el) {
		const rect = el.getBoundingClientRect();
		const dataAttrs = {};
		for (const attr of el.attributes || []) {
			if (attr.name.startsWith('data-')) dataAttrs[attr.name.slice(5)] = attr.value;
		}
		const classes = el.className && typeof el.className === 'string'
			? el.className.split(/\s+/).filter(Boolean) : [];
		return {
			tag: (el.tagName || '').toLowerCase(),
			id: el.id || '',
			name: el.name || '',
			placeholder: el.placeholder || '',
			aria: el.getAttribute ? (el.getAttribute('aria-label') || '') : '',
			title: el.title || '',
			text: (el.textContent || '').trim().slice(0, 100),
			classes: classes,
			dataAttrs: dataAttrs,
			bounding: { x: rect.x, y: rect.y, width: rect.width, height: rect.height },
			pageUrl: window.location.href,
		};
	}

	function enqueue(kind, el, value) {
		if (!el || ignored(el)) return;
		window.__replaycoreCapture.queue.push({
			kind: kind,
			value: value || '',
			bundle: describeBundle(el),
			ts: Date.now(),
		});
	}

	function flushDebounced(el, value) {
		const timers = window.__replaycoreCapture.timers;
		if (timers.has(el)) clearTimeout(timers.get(el));
		timers.set(el, setTimeout(() => {
			timers.delete(el);
			enqueue('input', el, value);
		}, debounceMs));
	}

	document.addEventListener('mousedown', (ev) => enqueue('click', trueTarget(ev)), true);
	document.addEventListener('input', (ev) => flushDebounced(trueTarget(ev), trueTarget(ev).value), true);
	document.addEventListener('change', (ev) => enqueue('change', trueTarget(ev), trueTarget(ev).value), true);
	document.addEventListener('submit', (ev) => enqueue('submit', trueTarget(ev)), true);
	document.addEventListener('keydown', (ev) => {
		if (ev.key === 'Enter') {
			const el = trueTarget(ev);
			const timers = window.__replaycoreCapture.timers;
			if (timers.has(el)) { clearTimeout(timers.get(el)); timers.delete(el); enqueue('input', el, el.value); }
			enqueue('enter', el, el.value);
		}
	}, true);
	if (captureFocusBlur) {
		document.addEventListener('blur', (ev) => {
			const el = trueTarget(ev);
			const timers = window.__replaycoreCapture.timers;
			if (timers.has(el)) { clearTimeout(timers.get(el)); timers.delete(el); enqueue('input', el, el.value); }
		}, true);
	}
}`

// drainJS returns and clears the queued captured events.
const drainJS = `() => {
	if (!window.__replaycoreCapture) return [];
	const q = window.__replaycoreCapture.queue;
	window.__replaycoreCapture.queue = [];
	return q;
}`

// rawCapture mirrors captureInstallJS's enqueued record shape.
type rawCapture struct {
	Kind   string `json:"kind"`
	Value  string `json:"value"`
	Bundle struct {
		Tag         string            `json:"tag"`
		ID          string            `json:"id"`
		Name        string            `json:"name"`
		Placeholder string            `json:"placeholder"`
		Aria        string            `json:"aria"`
		Title       string            `json:"title"`
		Text        string            `json:"text"`
		Classes     []string          `json:"classes"`
		DataAttrs   map[string]string `json:"dataAttrs"`
		Bounding    locator.Bounding  `json:"bounding"`
		PageURL     string            `json:"pageUrl"`
	} `json:"bundle"`
	TS int64 `json:"ts"`
}

// Recorder attaches capture-phase listeners to a page (and to every
// same-origin iframe found beneath it when Start runs) and drains captured
// RecordedEvents for subscribed handlers. Iframes inserted after Start has
// run are not discovered and are not captured.
type Recorder struct {
	opts     Options
	handlers []func(RecordedEvent)
}

// New builds a Recorder with opts (DefaultOptions() if the zero value is
// not suitable).
func New(opts Options) *Recorder {
	return &Recorder{opts: opts}
}

// OnEvent registers a handler invoked for every RecordedEvent produced
// while Start is running.
func (r *Recorder) OnEvent(fn func(RecordedEvent)) {
	r.handlers = append(r.handlers, fn)
}

// Start installs the capture-phase listeners on page and every same-origin
// iframe discovered beneath it, then polls for captured events until ctx is
// canceled. Cross-origin iframes are skipped, matching spec §4.1's
// "MUST NOT be descended into".
func (r *Recorder) Start(ctx context.Context, page *rod.Page) error {
	if err := r.installOn(page); err != nil {
		return err
	}
	frames, err := browser.DiscoverIframes(page)
	if err != nil {
		return fmt.Errorf("recorder.Start: discovering iframes: %w", err)
	}
	var installed []*rod.Page
	for _, f := range frames {
		if f.IsCrossOrigin || f.Frame == nil {
			continue
		}
		if err := r.installOn(f.Frame); err != nil {
			return fmt.Errorf("recorder.Start: installing on iframe hop %d: %w", f.Index, err)
		}
		installed = append(installed, f.Frame)
	}

	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.drain(page); err != nil {
				return err
			}
			for _, fr := range installed {
				_ = r.drain(fr)
			}
		}
	}
}

func (r *Recorder) installOn(page *rod.Page) error {
	_, err := page.Eval(captureInstallJS, r.opts.IgnoreSelectors, r.opts.InputDebounce.Milliseconds(), r.opts.CaptureFocusBlur)
	if err != nil {
		return fmt.Errorf("recorder.installOn: %w", err)
	}
	return nil
}

func (r *Recorder) drain(page *rod.Page) error {
	res, err := page.Eval(drainJS)
	if err != nil {
		return fmt.Errorf("recorder.drain: %w", err)
	}

	var raw []rawCapture
	if err := res.Value.Unmarshal(&raw); err != nil {
		return fmt.Errorf("recorder.drain: unmarshal: %w", err)
	}

	for _, rc := range raw {
		evt := RecordedEvent{ID: uuid.NewString(), Step: r.buildStep(rc)}
		for _, h := range r.handlers {
			h(evt)
		}
	}
	return nil
}

// buildStep turns one captured raw record into a Step with a populated
// Bundle, deriving Label via deriveLabel.
func (r *Recorder) buildStep(rc rawCapture) locator.Step {
	bundle := &locator.Bundle{
		Tag:         rc.Bundle.Tag,
		ID:          rc.Bundle.ID,
		Name:        rc.Bundle.Name,
		Placeholder: rc.Bundle.Placeholder,
		Aria:        rc.Bundle.Aria,
		Title:       rc.Bundle.Title,
		Text:        locator.TruncateText(rc.Bundle.Text),
		Classes:     rc.Bundle.Classes,
		DataAttrs:   rc.Bundle.DataAttrs,
		Bounding:    &rc.Bundle.Bounding,
		PageURL:     rc.Bundle.PageURL,
	}

	event := eventKindOf(rc.Kind)
	return locator.Step{
		ID:     uuid.NewString(),
		Event:  event,
		Label:  deriveLabel(bundle),
		Value:  rc.Value,
		Bundle: bundle,
	}
}

func eventKindOf(kind string) locator.EventKind {
	switch kind {
	case "click":
		return locator.EventClick
	case "enter":
		return locator.EventEnter
	default:
		return locator.EventInput
	}
}

// deriveLabel picks a human-readable description from the captured bundle:
// ARIA label, then placeholder, then visible text, then tag name. An
// associated <label> element is not consulted; captureInstallJS does not
// read one.
func deriveLabel(b *locator.Bundle) string {
	switch {
	case b.Aria != "":
		return b.Aria
	case b.Placeholder != "":
		return b.Placeholder
	case b.Text != "":
		return b.Text
	default:
		return b.Tag
	}
}

// MarshalEvents renders a batch of RecordedEvents as the JSON array shape
// the host-bridge layer expects for a stopRecording response.
func MarshalEvents(events []RecordedEvent) ([]byte, error) {
	steps := make([]locator.Step, len(events))
	for i, e := range events {
		steps[i] = e.Step
	}
	return json.Marshal(steps)
}
