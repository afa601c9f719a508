package recorder_test

import (
	"context"
	"testing"
	"time"

	"github.com/pharrisenterprises/replaycore/internal/locator"
	"github.com/pharrisenterprises/replaycore/internal/recorder"
	"github.com/pharrisenterprises/replaycore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_CapturesClick(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<button id="go" aria-label="Go button">Go</button>`)

	opts := recorder.DefaultOptions()
	r := recorder.New(opts)

	var got []recorder.RecordedEvent
	r.OnEvent(func(e recorder.RecordedEvent) { got = append(got, e) })

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	go func() {
		time.Sleep(100 * time.Millisecond)
		_, _ = page.Eval(`() => document.getElementById('go').dispatchEvent(new MouseEvent('mousedown', {bubbles: true}))`)
	}()

	err := r.Start(ctx, page)
	require.NoError(t, err)

	require.NotEmpty(t, got)
	assert.Equal(t, locator.EventClick, got[0].Step.Event)
	assert.Equal(t, "go", got[0].Step.Bundle.ID)
	assert.Equal(t, "Go button", got[0].Step.Label)
	assert.NotEmpty(t, got[0].ID)
}

func TestRecorder_CapturesDebouncedInput(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<input id="email" placeholder="Email address" />`)

	opts := recorder.DefaultOptions()
	opts.InputDebounce = 50 * time.Millisecond
	r := recorder.New(opts)

	var got []recorder.RecordedEvent
	r.OnEvent(func(e recorder.RecordedEvent) { got = append(got, e) })

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	go func() {
		time.Sleep(100 * time.Millisecond)
		_, _ = page.Eval(`() => {
			const el = document.getElementById('email');
			el.value = 'a@b.c';
			el.dispatchEvent(new Event('input', {bubbles: true}));
		}`)
	}()

	err := r.Start(ctx, page)
	require.NoError(t, err)

	require.NotEmpty(t, got)
	assert.Equal(t, locator.EventInput, got[0].Step.Event)
	assert.Equal(t, "a@b.c", got[0].Step.Value)
	assert.Equal(t, "Email address", got[0].Step.Label)
}

func TestRecorder_IgnoresConfiguredSelectors(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<button id="hidden-tracker" class="no-record">x</button>`)

	opts := recorder.DefaultOptions()
	opts.IgnoreSelectors = []string{".no-record"}
	r := recorder.New(opts)

	var got []recorder.RecordedEvent
	r.OnEvent(func(e recorder.RecordedEvent) { got = append(got, e) })

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	go func() {
		time.Sleep(100 * time.Millisecond)
		_, _ = page.Eval(`() => document.getElementById('hidden-tracker').dispatchEvent(new MouseEvent('mousedown', {bubbles: true}))`)
	}()

	err := r.Start(ctx, page)
	require.NoError(t, err)
	assert.Empty(t, got)
}
