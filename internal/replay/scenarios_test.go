package replay_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pharrisenterprises/replaycore/internal/config"
	"github.com/pharrisenterprises/replaycore/internal/executor"
	"github.com/pharrisenterprises/replaycore/internal/locator"
	"github.com/pharrisenterprises/replaycore/internal/replay"
	"github.com/pharrisenterprises/replaycore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tenButtonSteps builds the 10-step click sequence used to exercise the
// pause/resume scenario against internal/testutil/testdata/ten_buttons.html.
func tenButtonSteps() []locator.Step {
	steps := make([]locator.Step, 10)
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("step-%d", i)
		steps[i] = locator.Step{
			ID:    id,
			Event: locator.EventClick,
			Bundle: &locator.Bundle{
				Tag:   "button",
				Xpath: fmt.Sprintf(`//*[@id="%s"]`, id),
				ID:    id,
			},
		}
	}
	return steps
}

// TestEngine_PauseResume_MidRun covers the numbered pause/resume scenario: a
// 10-step run is paused right after step 3 completes and resumed 50ms
// later. Step 4 must not start until resume, the run must still finish all
// 10 steps, and the observed lifecycle trace must read
// idle -> running -> paused -> running -> completed.
func TestEngine_PauseResume_MidRun(t *testing.T) {
	page := testutil.NewPage(t)
	html := testutil.LoadFixture(t, "ten_buttons")
	testutil.LoadHTML(t, page, html)

	cfg := config.Default()
	cfg.Behavior.WaitForAnimations = false
	cfg.Timing.StepDelay = 0

	e := replay.New(cfg)

	var mu sync.Mutex
	var trace []replay.State
	e.OnStateChange(func(from, to replay.State) {
		mu.Lock()
		trace = append(trace, to)
		mu.Unlock()
	})

	var step4StartedAt time.Time
	var resumedAt time.Time
	e.OnStepComplete(func(res executor.StepExecutionResult) {
		if res.StepID == "step-3" {
			e.Pause()
			go func() {
				time.Sleep(50 * time.Millisecond)
				mu.Lock()
				resumedAt = time.Now()
				mu.Unlock()
				e.Resume()
			}()
		}
	})
	e.OnStepStart(func(s locator.Step) {
		if s.ID == "step-4" {
			mu.Lock()
			step4StartedAt = time.Now()
			mu.Unlock()
		}
	})

	ec := &locator.ExecContext{Page: page}
	summary := e.Start(context.Background(), tenButtonSteps(), ec)

	require.Equal(t, replay.StateCompleted, summary.State)
	assert.Equal(t, 10, summary.Passed)

	mu.Lock()
	defer mu.Unlock()
	require.False(t, step4StartedAt.IsZero(), "step 4 must have started")
	require.False(t, resumedAt.IsZero(), "resume must have been observed")
	assert.False(t, step4StartedAt.Before(resumedAt), "step 4 must not start before resume")

	require.GreaterOrEqual(t, len(trace), 4)
	assert.Equal(t, []replay.State{
		replay.StateRunning, replay.StatePaused, replay.StateRunning, replay.StateCompleted,
	}, trace)
}
