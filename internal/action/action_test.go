package action_test

import (
	"context"
	"testing"
	"time"

	"github.com/pharrisenterprises/replaycore/internal/action"
	"github.com/pharrisenterprises/replaycore/internal/config"
	"github.com/pharrisenterprises/replaycore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClick_DispatchesClickEvent(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `
		<button id="btn" onclick="window.__clicked = (window.__clicked||0) + 1">OK</button>
	`)
	el, err := page.Element("#btn")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Behavior.WaitForAnimations = false
	res := action.Click(context.Background(), el, page, cfg)
	require.True(t, res.Success, res.Error)

	count, err := page.Eval(`() => window.__clicked || 0`)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count.Value.Int())
}

func TestClick_AnimationTimeoutDoesNotPanic(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `
		<button id="btn" onclick="window.__clicked = (window.__clicked||0) + 1">OK</button>
		<script>
			// Perpetually mutate the DOM so WaitDOMStable never sees a quiet window,
			// forcing it to hit AnimationTimeout and exercising the panic path.
			window.__spin = setInterval(() => {
				document.title = 'spin-' + Date.now();
			}, 10);
		</script>
	`)
	el, err := page.Element("#btn")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Behavior.WaitForAnimations = true
	cfg.Behavior.AnimationTimeout = 30 * time.Millisecond

	var res action.Result
	assert.NotPanics(t, func() {
		res = action.Click(context.Background(), el, page, cfg)
	})
	require.True(t, res.Success, res.Error)

	_, _ = page.Eval(`() => clearInterval(window.__spin)`)
}

func TestClick_HumanLikeDispatchesMousedownBeforeClick(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `
		<button id="btn"></button>
		<script>
			window.__order = [];
			document.getElementById('btn').addEventListener('mousedown', () => window.__order.push('mousedown'));
			document.getElementById('btn').addEventListener('click', () => window.__order.push('click'));
		</script>
	`)
	el, err := page.Element("#btn")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Behavior.WaitForAnimations = false
	cfg.Behavior.HumanLikeMouse = true
	res := action.Click(context.Background(), el, page, cfg)
	require.True(t, res.Success, res.Error)

	order, err := page.Eval(`() => JSON.stringify(window.__order)`)
	require.NoError(t, err)
	assert.Equal(t, `["mousedown","click"]`, order.Value.Str())
}

func TestInput_SetsValueAndFiresChange(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `
		<input id="email" />
		<script>
			window.__changes = 0;
			document.getElementById('email').addEventListener('change', () => window.__changes++);
		</script>
	`)
	el, err := page.Element("#email")
	require.NoError(t, err)

	cfg := config.Default()
	res := action.Input(context.Background(), el, "a@b.c", cfg)
	require.True(t, res.Success, res.Error)

	val, err := page.Eval(`() => document.getElementById('email').value`)
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", val.Value.Str())

	changes, err := page.Eval(`() => window.__changes`)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changes.Value.Int())
}

func TestPressEnter_DispatchesKeydown(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `
		<input id="field" />
		<script>
			window.__enterSeen = false;
			document.getElementById('field').addEventListener('keydown', (e) => {
				if (e.key === 'Enter') window.__enterSeen = true;
			});
		</script>
	`)
	el, err := page.Element("#field")
	require.NoError(t, err)

	cfg := config.Default()
	res := action.PressEnter(context.Background(), el, cfg)
	require.True(t, res.Success, res.Error)

	seen, err := page.Eval(`() => window.__enterSeen`)
	require.NoError(t, err)
	assert.True(t, seen.Value.Bool())
}
