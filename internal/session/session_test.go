package session_test

import (
	"context"
	"testing"

	"github.com/pharrisenterprises/replaycore/internal/config"
	"github.com/pharrisenterprises/replaycore/internal/locator"
	"github.com/pharrisenterprises/replaycore/internal/session"
	"github.com/pharrisenterprises/replaycore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stepsFor(t *testing.T) []locator.Step {
	t.Helper()
	return []locator.Step{
		{
			ID: "s1", Event: locator.EventInput, Label: "Email",
			Bundle: &locator.Bundle{Tag: "input", Xpath: `//*[@id="email"]`, ID: "email"},
		},
	}
}

func TestSession_EmptyDataTable_RunsOneRow(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<input id="email" />`)

	cfg := config.Default()
	s := session.New(cfg)

	summary := s.Start(context.Background(), stepsFor(t), page, session.Rows{})
	require.Equal(t, session.StateCompleted, summary.State)
	assert.Equal(t, 1, summary.TotalRows)
	assert.Len(t, summary.RowResults, 1)
	assert.True(t, summary.Success)
}

func TestSession_MultiRow_InjectsPerRowCSVValues(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<input id="email" />`)

	cfg := config.Default()
	s := session.New(cfg)

	rows := session.Rows{Data: []map[string]string{
		{"Email": "a@b.c"},
		{"Email": "x@y.z"},
	}}

	var seen []string
	s.OnRowComplete(func(r session.RowExecutionResult) {
		v, err := page.Eval(`() => document.getElementById('email').value`)
		if err == nil {
			seen = append(seen, v.Value.Str())
		}
	})

	summary := s.Start(context.Background(), stepsFor(t), page, rows)
	require.Equal(t, session.StateCompleted, summary.State)
	assert.Equal(t, 2, summary.TotalRows)
	assert.Equal(t, []string{"a@b.c", "x@y.z"}, seen)
}

func TestSession_SkipsUnmatchedRowWhenConfigured(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<input id="email" />`)

	cfg := config.Default()
	cfg.Session.SkipUnmatchedRows = true
	s := session.New(cfg)

	rows := session.Rows{Data: []map[string]string{
		{"Unrelated": "value"},
	}}

	summary := s.Start(context.Background(), stepsFor(t), page, rows)
	require.Len(t, summary.RowResults, 1)
	assert.True(t, summary.RowResults[0].Skipped)
	assert.Equal(t, "No matching fields", summary.RowResults[0].SkipReason)
	assert.Equal(t, 1, summary.SkippedRows)
}

func TestSession_RunsUnmatchedRowWhenSkipDisabled(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<input id="email" />`)

	cfg := config.Default()
	cfg.Session.SkipUnmatchedRows = false
	s := session.New(cfg)

	rows := session.Rows{Data: []map[string]string{
		{"Unrelated": "value"},
	}}

	summary := s.Start(context.Background(), stepsFor(t), page, rows)
	require.Len(t, summary.RowResults, 1)
	assert.False(t, summary.RowResults[0].Skipped)
}

func TestSession_ContinuesAfterRowFailureWhenConfigured(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<div></div>`) // no #email: every row's step fails to find it

	cfg := config.Default()
	cfg.Timing.MaxRetries = 0
	cfg.Behavior.ContinueOnFailure = true
	cfg.Session.ContinueOnRowFailure = true
	s := session.New(cfg)

	rows := session.Rows{Data: []map[string]string{
		{"Email": "a@b.c"},
		{"Email": "x@y.z"},
	}}

	summary := s.Start(context.Background(), stepsFor(t), page, rows)
	require.Equal(t, session.StateCompleted, summary.State)
	assert.Len(t, summary.RowResults, 2)
	assert.False(t, summary.Success)
	assert.Equal(t, 2, summary.FailedRows)
}

func TestSession_StopsAfterRowFailureWhenContinueDisabled(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<div></div>`)

	cfg := config.Default()
	cfg.Timing.MaxRetries = 0
	cfg.Behavior.ContinueOnFailure = true
	cfg.Session.ContinueOnRowFailure = false
	s := session.New(cfg)

	rows := session.Rows{Data: []map[string]string{
		{"Email": "a@b.c"},
		{"Email": "x@y.z"},
	}}

	summary := s.Start(context.Background(), stepsFor(t), page, rows)
	assert.Equal(t, session.StateError, summary.State)
	assert.Len(t, summary.RowResults, 1)
}

func TestSession_IllegalTransition_StartTwice(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<input id="email" />`)

	cfg := config.Default()
	s := session.New(cfg)

	s.Start(context.Background(), stepsFor(t), page, session.Rows{})
	summary := s.Start(context.Background(), stepsFor(t), page, session.Rows{})
	assert.Equal(t, session.StateCompleted, summary.State)
	assert.Empty(t, summary.RowResults)
}

func TestRowMatchesSteps_TableDriven(t *testing.T) {
	steps := []locator.Step{{Label: "Email"}, {Label: "Full Name"}}

	cases := []struct {
		name     string
		row      map[string]string
		mappings map[string]string
		want     bool
	}{
		{"direct match", map[string]string{"Email": "a@b.c"}, nil, true},
		{"mapped match", map[string]string{"email_col": "a@b.c"}, map[string]string{"email_col": "Email"}, true},
		{"no match", map[string]string{"Phone": "555"}, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page := testutil.NewPage(t)
			testutil.LoadHTML(t, page, `<input id="email" />`)
			cfg := config.Default()
			cfg.Session.SkipUnmatchedRows = true
			s := session.New(cfg)
			summary := s.Start(context.Background(), []locator.Step{
				{ID: "s1", Event: locator.EventInput, Label: steps[0].Label,
					Bundle: &locator.Bundle{Tag: "input", Xpath: `//*[@id="email"]`, ID: "email"}},
			}, page, session.Rows{Data: []map[string]string{tc.row}, FieldMappings: tc.mappings})
			skipped := summary.RowResults[0].Skipped
			assert.Equal(t, !tc.want, skipped)
		})
	}
}
