package locator

import "github.com/go-rod/rod"

// ExecContext is the per-run context threaded through the Step Executor,
// Replay Engine, and Session: the page to act on plus the data-row values
// available for value resolution.
type ExecContext struct {
	// Page is the live page to act on. It may be nil for an "open" step,
	// which needs no element; the Step Executor fails any other step whose
	// context has no page.
	Page *rod.Page

	// CSVValues holds the current data row, keyed by CSV column name. Empty
	// for rows with no data table, which runs as a single empty row.
	CSVValues map[string]string

	// FieldMappings maps a CSV column name to the step label it should feed,
	// consulted by value resolution's "mapped match" tier.
	FieldMappings map[string]string

	// PageURL is the last known URL, the value the "open" event's
	// verification step compares against; that check never reads the URL
	// from Page itself.
	PageURL string

	// TabID identifies the browser tab/target this context is bound to, for
	// hosts that multiplex several tabs over one bridge connection.
	TabID string
}
