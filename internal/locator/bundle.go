// Package locator defines the data model shared by every component of the
// replay core: the locator bundle that identifies one DOM element, the step
// that records one interaction, and the small value objects that travel
// alongside them.
package locator

// maxTextCodepoints is the cap applied to Bundle.Text at record time.
const maxTextCodepoints = 100

// IframeInfo identifies one hop in an iframe chain, captured with enough
// redundancy (id, name, src, index) that the chain can be re-walked even if
// sibling iframes were reordered between record and replay.
type IframeInfo struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Src   string `json:"src,omitempty"`
}

// Bounding is the page-coordinate bounding rect of an element at record
// time. Width and Height are never negative.
type Bounding struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bundle is an immutable snapshot of everything that might later identify
// one DOM element. All fields are optional except Tag, and Xpath is
// required whenever the element was in the main document. Bundles are
// non-canonical: the same live element may legitimately produce different
// bundles across recordings.
type Bundle struct {
	Xpath       string            `json:"xpath,omitempty"`
	CSS         string            `json:"css,omitempty"`
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name,omitempty"`
	Placeholder string            `json:"placeholder,omitempty"`
	Aria        string            `json:"aria,omitempty"`
	Title       string            `json:"title,omitempty"`
	Tag         string            `json:"tag"`
	Text        string            `json:"text,omitempty"`
	Classes     []string          `json:"classes,omitempty"`
	DataAttrs   map[string]string `json:"dataAttrs,omitempty"`
	Bounding    *Bounding         `json:"bounding,omitempty"`
	PageURL     string            `json:"pageUrl,omitempty"`
	IframeChain []IframeInfo      `json:"iframeChain,omitempty"`
	ShadowHosts []string          `json:"shadowHosts,omitempty"`
}

// TruncateText caps s at maxTextCodepoints, matching the recorder's
// record-time truncation: Bundle.Text is trimmed and capped at 100
// codepoints. Used by the recorder when building bundles and by the
// finder's fuzzyText strategy on live element text.
func TruncateText(s string) string {
	runes := []rune(s)
	if len(runes) <= maxTextCodepoints {
		return s
	}
	return string(runes[:maxTextCodepoints])
}

// InIframe reports whether the bundle identifies an element nested inside
// one or more iframes.
func (b Bundle) InIframe() bool {
	return len(b.IframeChain) > 0
}

// InShadowDOM reports whether the bundle identifies an element that must be
// reached by piercing one or more shadow roots.
func (b Bundle) InShadowDOM() bool {
	return len(b.ShadowHosts) > 0
}

// HasLocator reports whether the bundle carries at least one attribute the
// finder could use. A bundle with only a Tag is not locatable.
func (b Bundle) HasLocator() bool {
	return b.Xpath != "" || b.CSS != "" || b.ID != "" || b.Name != "" ||
		b.Aria != "" || b.Placeholder != "" || len(b.DataAttrs) > 0 ||
		b.Text != "" || b.Bounding != nil
}
