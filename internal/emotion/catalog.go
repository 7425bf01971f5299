package emotion

// Descriptor holds the static properties of one emotion kind: the signed
// valence assigned to new entries and the perceptual display color used by
// the map.
type Descriptor struct {
	Kind    string  `json:"kind"`
	Valence float64 `json:"valence"` // [-1,1]
	Color   string  `json:"color"`   // hex RGB
}

// Catalog is an immutable emotion lookup table. It is built once at startup
// and injected wherever valence or color is needed, so the aggregation
// engine stays a pure function of its inputs. Entries freeze their valence
// at creation time; later catalog changes never rewrite stored entries.
type Catalog struct {
	byKind map[string]Descriptor
	order  []string
}

// Emotion kinds known to the default catalog.
const (
	KindJoy       = "JOY"
	KindGratitude = "GRATITUDE"
	KindPride     = "PRIDE"
	KindCalm      = "CALM"
	KindSurprise  = "SURPRISE"
	KindBoredom   = "BOREDOM"
	KindAnxiety   = "ANXIETY"
	KindSadness   = "SADNESS"
	KindDisgust   = "DISGUST"
	KindAnger     = "ANGER"
)

// NewDefaultCatalog builds the standard ten-kind catalog.
func NewDefaultCatalog() *Catalog {
	return NewCatalog([]Descriptor{
		{Kind: KindJoy, Valence: 0.9, Color: "#FFD166"},
		{Kind: KindGratitude, Valence: 0.8, Color: "#F4A261"},
		{Kind: KindPride, Valence: 0.7, Color: "#E9C46A"},
		{Kind: KindCalm, Valence: 0.6, Color: "#8ECAE6"},
		{Kind: KindSurprise, Valence: 0.1, Color: "#CDB4DB"},
		{Kind: KindBoredom, Valence: -0.2, Color: "#ADB5BD"},
		{Kind: KindAnxiety, Valence: -0.6, Color: "#9D4EDD"},
		{Kind: KindDisgust, Valence: -0.65, Color: "#6A994E"},
		{Kind: KindSadness, Valence: -0.7, Color: "#457B9D"},
		{Kind: KindAnger, Valence: -0.8, Color: "#E63946"},
	})
}

// NewCatalog builds a catalog from descriptors, preserving their order
func NewCatalog(descriptors []Descriptor) *Catalog {
	c := &Catalog{
		byKind: make(map[string]Descriptor, len(descriptors)),
		order:  make([]string, 0, len(descriptors)),
	}
	for _, d := range descriptors {
		if _, exists := c.byKind[d.Kind]; exists {
			continue
		}
		c.byKind[d.Kind] = d
		c.order = append(c.order, d.Kind)
	}
	return c
}

// Has reports whether the kind exists in the catalog
func (c *Catalog) Has(kind string) bool {
	_, ok := c.byKind[kind]
	return ok
}

// Valence returns the signed valence for a kind
func (c *Catalog) Valence(kind string) (float64, bool) {
	d, ok := c.byKind[kind]
	return d.Valence, ok
}

// Color returns the display color for a kind, or "" if unknown
func (c *Catalog) Color(kind string) string {
	return c.byKind[kind].Color
}

// Descriptors returns all descriptors in catalog order
func (c *Catalog) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(c.order))
	for _, kind := range c.order {
		out = append(out, c.byKind[kind])
	}
	return out
}
