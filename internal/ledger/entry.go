package ledger

// State is the verdict label carried by a signal entry. The set is closed:
// entries with any other label never enter the ledger.
type State string

const (
	StateBreakoutConfirmed State = "BREAKOUT_CONFIRMED"
	StateAccumulation      State = "ACCUMULATION"
	StateBreakoutEarly     State = "BREAKOUT_EARLY"
	StateUnwind            State = "UNWIND"
)

// States lists every admissible verdict state in declaration order.
var States = []State{StateBreakoutConfirmed, StateAccumulation, StateBreakoutEarly, StateUnwind}

// Valid reports whether s is one of the known verdict states.
func (s State) Valid() bool {
	switch s {
	case StateBreakoutConfirmed, StateAccumulation, StateBreakoutEarly, StateUnwind:
		return true
	}
	return false
}

// Entry is one signed, hash-chained ledger line. Entries are built once,
// hashed, signed, persisted, and never mutated. EntryHash and Signature are
// computed fields and are excluded from the hashed payload; everything else,
// including PreviousHash and the optional enrichment fields, is covered by
// the hash.
type Entry struct {
	Asset          string  `json:"asset"`
	Score          float64 `json:"score"`
	State          State   `json:"state"`
	RulesetVersion string  `json:"ruleset_version"`
	TimestampUTC   string  `json:"timestamp_utc"`

	// Enrichment fields are present only when the producer supplied them.
	// Once present they are part of the hashed payload.
	PriceUSD    *float64 `json:"price_usd,omitempty"`
	MarketCap   *float64 `json:"market_cap,omitempty"`
	SupplyTotal *float64 `json:"supply_total,omitempty"`

	PreviousHash string `json:"previous_hash"`
	EntryHash    string `json:"entry_hash"`
	Signature    string `json:"signature"`
}

// IdentityKey uniquely identifies an entry within the logical chain.
// Appending a second entry with the same identity is a no-op.
func (e *Entry) IdentityKey() string {
	return e.Asset + "_" + e.TimestampUTC
}

// hashFields returns the hashable field set with previousHash bound in,
// keyed by wire name. EntryHash and Signature are deliberately absent.
func (e *Entry) hashFields(previousHash string) map[string]any {
	m := map[string]any{
		"asset":           e.Asset,
		"score":           e.Score,
		"state":           string(e.State),
		"ruleset_version": e.RulesetVersion,
		"timestamp_utc":   e.TimestampUTC,
		"previous_hash":   previousHash,
	}
	if e.PriceUSD != nil {
		m["price_usd"] = *e.PriceUSD
	}
	if e.MarketCap != nil {
		m["market_cap"] = *e.MarketCap
	}
	if e.SupplyTotal != nil {
		m["supply_total"] = *e.SupplyTotal
	}
	return m
}

// Candidate is a producer-supplied verdict that has not yet been admitted to
// the ledger. The writer turns candidates into entries.
type Candidate struct {
	Asset        string
	Score        float64
	State        State
	TimestampUTC string

	PriceUSD    *float64
	MarketCap   *float64
	SupplyTotal *float64
}

// IdentityKey mirrors Entry.IdentityKey for dedup checks before an entry exists.
func (c *Candidate) IdentityKey() string {
	return c.Asset + "_" + c.TimestampUTC
}
