package query

// Builder assembles a ParsedQuery. The zero value is not usable; call NewBuilder.
type Builder struct {
	q ParsedQuery
}

// NewBuilder returns a builder for a query over the given original text.
func NewBuilder(original string) *Builder {
	return &Builder{q: ParsedQuery{
		original: original,
		action:   ActionTop,
		entity:   EntityArtist,
		limit:    DefaultLimit,
	}}
}

// Action sets the action.
func (b *Builder) Action(a Action) *Builder {
	b.q.action = a
	return b
}

// Entity sets the entity type.
func (b *Builder) Entity(e EntityType) *Builder {
	b.q.entity = e
	return b
}

// Ordinal sets the 1-based ordinal for Nth queries.
func (b *Builder) Ordinal(n int) *Builder {
	b.q.ordinal = n
	return b
}

// Time sets the time constraint.
func (b *Builder) Time(t TimeConstraint) *Builder {
	b.q.time = t
	return b
}

// Filters sets the attribute filters.
func (b *Builder) Filters(f AttributeFilters) *Builder {
	b.q.filters = f
	return b
}

// Event attaches an event context.
func (b *Builder) Event(ev EventContext) *Builder {
	b.q.event = &ev
	return b
}

// Limit sets the requested number of ranked rows.
func (b *Builder) Limit(n int) *Builder {
	b.q.limit = n
	return b
}

// UseCount switches ranking to play count.
func (b *Builder) UseCount(v bool) *Builder {
	b.q.useCount = v
	return b
}

// Fired records the extraction rules that matched.
func (b *Builder) Fired(names []string) *Builder {
	b.q.fired = append([]string(nil), names...)
	return b
}

// Build returns the query with its invariants enforced. The builder may be reused;
// later changes do not affect queries already built.
func (b *Builder) Build() ParsedQuery {
	q := b.q
	q.time = b.q.Time()
	q.filters = b.q.Filters()
	q.fired = append([]string(nil), b.q.fired...)
	if b.q.event != nil {
		ev := *b.q.event
		q.event = &ev
	}

	if q.entity == "" {
		q.entity = EntityArtist
	}
	if q.action == "" {
		q.action = ActionTop
	}
	if q.action == ActionNth && q.ordinal < 1 {
		q.action = ActionTop
	}
	if q.action != ActionNth {
		q.ordinal = 0
	}
	if q.time.Month != nil {
		q.time.Season = ""
	}

	q.limit = ClampLimit(q.limit)

	if q.action == ActionPercentage {
		q.limit = DefaultLimit
		q.useCount = false
		q.filters.PlayCount = nil
	}
	return q
}

// ClampLimit bounds n to [1, MaxLimit].
func ClampLimit(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}
