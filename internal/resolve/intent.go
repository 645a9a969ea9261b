package resolve

import (
	"github.com/justestif/go-music-muse/internal/extract"
	"github.com/justestif/go-music-muse/internal/query"
)

// Intent merges extracted fields and an optional event context into a query.
// Action precedence is already settled by the extractor's rule order.
func Intent(original string, ext extract.Extraction, ev *query.EventContext) query.ParsedQuery {
	b := query.NewBuilder(original).
		Action(ext.Action).
		Entity(ext.Entity).
		Ordinal(ext.Ordinal).
		Time(ext.Time).
		Filters(ext.Filters).
		Limit(ext.Limit).
		UseCount(ext.UseCount).
		Fired(ext.Fired)
	if ev != nil {
		b.Event(*ev)
	}
	return b.Build()
}
