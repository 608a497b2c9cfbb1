package session

import (
	"context"
	"fmt"

	"github.com/carbonfact/lea-sub000/internal/script"
)

// promote moves rewritten's freshly materialized audit table onto original's
// production table. An incrementally-eligible script (one with an
// #INCREMENTAL field, and a run that's actually scoped to specific
// incremental values) is promoted with a delete+insert keyed on that field,
// so only the rows in play are touched; everything else is promoted with a
// full clone.
func (sess *Session) promote(ctx context.Context, original, rewritten script.Script) error {
	sess.sink.Event("promotion_started", "table", original.TableRef.String())

	audit := rewritten.TableRef
	production := original.TableRef

	if field, ok := original.HasTaggedField(script.TagIncremental); ok &&
		sess.incrementalField == field.Name && len(sess.incrementalValues) > 0 {
		if err := sess.client.DeleteAndInsert(ctx, audit, production, sess.incrementalField); err != nil {
			return fmt.Errorf("promoting %s via delete+insert: %w", production, err)
		}
	} else {
		if err := sess.client.CloneTable(ctx, audit, production); err != nil {
			return fmt.Errorf("promoting %s via clone: %w", production, err)
		}
	}

	sess.sink.Event("promotion_finished", "table", original.TableRef.String())
	return nil
}
