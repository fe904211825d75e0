package resolution

import "github.com/bartolli/codanna/internal/model"

// RestoreCaptured restores incoming relationships captured before a
// reindexed file's old symbols were deleted (spec.md §4.11 step 7):
// each capture's qualified name is resolved against the newly committed
// symbol set, and resolved edges are stored. Captures that can't be
// resolved are dropped and counted, matching ResolutionDrop semantics
// elsewhere in Phase 2.
func (r *Resolver) RestoreCaptured(captured []model.CapturedIncoming) (restored, dropped int, err error) {
	if len(captured) == 0 {
		return 0, 0, nil
	}
	if err := r.docs.StartBatch(); err != nil {
		return 0, 0, err
	}
	for _, c := range captured {
		toID, ok := r.cache.ResolveQualified(c.ToQualifiedName)
		if !ok {
			dropped++
			continue
		}
		if err := r.docs.StoreRelationship(&model.Relationship{
			FromId:   c.FromId,
			ToId:     toID,
			Kind:     c.Kind,
			Metadata: c.Metadata,
		}); err != nil {
			r.docs.AbortBatch()
			return restored, dropped, err
		}
		restored++
	}
	if err := r.docs.CommitBatch(); err != nil {
		return restored, dropped, err
	}
	return restored, dropped, nil
}
