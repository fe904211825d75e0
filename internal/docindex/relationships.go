package docindex

import (
	"github.com/blevesearch/bleve/v2"

	"github.com/bartolli/codanna/internal/model"
)

// StoreRelationship stores a relationship edge within the currently open
// batch, overwriting any existing document for the same
// (FromId, Kind, ToId) triple.
func (ix *Index) StoreRelationship(r *model.Relationship) error {
	id := relationshipDocID(r.FromId, r.ToId, r.Kind)
	return ix.indexDoc("store_relationship", id, toRelationshipDoc(r))
}

func relationshipFromFields(fields map[string]interface{}) *model.Relationship {
	d := &relationshipDoc{
		FromId:       fieldUint32(fields, "from_id"),
		ToId:         fieldUint32(fields, "to_id"),
		Kind:         fieldString(fields, "kind"),
		CallLine:     fieldUint32(fields, "call_line"),
		CallColumn:   fieldUint32(fields, "call_column"),
		ReceiverType: fieldString(fields, "receiver_type"),
	}
	return d.toRelationship()
}

func (ix *Index) queryRelationships(op string, q bleve.Query) ([]*model.Relationship, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(docTypeQuery(docTypeRelationship), q))
	req.Fields = allFieldsRequest
	req.Size = 10_000

	result, err := ix.bleve.Search(req)
	if err != nil {
		return nil, wrapIOError(op, err)
	}

	out := make([]*model.Relationship, 0, len(result.Hits))
	for _, hit := range result.Hits {
		out = append(out, relationshipFromFields(hit.Fields))
	}
	return out, nil
}

// GetRelationshipsFrom returns every relationship originating at fromID,
// optionally filtered to one kind.
func (ix *Index) GetRelationshipsFrom(fromID model.SymbolId, kind model.RelationKind) ([]*model.Relationship, error) {
	return ix.queryRelationships("get_relationships_from", idFieldQuery("from_id", uint32(fromID), kind))
}

// GetRelationshipsTo returns every relationship targeting toID,
// optionally filtered to one kind.
func (ix *Index) GetRelationshipsTo(toID model.SymbolId, kind model.RelationKind) ([]*model.Relationship, error) {
	return ix.queryRelationships("get_relationships_to", idFieldQuery("to_id", uint32(toID), kind))
}

func idFieldQuery(field string, id uint32, kind model.RelationKind) bleve.Query {
	idQ := bleve.NewNumericRangeQuery(f64(float64(id)), f64(float64(id)+1))
	idQ.SetField(field)
	idQ.InclusiveMin = boolp(true)
	idQ.InclusiveMax = boolp(false)

	if kind == "" {
		return idQ
	}
	kindQ := bleve.NewTermQuery(string(kind))
	kindQ.SetField("kind")
	return bleve.NewConjunctionQuery(idQ, kindQ)
}

// GetAllRelationshipsByKind returns every stored relationship of one
// kind, for whole-graph traversals such as impact-radius BFS.
func (ix *Index) GetAllRelationshipsByKind(kind model.RelationKind) ([]*model.Relationship, error) {
	kindQ := bleve.NewTermQuery(string(kind))
	kindQ.SetField("kind")
	return ix.queryRelationships("get_all_relationships_by_kind", kindQ)
}

// DeleteRelationshipsForSymbol removes every relationship where id
// participates as either endpoint, within the currently open batch.
func (ix *Index) DeleteRelationshipsForSymbol(id model.SymbolId) error {
	fromRels, err := ix.GetRelationshipsFrom(id, "")
	if err != nil {
		return err
	}
	toRels, err := ix.GetRelationshipsTo(id, "")
	if err != nil {
		return err
	}
	for _, r := range fromRels {
		if err := ix.deleteDoc("delete_relationships_for_symbol", relationshipDocID(r.FromId, r.ToId, r.Kind)); err != nil {
			return err
		}
	}
	for _, r := range toRels {
		if err := ix.deleteDoc("delete_relationships_for_symbol", relationshipDocID(r.FromId, r.ToId, r.Kind)); err != nil {
			return err
		}
	}
	return nil
}

// CountRelationships reports the number of committed relationship
// documents.
func (ix *Index) CountRelationships() (uint64, error) {
	return ix.countByType(docTypeRelationship)
}
