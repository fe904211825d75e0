package model

// RelationKind is the closed set of relationship kinds.
type RelationKind string

const (
	RelationDefines    RelationKind = "defines"
	RelationCalls      RelationKind = "calls"
	RelationExtends    RelationKind = "extends"
	RelationImplements RelationKind = "implements"
	RelationUses       RelationKind = "uses"
)

// RelationshipMetadata carries the optional call-site and receiver
// details a parser may attach to a relationship.
type RelationshipMetadata struct {
	CallLine     uint32
	CallColumn   uint32
	ReceiverType string
}

// IsEmpty reports whether no optional metadata was attached.
func (m RelationshipMetadata) IsEmpty() bool {
	return m.CallLine == 0 && m.CallColumn == 0 && m.ReceiverType == ""
}

// Relationship is a directed, typed, committed edge between two
// symbols. Every stored Relationship references two symbols that
// exist in the committed set as of the end of Phase 2.
type Relationship struct {
	FromId   SymbolId
	ToId     SymbolId
	Kind     RelationKind
	Metadata RelationshipMetadata
}

// UnresolvedRelationship is an edge known by name but not yet by id,
// produced by PARSE and consumed by Phase 2.
type UnresolvedRelationship struct {
	FromName string
	ToName   string
	Kind     RelationKind
	FromFile FileId

	// ToRange, when non-nil, anchors the reference for overload/shadowing
	// disambiguation.
	ToRange  *Range
	Metadata RelationshipMetadata
}

// QualifiedName returns the name used to key a captured incoming
// relationship across a reindex: module path and name joined by "::",
// or the bare name when there is no module path.
func QualifiedName(modulePath, name string) string {
	if modulePath == "" {
		return name
	}
	return modulePath + "::" + name
}

// CapturedIncoming is an incoming relationship recorded before a file's
// documents are deleted during reindex, keyed by qualified name so it
// survives the old SymbolId's deletion.
type CapturedIncoming struct {
	FromId          SymbolId
	ToQualifiedName string
	Kind            RelationKind
	Metadata        RelationshipMetadata
}

// receiverCapableKinds are symbol kinds that may legitimately appear as
// a Calls relationship's receiver type (SPEC_FULL.md supplemented
// feature 2).
var receiverCapableKinds = map[SymbolKind]bool{
	KindStruct:    true,
	KindClass:     true,
	KindTypeAlias: true,
	KindInterface: true,
	KindEnum:      true,
}

// ValidReceiverKind reports whether kind may serve as a Calls
// relationship's receiver type.
func ValidReceiverKind(kind SymbolKind) bool {
	return receiverCapableKinds[kind]
}
