package metadata

import "strings"

// PriorityProvider supplies the ordered source chain for a field, highest
// priority first.
type PriorityProvider interface {
	FieldPriority(field string) []string
}

// PriorityMap is a static PriorityProvider keyed by field tag. The "default"
// key applies to fields without their own chain.
type PriorityMap map[string][]string

// FieldPriority implements PriorityProvider.
func (m PriorityMap) FieldPriority(field string) []string {
	if chain, ok := m[field]; ok {
		return chain
	}
	return m["default"]
}

// OverrideTracker decides whether a source may overwrite a field and keeps
// the per-field provenance ledger on the entity. It holds no state of its own.
type OverrideTracker struct {
	priorities PriorityProvider
}

// NewOverrideTracker creates a tracker backed by the configured priorities.
func NewOverrideTracker(priorities PriorityProvider) *OverrideTracker {
	if priorities == nil {
		priorities = PriorityMap{}
	}
	return &OverrideTracker{priorities: priorities}
}

// MayOverwrite reports whether source may write field on e. Unset fields are
// always writable and a source may always refresh its own value. Otherwise
// source must rank above the recorded writer in the field's chain; an
// unranked writer ranks below every listed source and an unranked source
// never replaces a value.
func (t *OverrideTracker) MayOverwrite(e *Entity, field FieldTag, source string) bool {
	owner := e.OverrideSource(field)
	if owner == "" || e.FieldEmpty(field) {
		return true
	}

	if strings.EqualFold(owner, source) {
		return true
	}

	chain := t.priorities.FieldPriority(string(field))
	srcRank := rank(chain, source)
	if srcRank < 0 {
		return false
	}
	ownerRank := rank(chain, owner)
	return ownerRank < 0 || srcRank < ownerRank
}

// RecordOverwrite marks source as the writer of field. The name is kept as
// given; comparisons against it ignore case.
func (t *OverrideTracker) RecordOverwrite(e *Entity, field FieldTag, source string) {
	if e.OverrideFlags == nil {
		e.OverrideFlags = make(map[FieldTag]string)
	}
	e.OverrideFlags[field] = strings.TrimSpace(source)
}

// ClearOverride drops the provenance of field.
func (t *OverrideTracker) ClearOverride(e *Entity, field FieldTag) {
	delete(e.OverrideFlags, field)
}

// Apply writes field from rec when source is authorised and the record
// carries a value, recording the new owner in the same step.
func (t *OverrideTracker) Apply(e *Entity, field FieldTag, source string, rec *RemoteRecord) bool {
	if !t.MayOverwrite(e, field, source) {
		return false
	}
	if !e.copyField(field, rec) {
		return false
	}
	t.RecordOverwrite(e, field, source)
	return true
}

func rank(chain []string, source string) int {
	for i, s := range chain {
		if strings.EqualFold(s, source) {
			return i
		}
	}
	return -1
}
