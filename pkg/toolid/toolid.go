// Package toolid packs the upstream's per-call model identity into the
// tool-call ids handed to downstream clients, and recovers it when the
// client sends back tool results.
//
// The upstream bills all tool iterations of one model call together, but
// only if follow-up requests quote the model-call id from the original
// announcement. Downstream wire shapes have nowhere to put that id, so it
// rides inside the tool-call id itself: "<tool_call_id>\nmc_<model_call_id>".
// The newline keeps the separator out of every id alphabet clients use.
package toolid

import "strings"

// Separator joins the two halves of a composite id. Split on the FIRST
// occurrence when parsing; a model-call id may contain anything.
const Separator = "\nmc_"

// ToolID is a decoded composite id. ModelCallID is empty when the original
// string carried no separator.
type ToolID struct {
	ToolCallID  string
	ModelCallID string
}

// Format builds the composite id. An empty modelCallID yields the bare
// toolCallID unchanged.
func Format(toolCallID, modelCallID string) string {
	if modelCallID == "" {
		return toolCallID
	}
	return toolCallID + Separator + modelCallID
}

// Parse splits a composite id. There is no error path: a string without
// the separator is a plain tool-call id with no model identity.
func Parse(s string) ToolID {
	if i := strings.Index(s, Separator); i >= 0 {
		return ToolID{ToolCallID: s[:i], ModelCallID: s[i+len(Separator):]}
	}
	return ToolID{ToolCallID: s}
}

// String re-encodes the id in composite form.
func (id ToolID) String() string {
	return Format(id.ToolCallID, id.ModelCallID)
}
