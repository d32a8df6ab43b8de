package models

// LinkEdge records that the Field of node SourceID references TargetID.
type LinkEdge struct {
	SourceID string
	TargetID string
	Field    string
}

// Reference is one link found in a node's content by a reference extractor.
type Reference struct {
	TargetID string
	Field    string
}
