package resource

// Ensure passes a present document through and turns an absent one into
// ErrNotFound. Presence is a nil check: an empty document is still present.
func Ensure(doc Document) (Document, error) {
	if doc == nil {
		return nil, ErrNotFound
	}
	return doc, nil
}
