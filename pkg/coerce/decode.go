package coerce

import "encoding/json"

// Decoded reports what a lenient collection decode kept and threw away.
type Decoded[T any] struct {
	Items   []T
	Skipped int
	// NotList is set when the payload was not a JSON array at all.
	NotList bool
}

// DecodeCollection decodes a stored collection leniently. Elements that are
// not objects are skipped and counted.
func DecodeCollection[T any](raw []byte) Decoded[T] {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return Decoded[T]{NotList: true}
	}
	out := Decoded[T]{Items: make([]T, 0, len(items))}
	for _, item := range items {
		var rec T
		if err := json.Unmarshal(item, &rec); err != nil {
			out.Skipped++
			continue
		}
		out.Items = append(out.Items, rec)
	}
	return out
}

// DecodeRecords decodes a stored collection leniently. A payload that is not
// an array yields nothing and elements that are not objects are skipped.
func DecodeRecords[T any](raw []byte) []T {
	return DecodeCollection[T](raw).Items
}
