package store

// collection keeps records by id and remembers insertion order so listings
// and persisted payloads are stable.
type collection[T any] struct {
	order []string
	items map[string]T
	idOf  func(T) string
}

func newCollection[T any](idOf func(T) string) *collection[T] {
	return &collection[T]{items: map[string]T{}, idOf: idOf}
}

func (c *collection[T]) get(id string) (T, bool) {
	v, ok := c.items[id]
	return v, ok
}

func (c *collection[T]) put(v T) {
	id := c.idOf(v)
	if _, ok := c.items[id]; !ok {
		c.order = append(c.order, id)
	}
	c.items[id] = v
}

func (c *collection[T]) list() []T {
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

// reset replaces the contents. Records without an id, or whose id was already
// taken by an earlier record, get a fallback id so none are dropped. It
// returns how many ids were reassigned.
func (c *collection[T]) reset(items []T, fallbackID func(int, T) T) int {
	c.order = c.order[:0]
	c.items = make(map[string]T, len(items))
	reassigned := 0
	for i, v := range items {
		id := c.idOf(v)
		if _, taken := c.items[id]; id == "" || taken {
			if id != "" {
				reassigned++
			}
			// positions past len(items) only show up when a stored record
			// already uses a legacy id
			for n := i; ; n += len(items) {
				v = fallbackID(n, v)
				if _, taken := c.items[c.idOf(v)]; !taken {
					break
				}
			}
		}
		c.put(v)
	}
	return reassigned
}
