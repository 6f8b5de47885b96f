package storage

// keyed is a name-indexed collection that remembers insertion order.
type keyed[T any] struct {
	items map[string]T
	order []string
}

func newKeyed[T any]() *keyed[T] {
	return &keyed[T]{items: make(map[string]T)}
}

func (k *keyed[T]) add(name string, v T) error {
	if name == "" {
		return ErrEmptyName
	}
	if _, ok := k.items[name]; ok {
		return ErrDuplicateName
	}
	k.items[name] = v
	k.order = append(k.order, name)
	return nil
}

func (k *keyed[T]) get(name string) (T, bool) {
	v, ok := k.items[name]
	return v, ok
}

func (k *keyed[T]) replace(name string, v T) bool {
	if _, ok := k.items[name]; !ok {
		return false
	}
	k.items[name] = v
	return true
}

func (k *keyed[T]) delete(name string) bool {
	if _, ok := k.items[name]; !ok {
		return false
	}
	delete(k.items, name)
	for i, n := range k.order {
		if n == name {
			k.order = append(k.order[:i], k.order[i+1:]...)
			break
		}
	}
	return true
}

func (k *keyed[T]) list() []T {
	out := make([]T, 0, len(k.order))
	for _, n := range k.order {
		out = append(out, k.items[n])
	}
	return out
}
