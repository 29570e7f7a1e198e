package turn

// Merge applies a shallow patch: every key in patch replaces the same key
// in container, nested values included, and every other key is kept. The
// result is a new map; container is never modified.
func Merge(container, patch Container) Container {
	next := make(Container, len(container)+len(patch))
	for k, v := range container {
		next[k] = v
	}
	for k, v := range patch {
		next[k] = v
	}
	return next
}
