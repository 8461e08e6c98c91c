package render

// Iterator is a lazy, not restartable sequence. Next returns false when the sequence
// is exhausted or failed, Err tells which.
type Iterator[T any] interface {
	Next() bool
	Value() T
	Err() error
	Close() error
}

// Keep wraps src and yields only values matching keep.
func Keep[T any](src Iterator[T], keep func(T) bool) Iterator[T] {
	return &keepIterator[T]{src: src, keep: keep}
}

type keepIterator[T any] struct {
	src  Iterator[T]
	keep func(T) bool
}

func (it *keepIterator[T]) Next() bool {
	for it.src.Next() {
		if it.keep(it.src.Value()) {
			return true
		}
	}
	return false
}

func (it *keepIterator[T]) Value() T     { return it.src.Value() }
func (it *keepIterator[T]) Err() error   { return it.src.Err() }
func (it *keepIterator[T]) Close() error { return it.src.Close() }

// Images yields only the raster image objects of src.
func Images(src Iterator[Object]) Iterator[Object] {
	return Keep(src, func(o Object) bool {
		_, ok := o.(ImageObject)
		return ok && o.Kind() == ObjectImage
	})
}

// Slice makes an iterator over values already in memory.
func Slice[T any](values []T) Iterator[T] {
	return &sliceIterator[T]{values: values, pos: -1}
}

type sliceIterator[T any] struct {
	values []T
	pos    int
}

func (it *sliceIterator[T]) Next() bool {
	if it.pos+1 >= len(it.values) {
		it.pos = len(it.values)
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator[T]) Value() T {
	var zero T
	if it.pos < 0 || it.pos >= len(it.values) {
		return zero
	}
	return it.values[it.pos]
}

func (it *sliceIterator[T]) Err() error   { return nil }
func (it *sliceIterator[T]) Close() error { return nil }
