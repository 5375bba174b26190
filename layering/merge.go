package layering

import "reflect"

// Shared marks values that must travel through a merge by reference. Layer
// groups and other host objects implement it so that merging option
// snapshots never duplicates a live object.
type Shared interface {
	SharedReference()
}

var sharedType = reflect.TypeOf((*Shared)(nil)).Elem()

// MergeLayers composes snapshots ordered from strongest to weakest. Nested
// structs merge field by field, maps merge key by key, while slices and
// scalars from a stronger layer replace the weaker value. Nil pointers, maps,
// slices and interfaces count as "not set" and let the weaker value through.
func MergeLayers[T any](layers ...T) T {
	if len(layers) == 0 {
		var zero T
		return zero
	}
	merged := cloneValue(reflect.ValueOf(layers[len(layers)-1]))
	for i := len(layers) - 2; i >= 0; i-- {
		merged = mergeValue(reflect.ValueOf(layers[i]), merged)
	}
	return valueAs[T](merged)
}

// Clone returns a deep copy of value. Shared values are copied by reference.
func Clone[T any](value T) T {
	return valueAs[T](cloneValue(reflect.ValueOf(value)))
}

func valueAs[T any](v reflect.Value) T {
	var zero T
	if !v.IsValid() {
		return zero
	}
	target := reflect.TypeOf((*T)(nil)).Elem()
	if v.Type() == target {
		return v.Interface().(T)
	}
	out := reflect.New(target).Elem()
	out.Set(v.Convert(target))
	return out.Interface().(T)
}

func nilable(kind reflect.Kind) bool {
	switch kind {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

// unset reports whether v lets the weaker layer through.
func unset(v reflect.Value) bool {
	return !v.IsValid() || (nilable(v.Kind()) && v.IsNil())
}

func isShared(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}
	if v.Kind() == reflect.Interface {
		return !v.IsNil() && v.Elem().Type().Implements(sharedType)
	}
	return v.Type().Implements(sharedType)
}

func mergeValue(strong, weak reflect.Value) reflect.Value {
	switch {
	case unset(strong):
		return cloneValue(weak)
	case isShared(strong):
		return strong
	}

	switch strong.Kind() {
	case reflect.Pointer:
		return mergePointer(strong, weak)
	case reflect.Interface:
		return mergeInterface(strong, weak)
	case reflect.Struct:
		return mergeStruct(strong, weak)
	case reflect.Map:
		return mergeMap(strong, weak)
	default:
		// slices, arrays and scalars replace
		return cloneValue(strong)
	}
}

func mergePointer(strong, weak reflect.Value) reflect.Value {
	var weakElem reflect.Value
	if weak.IsValid() && weak.Kind() == reflect.Pointer && !weak.IsNil() {
		weakElem = weak.Elem()
	}
	out := reflect.New(strong.Type().Elem())
	out.Elem().Set(mergeValue(strong.Elem(), weakElem))
	return out
}

// mergeInterface merges the dynamic values only when both sides hold the
// same concrete type; otherwise the stronger value wins outright.
func mergeInterface(strong, weak reflect.Value) reflect.Value {
	var weakElem reflect.Value
	if weak.IsValid() && weak.Kind() == reflect.Interface && !weak.IsNil() && weak.Elem().Type() == strong.Elem().Type() {
		weakElem = weak.Elem()
	}
	out := reflect.New(strong.Type()).Elem()
	out.Set(mergeValue(strong.Elem(), weakElem))
	return out
}

func mergeStruct(strong, weak reflect.Value) reflect.Value {
	out := reflect.New(strong.Type()).Elem()
	sameType := weak.IsValid() && weak.Type() == strong.Type()
	for i := 0; i < strong.NumField(); i++ {
		field := out.Field(i)
		if !field.CanSet() {
			continue
		}
		var weakField reflect.Value
		if sameType {
			weakField = weak.Field(i)
		}
		field.Set(mergeValue(strong.Field(i), weakField))
	}
	return out
}

func mergeMap(strong, weak reflect.Value) reflect.Value {
	out := reflect.MakeMapWithSize(strong.Type(), strong.Len())
	if weak.IsValid() && weak.Kind() == reflect.Map && !weak.IsNil() {
		for iter := weak.MapRange(); iter.Next(); {
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
	}
	for iter := strong.MapRange(); iter.Next(); {
		key := iter.Key()
		if existing := out.MapIndex(key); existing.IsValid() {
			out.SetMapIndex(key, mergeValue(iter.Value(), existing))
			continue
		}
		out.SetMapIndex(key, cloneValue(iter.Value()))
	}
	return out
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() || isShared(v) {
		return v
	}
	if nilable(v.Kind()) && v.IsNil() {
		return reflect.Zero(v.Type())
	}

	switch v.Kind() {
	case reflect.Pointer:
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(cloneValue(v.Elem()))
		return out
	case reflect.Interface:
		out := reflect.New(v.Type()).Elem()
		out.Set(cloneValue(v.Elem()))
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			if field := out.Field(i); field.CanSet() {
				field.Set(cloneValue(v.Field(i)))
			}
		}
		return out
	case reflect.Map:
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		for iter := v.MapRange(); iter.Next(); {
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return out
	case reflect.Slice:
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out
	default:
		if !v.CanInterface() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		return out
	}
}
