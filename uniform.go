package fray

import "fmt"

// Kind enumerates the shapes a uniform value can take.
type Kind uint8

const (
	// KindInvalid is the zero Kind; a Value of this kind binds nothing.
	KindInvalid Kind = iota

	// KindFloat is a scalar float.
	KindFloat

	// KindInt is a scalar integer.
	KindInt

	// KindBool is a boolean flag.
	KindBool

	// KindVec2 is a 2-component float vector.
	KindVec2

	// KindVec3 is a 3-component float vector.
	KindVec3

	// KindVec4 is a 4-component float vector.
	KindVec4
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindVec2:
		return "vec2"
	case KindVec3:
		return "vec3"
	case KindVec4:
		return "vec4"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a tagged uniform value. The zero Value has KindInvalid.
// Values are small and compared with ==.
type Value struct {
	kind Kind
	vec  [4]float32
	i    int32
	b    bool
}

// Float makes a scalar float value.
func Float(v float32) Value { return Value{kind: KindFloat, vec: [4]float32{v}} }

// Int makes a scalar integer value.
func Int(v int32) Value { return Value{kind: KindInt, i: v} }

// Bool makes a boolean value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Vec2 makes a 2-component vector value.
func Vec2(x, y float32) Value { return Value{kind: KindVec2, vec: [4]float32{x, y}} }

// Vec3 makes a 3-component vector value.
func Vec3(x, y, z float32) Value { return Value{kind: KindVec3, vec: [4]float32{x, y, z}} }

// Vec4 makes a 4-component vector value.
func Vec4(x, y, z, w float32) Value { return Value{kind: KindVec4, vec: [4]float32{x, y, z, w}} }

// Kind returns the value's tag.
func (v Value) Kind() Kind { return v.kind }

// Float returns the scalar float component. Valid for KindFloat.
func (v Value) Float() float32 { return v.vec[0] }

// Int returns the integer component. Valid for KindInt.
func (v Value) Int() int32 { return v.i }

// Bool returns the boolean component. Valid for KindBool.
func (v Value) Bool() bool { return v.b }

// Components returns the float components. For KindVecN the first N entries
// are meaningful; for KindFloat only the first.
func (v Value) Components() [4]float32 { return v.vec }

// componentCount returns how many float components the kind carries when
// packed into a GPU uniform buffer. Int and bool pack as one 32-bit word.
func (k Kind) componentCount() int {
	switch k {
	case KindVec2:
		return 2
	case KindVec3:
		return 3
	case KindVec4:
		return 4
	default:
		return 1
	}
}

// cloneValues deep-copies a uniform table.
func cloneValues(m map[string]Value) map[string]Value {
	if m == nil {
		return nil
	}
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// checkValues verifies that every entry of updates names a declared uniform
// and matches its declared kind. Nothing is applied on failure.
func checkValues(declared, updates map[string]Value) error {
	for name, v := range updates {
		cur, ok := declared[name]
		if !ok {
			return &UniformError{Name: name, Declared: KindInvalid, Got: v.Kind()}
		}
		if cur.Kind() != v.Kind() {
			return &UniformError{Name: name, Declared: cur.Kind(), Got: v.Kind()}
		}
	}
	return nil
}
