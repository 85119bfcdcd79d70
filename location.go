package reflex

// Location tells where a member's storage lives. It is a closed set:
// FieldLocation, StaticLocation, ReferenceLocation and FuncLocation.
type Location interface {
	isLocation()
}

// FieldLocation is storage at a fixed offset inside the instance.
type FieldLocation struct {
	Offset uintptr
	Index  []int // reflect field index; nil when probed through an accessor
}

// StaticLocation is storage shared by all instances.
type StaticLocation struct{}

// ReferenceLocation is storage reached through a pointer held by, or
// computed from, the instance. It has no fixed offset.
type ReferenceLocation struct {
	Accessor bool // computed by an accessor func rather than a pointer field
}

// FuncLocation marks function members.
type FuncLocation struct{}

func (FieldLocation) isLocation()     {}
func (StaticLocation) isLocation()    {}
func (ReferenceLocation) isLocation() {}
func (FuncLocation) isLocation()      {}
