package oem

import "time"

// Header holds the OEM file-level metadata.
type Header struct {
	CreationDate string `json:"CREATION_DATE"`
	Originator   string `json:"ORIGINATOR"`
}

// Metadata describes the trajectory segment: object identity, reference
// frame, time system, and coverage window.
type Metadata struct {
	CenterName string `json:"CENTER_NAME"`
	ObjectID   string `json:"OBJECT_ID"`
	ObjectName string `json:"OBJECT_NAME"`
	RefFrame   string `json:"REF_FRAME"`
	StartTime  string `json:"START_TIME"`
	StopTime   string `json:"STOP_TIME"`
	TimeSystem string `json:"TIME_SYSTEM"`
}

// Component is a single numeric state-vector component. The raw source
// string and its units attribute are kept verbatim so epoch JSON serializes
// in the same {"#text","@units"} shape the upstream consumers expect.
type Component struct {
	Text  string `json:"#text"`
	Units string `json:"@units"`
}

// Vector3 holds parsed Cartesian components in km (position) or km/s (velocity).
type Vector3 struct {
	X, Y, Z float64
}

// StateVector is one timestamped position/velocity sample. Records are
// immutable after parse; both the raw components (for serialization) and the
// parsed values (for computation) are validated once at load time.
type StateVector struct {
	Epoch     string    `json:"EPOCH"`
	X         Component `json:"X"`
	Y         Component `json:"Y"`
	Z         Component `json:"Z"`
	XDot      Component `json:"X_DOT"`
	YDot      Component `json:"Y_DOT"`
	ZDot      Component `json:"Z_DOT"`
	EpochTime time.Time `json:"-"`
	Position  Vector3   `json:"-"`
	Velocity  Vector3   `json:"-"`
}

// Dataset is a complete parsed OEM document. Never mutated after load; the
// Store swaps whole Dataset pointers when the source is re-fetched.
type Dataset struct {
	Source       string
	FetchedAt    time.Time
	Header       Header
	Metadata     Metadata
	Comments     []string
	StateVectors []StateVector
}
