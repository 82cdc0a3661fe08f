package oem

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
)

// FormatError reports a malformed or incomplete OEM document. It is fatal at
// load time: no partial dataset is ever published.
type FormatError struct {
	Field  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed OEM document: %s: %s", e.Field, e.Reason)
}

// XML mapping for the NASA ndm/oem document. Only the fields the service
// serves are decoded; everything else in the document is ignored.

type xmlComponent struct {
	Units string `xml:"units,attr"`
	Value string `xml:",chardata"`
}

type xmlStateVector struct {
	Epoch string       `xml:"EPOCH"`
	X     xmlComponent `xml:"X"`
	Y     xmlComponent `xml:"Y"`
	Z     xmlComponent `xml:"Z"`
	XDot  xmlComponent `xml:"X_DOT"`
	YDot  xmlComponent `xml:"Y_DOT"`
	ZDot  xmlComponent `xml:"Z_DOT"`
}

type xmlDocument struct {
	XMLName xml.Name `xml:"ndm"`
	Header  struct {
		CreationDate string `xml:"CREATION_DATE"`
		Originator   string `xml:"ORIGINATOR"`
	} `xml:"oem>header"`
	Segment struct {
		Metadata struct {
			ObjectName string `xml:"OBJECT_NAME"`
			ObjectID   string `xml:"OBJECT_ID"`
			CenterName string `xml:"CENTER_NAME"`
			RefFrame   string `xml:"REF_FRAME"`
			TimeSystem string `xml:"TIME_SYSTEM"`
			StartTime  string `xml:"START_TIME"`
			StopTime   string `xml:"STOP_TIME"`
		} `xml:"metadata"`
		Data struct {
			Comments     []string         `xml:"COMMENT"`
			StateVectors []xmlStateVector `xml:"stateVector"`
		} `xml:"data"`
	} `xml:"oem>body>segment"`
}

// Parse decodes an OEM XML document into a Dataset, preserving the source
// order of comments and state vectors. Returns *FormatError when required
// fields are absent or malformed.
func Parse(r io.Reader) (*Dataset, error) {
	var doc xmlDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &FormatError{Field: "document", Reason: err.Error()}
	}

	header := Header{
		CreationDate: doc.Header.CreationDate,
		Originator:   doc.Header.Originator,
	}
	if header.CreationDate == "" || header.Originator == "" {
		return nil, &FormatError{Field: "header", Reason: "missing CREATION_DATE or ORIGINATOR"}
	}

	md := doc.Segment.Metadata
	metadata := Metadata{
		CenterName: md.CenterName,
		ObjectID:   md.ObjectID,
		ObjectName: md.ObjectName,
		RefFrame:   md.RefFrame,
		StartTime:  md.StartTime,
		StopTime:   md.StopTime,
		TimeSystem: md.TimeSystem,
	}
	if metadata.ObjectName == "" || metadata.RefFrame == "" {
		return nil, &FormatError{Field: "metadata", Reason: "missing OBJECT_NAME or REF_FRAME"}
	}

	// Empty COMMENT elements decode as empty strings; keep them as "" to
	// preserve the comment block's length and ordering.
	comments := make([]string, len(doc.Segment.Data.Comments))
	copy(comments, doc.Segment.Data.Comments)

	vectors := make([]StateVector, 0, len(doc.Segment.Data.StateVectors))
	for i, sv := range doc.Segment.Data.StateVectors {
		rec, err := parseStateVector(sv)
		if err != nil {
			return nil, &FormatError{
				Field:  fmt.Sprintf("stateVector[%d]", i),
				Reason: err.Error(),
			}
		}
		vectors = append(vectors, rec)
	}
	if len(vectors) == 0 {
		return nil, &FormatError{Field: "stateVector", Reason: "document contains no state vectors"}
	}

	return &Dataset{
		Header:       header,
		Metadata:     metadata,
		Comments:     comments,
		StateVectors: vectors,
	}, nil
}

func parseStateVector(sv xmlStateVector) (StateVector, error) {
	if sv.Epoch == "" {
		return StateVector{}, fmt.Errorf("missing EPOCH")
	}
	epochTime, err := ParseEpoch(sv.Epoch)
	if err != nil {
		return StateVector{}, err
	}

	var pos, vel Vector3
	for _, c := range []struct {
		name string
		comp xmlComponent
		dst  *float64
	}{
		{"X", sv.X, &pos.X},
		{"Y", sv.Y, &pos.Y},
		{"Z", sv.Z, &pos.Z},
		{"X_DOT", sv.XDot, &vel.X},
		{"Y_DOT", sv.YDot, &vel.Y},
		{"Z_DOT", sv.ZDot, &vel.Z},
	} {
		v, err := parseComponent(c.name, c.comp)
		if err != nil {
			return StateVector{}, err
		}
		*c.dst = v
	}

	return StateVector{
		Epoch:     sv.Epoch,
		X:         Component{Text: sv.X.Value, Units: sv.X.Units},
		Y:         Component{Text: sv.Y.Value, Units: sv.Y.Units},
		Z:         Component{Text: sv.Z.Value, Units: sv.Z.Units},
		XDot:      Component{Text: sv.XDot.Value, Units: sv.XDot.Units},
		YDot:      Component{Text: sv.YDot.Value, Units: sv.YDot.Units},
		ZDot:      Component{Text: sv.ZDot.Value, Units: sv.ZDot.Units},
		EpochTime: epochTime,
		Position:  pos,
		Velocity:  vel,
	}, nil
}

func parseComponent(name string, c xmlComponent) (float64, error) {
	if c.Value == "" {
		return 0, fmt.Errorf("missing %s", name)
	}
	v, err := strconv.ParseFloat(c.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric %s value %q", name, c.Value)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite %s value %q", name, c.Value)
	}
	return v, nil
}
