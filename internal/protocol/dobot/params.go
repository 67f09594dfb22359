package dobot

import "strconv"

// TagVersion 滑轨版本
type TagVersion uint8

const (
	TagVersionV1 TagVersion = iota
	TagVersionV2
)

func parseTagVersion(b byte) (TagVersion, error) {
	switch TagVersion(b) {
	case TagVersionV1, TagVersionV2:
		return TagVersion(b), nil
	default:
		return 0, &InvalidTagVersionError{Byte: b}
	}
}

// WithRail DeviceInfo.WithRail 的请求/响应体：是否接入滑轨及其版本
type WithRail struct {
	Enabled bool
	Version TagVersion
}

func (WithRail) Size() int { return 2 }

func (w WithRail) Serialize(buf []byte) (int, error) {
	wr := NewWriter(buf)
	wr.PutBool(w.Enabled)
	wr.PutUint8(uint8(w.Version))
	return wr.Finish()
}

func (w *WithRail) Deserialize(buf []byte) error {
	r := NewReader(buf)
	enabled := r.Bool()
	raw := r.Uint8()
	if err := r.Err(); err != nil {
		return err
	}
	v, err := parseTagVersion(raw)
	if err != nil {
		return err
	}
	*w = WithRail{Enabled: enabled, Version: v}
	return nil
}

// HandheldTrigMode 手持示教触发模式
type HandheldTrigMode uint8

const (
	TriggeredOnKeyReleased HandheldTrigMode = iota
	TriggeredOnPeriodicInterval
)

func (HandheldTrigMode) Size() int { return 1 }

func (m HandheldTrigMode) Serialize(buf []byte) (int, error) {
	w := NewWriter(buf)
	w.PutUint8(uint8(m))
	return w.Finish()
}

func (m *HandheldTrigMode) Deserialize(buf []byte) error {
	r := NewReader(buf)
	b := r.Uint8()
	if err := r.Err(); err != nil {
		return err
	}
	switch HandheldTrigMode(b) {
	case TriggeredOnKeyReleased, TriggeredOnPeriodicInterval:
		*m = HandheldTrigMode(b)
		return nil
	default:
		return &InvalidHHTTrigModeError{Byte: b}
	}
}

// Orientation 机械臂左右手姿态
type Orientation uint8

const (
	OrientationLeft Orientation = iota
	OrientationRight
)

func (Orientation) Size() int { return 1 }

func (o Orientation) Serialize(buf []byte) (int, error) {
	w := NewWriter(buf)
	w.PutUint8(uint8(o))
	return w.Finish()
}

func (o *Orientation) Deserialize(buf []byte) error {
	r := NewReader(buf)
	b := r.Uint8()
	if err := r.Err(); err != nil {
		return err
	}
	if Orientation(b) > OrientationRight {
		return ErrInvalidEnumValue
	}
	*o = Orientation(b)
	return nil
}

// Version DeviceInfo.Version 的响应体：固件主版本、次版本、修订号
type Version struct {
	Major    uint8 `json:"major"`
	Minor    uint8 `json:"minor"`
	Revision uint8 `json:"revision"`
}

func (Version) Size() int { return 3 }

func (v Version) Serialize(buf []byte) (int, error) {
	w := NewWriter(buf)
	w.PutUint8(v.Major)
	w.PutUint8(v.Minor)
	w.PutUint8(v.Revision)
	return w.Finish()
}

func (v *Version) Deserialize(buf []byte) error {
	r := NewReader(buf)
	out := Version{Major: r.Uint8(), Minor: r.Uint8(), Revision: r.Uint8()}
	if err := r.Err(); err != nil {
		return err
	}
	*v = out
	return nil
}

func (v Version) String() string {
	return strconv.Itoa(int(v.Major)) + "." + strconv.Itoa(int(v.Minor)) + "." + strconv.Itoa(int(v.Revision))
}
