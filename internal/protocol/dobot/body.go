package dobot

import (
	"encoding/binary"
	"math"
)

// Body 载荷序列化契约：Serialize 恰好写入 Size() 个字节
type Body interface {
	Size() int
	Serialize(buf []byte) (int, error)
}

// Decoder 载荷反序列化契约：buf 长度不足返回 ErrBufferTooSmall，不得 panic
type Decoder interface {
	Deserialize(buf []byte) error
}

// BodyPtr 泛型约束：*T 同时具备编码与解码能力
type BodyPtr[T any] interface {
	*T
	Body
	Decoder
}

// Writer 小端写入器，每次写入前检查剩余空间
type Writer struct {
	buf []byte
	off int
	err error
}

func NewWriter(buf []byte) *Writer { return &Writer{buf: buf} }

func (w *Writer) reserve(n int) []byte {
	if w.err != nil {
		return nil
	}
	if len(w.buf)-w.off < n {
		w.err = ErrBufferTooSmall
		return nil
	}
	b := w.buf[w.off : w.off+n]
	w.off += n
	return b
}

func (w *Writer) PutUint8(v uint8) {
	if b := w.reserve(1); b != nil {
		b[0] = v
	}
}

func (w *Writer) PutBool(v bool) {
	if v {
		w.PutUint8(1)
		return
	}
	w.PutUint8(0)
}

func (w *Writer) PutUint16(v uint16) {
	if b := w.reserve(2); b != nil {
		binary.LittleEndian.PutUint16(b, v)
	}
}

func (w *Writer) PutUint32(v uint32) {
	if b := w.reserve(4); b != nil {
		binary.LittleEndian.PutUint32(b, v)
	}
}

func (w *Writer) PutUint64(v uint64) {
	if b := w.reserve(8); b != nil {
		binary.LittleEndian.PutUint64(b, v)
	}
}

func (w *Writer) PutFloat32(v float32) { w.PutUint32(math.Float32bits(v)) }

func (w *Writer) PutBytes(p []byte) {
	if b := w.reserve(len(p)); b != nil {
		copy(b, p)
	}
}

// Finish 返回已写入字节数或首个错误
func (w *Writer) Finish() (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	return w.off, nil
}

// Reader 小端读取器，读取前检查剩余长度
type Reader struct {
	buf []byte
	off int
	err error
}

func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf)-r.off < n {
		r.err = ErrBufferTooSmall
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) Uint8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

// Bool 仅接受 0/1
func (r *Reader) Bool() bool {
	v := r.Uint8()
	if r.err == nil && v > 1 {
		r.err = ErrInvalidEnumValue
	}
	return v == 1
}

func (r *Reader) Uint16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *Reader) Uint32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *Reader) Uint64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *Reader) Float32() float32 { return math.Float32frombits(r.Uint32()) }

// Bytes 返回 n 字节的拷贝
func (r *Reader) Bytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Fail 记录解码过程中的语义错误（如未知枚举值）
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) Err() error { return r.err }

// Remaining 剩余未读字节数
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Empty 零长度标记体
type Empty struct{}

func (Empty) Size() int                         { return 0 }
func (Empty) Serialize(buf []byte) (int, error) { return 0, nil }
func (*Empty) Deserialize(buf []byte) error     { return nil }

// Raw 透传任意字节，用于字符串与不透明参数；解码时拷贝为独立切片
type Raw []byte

func (r Raw) Size() int { return len(r) }

func (r Raw) Serialize(buf []byte) (int, error) {
	if len(buf) < len(r) {
		return 0, ErrBufferTooSmall
	}
	return copy(buf, r), nil
}

func (r *Raw) Deserialize(buf []byte) error {
	*r = append((*r)[:0], buf...)
	return nil
}

// QueueIndex 队列命令在设备端分配的序号（8 字节小端）
type QueueIndex uint64

const queueIndexSize = 8

func (QueueIndex) Size() int { return queueIndexSize }

func (q QueueIndex) Serialize(buf []byte) (int, error) {
	w := NewWriter(buf)
	w.PutUint64(uint64(q))
	return w.Finish()
}

func (q *QueueIndex) Deserialize(buf []byte) error {
	r := NewReader(buf)
	v := r.Uint64()
	if err := r.Err(); err != nil {
		return err
	}
	*q = QueueIndex(v)
	return nil
}

// Bool 单字节布尔体
type Bool bool

func (Bool) Size() int { return 1 }

func (b Bool) Serialize(buf []byte) (int, error) {
	w := NewWriter(buf)
	w.PutBool(bool(b))
	return w.Finish()
}

func (b *Bool) Deserialize(buf []byte) error {
	r := NewReader(buf)
	v := r.Bool()
	if err := r.Err(); err != nil {
		return err
	}
	*b = Bool(v)
	return nil
}

// Uint8 单字节整数体
type Uint8 uint8

func (Uint8) Size() int { return 1 }

func (u Uint8) Serialize(buf []byte) (int, error) {
	w := NewWriter(buf)
	w.PutUint8(uint8(u))
	return w.Finish()
}

func (u *Uint8) Deserialize(buf []byte) error {
	r := NewReader(buf)
	v := r.Uint8()
	if err := r.Err(); err != nil {
		return err
	}
	*u = Uint8(v)
	return nil
}

// Uint32 4 字节小端整数体
type Uint32 uint32

func (Uint32) Size() int { return 4 }

func (u Uint32) Serialize(buf []byte) (int, error) {
	w := NewWriter(buf)
	w.PutUint32(uint32(u))
	return w.Finish()
}

func (u *Uint32) Deserialize(buf []byte) error {
	r := NewReader(buf)
	v := r.Uint32()
	if err := r.Err(); err != nil {
		return err
	}
	*u = Uint32(v)
	return nil
}

// Float32 4 字节小端浮点体
type Float32 float32

func (Float32) Size() int { return 4 }

func (f Float32) Serialize(buf []byte) (int, error) {
	w := NewWriter(buf)
	w.PutFloat32(float32(f))
	return w.Finish()
}

func (f *Float32) Deserialize(buf []byte) error {
	r := NewReader(buf)
	v := r.Float32()
	if err := r.Err(); err != nil {
		return err
	}
	*f = Float32(v)
	return nil
}

// Float4 四个 float32 组成的 16 字节参数体（速度/加速度/坐标等）
type Float4 [4]float32

func (Float4) Size() int { return 16 }

func (f Float4) Serialize(buf []byte) (int, error) {
	w := NewWriter(buf)
	for _, v := range f {
		w.PutFloat32(v)
	}
	return w.Finish()
}

func (f *Float4) Deserialize(buf []byte) error {
	r := NewReader(buf)
	var out Float4
	for i := range out {
		out[i] = r.Float32()
	}
	if err := r.Err(); err != nil {
		return err
	}
	*f = out
	return nil
}

// Pose 实时位姿：笛卡尔坐标 x,y,z,r 与四个关节角
type Pose struct {
	X, Y, Z, R float32
	Joints     [4]float32
}

func (Pose) Size() int { return 32 }

func (p Pose) Serialize(buf []byte) (int, error) {
	w := NewWriter(buf)
	w.PutFloat32(p.X)
	w.PutFloat32(p.Y)
	w.PutFloat32(p.Z)
	w.PutFloat32(p.R)
	for _, j := range p.Joints {
		w.PutFloat32(j)
	}
	return w.Finish()
}

func (p *Pose) Deserialize(buf []byte) error {
	r := NewReader(buf)
	var out Pose
	out.X = r.Float32()
	out.Y = r.Float32()
	out.Z = r.Float32()
	out.R = r.Float32()
	for i := range out.Joints {
		out.Joints[i] = r.Float32()
	}
	if err := r.Err(); err != nil {
		return err
	}
	*p = out
	return nil
}
