package dobot

// 帧格式：AA AA | len(1) | id(1) | ctrl(1) | payload(len-2) | chk(1)
// len = 2 + payload 长度；chk 使 len..payload..chk 之和模 256 为 0
const (
	// MaxPacketSize 单帧上限，编码使用固定大小缓冲区，不做动态扩容
	MaxPacketSize = 128

	// MinPacketSize sync + len + chk
	MinPacketSize = 4

	headerSize = 5

	ctrlQueued byte = 1 << 0
	ctrlRead   byte = 1 << 1
)

var syncBytes = [2]byte{0xAA, 0xAA}

// Header 帧的命令字与控制位
type Header struct {
	ID       CommandID
	IsQueued bool
	IsRead   bool
}

func (h Header) ctrl() byte {
	var c byte
	if h.IsQueued {
		c |= ctrlQueued
	}
	if h.IsRead {
		c |= ctrlRead
	}
	return c
}

// Frame 一帧完整报文；IsQueued 时请求方载荷固定为 8 字节队列槽位，Body 必须为空
type Frame[B Body] struct {
	Header
	Body B
}

// RawFrame ParseFrame[Raw] 的结果类型，载荷不做解释
type RawFrame = Frame[*Raw]

func (f Frame[B]) payloadLen() (int, error) {
	n := f.Body.Size()
	if f.IsQueued {
		if n != 0 {
			return 0, ErrPassedBodyAndQueuedIndex
		}
		return queueIndexSize, nil
	}
	return n, nil
}

// Len 编码后的总字节数
func (f Frame[B]) Len() (int, error) {
	n, err := f.payloadLen()
	if err != nil {
		return 0, err
	}
	return MinPacketSize + 2 + n, nil
}

// Encode 将帧写入 buf，返回写入字节数
func (f Frame[B]) Encode(buf []byte) (int, error) {
	payloadLen, err := f.payloadLen()
	if err != nil {
		return 0, err
	}
	contentLen := 2 + payloadLen
	total := MinPacketSize + contentLen
	if total > MaxPacketSize || len(buf) < total {
		return 0, ErrBufferTooSmall
	}

	buf[0], buf[1] = syncBytes[0], syncBytes[1]
	buf[2] = byte(contentLen)
	buf[3] = byte(f.ID)
	buf[4] = f.ctrl()

	end := headerSize + payloadLen
	if f.IsQueued {
		clear(buf[headerSize:end])
	} else {
		n, err := f.Body.Serialize(buf[headerSize:end])
		if err != nil {
			return 0, err
		}
		if n != payloadLen {
			return 0, ErrLengthMismatch
		}
	}
	buf[end] = CalculateChecksum(buf[2:end])
	return total, nil
}

// MarshalBinary 分配恰好大小的切片并编码
func (f Frame[B]) MarshalBinary() ([]byte, error) {
	n, err := f.Len()
	if err != nil {
		return nil, err
	}
	if n > MaxPacketSize {
		return nil, ErrBufferTooSmall
	}
	buf := make([]byte, n)
	if _, err := f.Encode(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Split 校验帧结构并返回帧头与载荷切片（引用 packet，不拷贝）
func Split(packet []byte) (Header, []byte, error) {
	if len(packet) < MinPacketSize {
		return Header{}, nil, ErrBufferTooSmall
	}
	if packet[0] != syncBytes[0] || packet[1] != syncBytes[1] {
		return Header{}, nil, ErrMissingStartBytes
	}
	contentLen := int(packet[2])
	total := MinPacketSize + contentLen
	if len(packet) < total || contentLen < 2 {
		return Header{}, nil, ErrLengthMismatch
	}
	if err := VerifyChecksum(packet[2:total]); err != nil {
		return Header{}, nil, err
	}
	id, err := ParseCommandID(packet[3])
	if err != nil {
		return Header{}, nil, err
	}
	ctrl := packet[4]
	h := Header{
		ID:       id,
		IsQueued: ctrl&ctrlQueued != 0,
		IsRead:   ctrl&ctrlRead != 0,
	}
	return h, packet[headerSize : 3+contentLen], nil
}

// Unpack 校验帧并将载荷解码到 body
func Unpack(packet []byte, body Decoder) (Header, error) {
	h, payload, err := Split(packet)
	if err != nil {
		return Header{}, err
	}
	if err := body.Deserialize(payload); err != nil {
		return Header{}, err
	}
	return h, nil
}

// ParseFrame 泛型解码：按 T 的格式解析载荷
func ParseFrame[T any, PT BodyPtr[T]](packet []byte) (Frame[PT], error) {
	body := PT(new(T))
	h, err := Unpack(packet, body)
	if err != nil {
		return Frame[PT]{}, err
	}
	return Frame[PT]{Header: h, Body: body}, nil
}

// FrameLen 根据已到达的前 3 字节推算整帧长度；不足 3 字节返回 0
func FrameLen(prefix []byte) int {
	if len(prefix) < 3 {
		return 0
	}
	return MinPacketSize + int(prefix[2])
}
