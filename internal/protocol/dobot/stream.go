package dobot

// StreamDecoder 处理串口半包/粘包的流式解码器
type StreamDecoder struct {
	buf []byte
	// 因校验失败或长度异常被丢弃的字节数
	dropped int
	// 最近一个长度完整但校验失败的候选帧
	corrupt []byte
}

// NewStreamDecoder 创建流式解码器
func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{buf: make([]byte, 0, MaxPacketSize)}
}

// Feed 追加数据并尽可能解出多帧；返回的每帧均为独立拷贝，且已通过同步字节、长度与校验
func (d *StreamDecoder) Feed(p []byte) [][]byte {
	d.buf = append(d.buf, p...)
	var frames [][]byte

	for {
		start := indexSync(d.buf)
		if start < 0 {
			// 无同步字节：保留最后 1 字节以应对跨边界的 AA AA
			if len(d.buf) > 1 {
				d.dropped += len(d.buf) - 1
				d.buf = append(d.buf[:0], d.buf[len(d.buf)-1])
			}
			return frames
		}
		if start > 0 {
			d.dropped += start
			d.buf = append(d.buf[:0], d.buf[start:]...)
		}
		if len(d.buf) < 3 {
			return frames
		}
		total := FrameLen(d.buf)
		if d.buf[2] < 2 || total > MaxPacketSize {
			d.discard(1)
			continue
		}
		if len(d.buf) < total {
			// 半包，等待更多
			return frames
		}
		if VerifyChecksum(d.buf[2:total]) != nil {
			d.corrupt = append(d.corrupt[:0], d.buf[:total]...)
			d.discard(1)
			continue
		}
		frame := make([]byte, total)
		copy(frame, d.buf[:total])
		frames = append(frames, frame)
		d.buf = append(d.buf[:0], d.buf[total:]...)
		if len(d.buf) == 0 {
			return frames
		}
	}
}

// Buffered 当前缓存中尚未成帧的字节数
func (d *StreamDecoder) Buffered() int { return len(d.buf) }

// Dropped 累计丢弃的字节数
func (d *StreamDecoder) Dropped() int { return d.dropped }

// Corrupt 返回最近一个校验失败的候选帧；没有时为 nil
func (d *StreamDecoder) Corrupt() []byte {
	if len(d.corrupt) == 0 {
		return nil
	}
	return d.corrupt
}

// Pending 缓存中是否还有可能成帧的半包
func (d *StreamDecoder) Pending() bool {
	switch len(d.buf) {
	case 0:
		return false
	case 1:
		return d.buf[0] == syncBytes[0]
	}
	return true
}

// Reset 清空缓存与校验失败记录
func (d *StreamDecoder) Reset() {
	d.buf = d.buf[:0]
	d.corrupt = d.corrupt[:0]
}

func (d *StreamDecoder) discard(n int) {
	d.dropped += n
	d.buf = append(d.buf[:0], d.buf[n:]...)
}

func indexSync(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == syncBytes[0] && b[i+1] == syncBytes[1] {
			return i
		}
	}
	return -1
}
