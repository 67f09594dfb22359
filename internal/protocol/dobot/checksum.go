package dobot

// CalculateChecksum 计算校验字节
// 数据区：从 len 字段开始到载荷末尾；结果使数据区与校验字节之和模 256 为 0
func CalculateChecksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return -sum
}

// VerifyChecksum 校验 dataWithChecksum（从 len 字段到校验字节，含校验字节）
func VerifyChecksum(dataWithChecksum []byte) error {
	if len(dataWithChecksum) < 1 {
		return ErrBufferTooSmall
	}
	var sum byte
	for _, b := range dataWithChecksum {
		sum += b
	}
	if sum != 0 {
		return ErrChecksum
	}
	return nil
}
