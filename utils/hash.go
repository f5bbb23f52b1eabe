package utils

import (
	"crypto/md5"
	"encoding/hex"
)

// BytesMD5 计算字节数组MD5
func BytesMD5(data []byte) string {
	hash := md5.New()
	hash.Write(data)
	return hex.EncodeToString(hash.Sum(nil))
}

// RequestKey 由图片内容和操作参数计算缓存键，参数顺序参与计算
func RequestKey(data []byte, parts ...string) string {
	hash := md5.New()
	hash.Write(data)
	for _, p := range parts {
		hash.Write([]byte{0})
		hash.Write([]byte(p))
	}
	return hex.EncodeToString(hash.Sum(nil))
}
