package proxyparser

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
)

// Hash computes the 32-bit join key for (ip, port, username, password): the
// top eight hex digits of MD5(ip+port+username+password), parsed as a
// uint32. It is stable regardless of whether ip/port are later stored as
// strings or integers, since it is always computed from their string form.
func Hash(ip, port, username, password string) uint32 {
	sum := md5.Sum([]byte(ip + port + username + password))
	prefix := hex.EncodeToString(sum[:])[:8]
	n, _ := strconv.ParseUint(prefix, 16, 32)
	return uint32(n)
}
