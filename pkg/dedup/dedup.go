// Package dedup derives stable document names from the identity of a fetched item.
package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Hash returns the hex MD5 digest of key. It is an identifier, not a security primitive.
func Hash(key string) string {
	sum := md5.Sum([]byte(key))

	return hex.EncodeToString(sum[:])
}

// FileName returns "<prefix>_<hash(key)>.json".
func FileName(prefix, key string) string {
	return prefix + "_" + Hash(key) + ".json"
}

// HasPrefix reports whether name was produced by FileName with prefix.
func HasPrefix(name, prefix string) bool {
	return strings.HasPrefix(name, prefix+"_") && strings.HasSuffix(name, ".json")
}
