package utils

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// recordSpace scopes the UUIDv5 ids of index records so they never collide
// with ids derived elsewhere from the same names.
var recordSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("yap-engine/records"))

var newlineReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// RecordID is stable for a (namespace, filename, chunk) triple, so uploading
// the same file twice overwrites the earlier points instead of duplicating them.
func RecordID(namespace, filename string, chunk int) string {
	return uuid.NewSHA1(recordSpace, []byte(namespace+"\x00"+filename+"\x00"+strconv.Itoa(chunk))).String()
}

// RecordKey is the human readable key kept in the record payload.
func RecordKey(filename string, chunk int) string {
	return filename + "_" + strconv.Itoa(chunk)
}

// FlattenNewlines replaces line breaks with spaces. Some embedding providers
// mis-handle raw newlines in their inputs.
func FlattenNewlines(s string) string {
	return newlineReplacer.Replace(s)
}

func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
