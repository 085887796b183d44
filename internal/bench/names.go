package bench

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// UniqueName appends a random 32-bit hex suffix to a resource base name so
// concurrent runs on the same host do not collide. When the base name carries
// a file extension the suffix is inserted before it.
func UniqueName(base string) string {
	id := uuid.New()
	suffix := fmt.Sprintf("%08x", binary.BigEndian.Uint32(id[:4]))

	if dot := strings.LastIndex(base, "."); dot >= 0 {
		return base[:dot] + "_" + suffix + base[dot:]
	}
	return base + "_" + suffix
}
