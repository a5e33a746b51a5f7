package dialog

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewReferenceID returns an id of the form GBV-<unix millis>-<suffix>.
// The suffix carries 32 random bits, so ids minted in the same
// millisecond for different users do not collide in practice.
func NewReferenceID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("GBV-%d-%s", now.UnixMilli(), suffix)
}
