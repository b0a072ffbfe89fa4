package optimizer

import (
	"fmt"

	"github.com/google/uuid"
)

func defaultID(kind, trainID string) string {
	return fmt.Sprintf("opt_%s_%s_%s", kind, trainID, uuid.NewString()[:8])
}
