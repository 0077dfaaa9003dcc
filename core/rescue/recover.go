package rescue

import (
	"fmt"

	"github.com/world-in-progress/docrepo/core/logger"
)

// Recover turns a panic in the deferring function into an error stored in err.
// It must be called directly by defer.
func Recover(err *error, cleanups ...func()) {
	if r := recover(); r != nil {
		for _, cleanup := range cleanups {
			cleanup()
		}
		logger.Error("Recovered from panic: %v", r)
		if err != nil {
			*err = fmt.Errorf("recovered from panic: %v", r)
		}
	}
}
