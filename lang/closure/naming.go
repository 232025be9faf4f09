package closure

import "fmt"

// flatID is the monotonic counter backing every generated flat name. It is
// process-wide by design: two functions lifted out of unrelated top-level
// forms must never collide, even across separate calls to Convert.
var flatID int

// nextFlatName returns a fresh globally unique name for a function lifted
// out of its enclosing definition, derived from the name the user gave it.
func nextFlatName(basename string) string {
	flatID++
	return fmt.Sprintf("%s#%d", basename, flatID)
}
