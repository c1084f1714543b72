package internal

import (
	"fmt"
	"strconv"
	"time"
)

// Both may be overridden with -ldflags "-X ...".
var (
	commitVersion = "v0.1"
	// commitDate in epoch seconds
	commitDate = "1700000000"
)

// GetVersion - get version and also commitHash and commitDate if inserted via Makefile
func GetVersion() string {
	seconds, _ := strconv.Atoi(commitDate)
	if commitDate != "" {
		t := time.Unix(int64(seconds), 0)
		return fmt.Sprintf("%s, date: %s", commitVersion, t.Format("2006-01-02"))
	}
	return commitVersion
}
