package blob

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectName returns a unique, path-safe name that keeps the original file
// name readable. A missing extension is derived from contentType.
func ObjectName(filename, contentType string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		base = "photo"
	}
	if filepath.Ext(base) == "" && contentType != "" {
		if mime := mimetype.Lookup(contentType); mime != nil {
			base += mime.Extension()
		}
	}
	return uuid.NewString() + "_" + base
}

// ValidName reports whether name can be an object created by ObjectName.
func ValidName(name string) bool {
	return name != "" && name == filepath.Base(name) && !unsafeChars.MatchString(name) && !strings.HasPrefix(name, ".")
}
