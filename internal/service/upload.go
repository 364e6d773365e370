package service

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileUpload carries an uploaded file through the service layer. Data is
// fully read by the handler so validation can happen before any external
// call.
type FileUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// documentExtensions is the allow-list for identity documents.
var documentExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
}

// imageExtensions is the allow-list for event images.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

func allowedExtension(filename string, allowed map[string]bool) bool {
	return allowed[strings.ToLower(filepath.Ext(filename))]
}

// storageKey builds a collision-free object key preserving the original
// filename for debuggability.
func storageKey(prefix, filename string) string {
	return fmt.Sprintf("%s/%s-%s", prefix, uuid.New().String(), filepath.Base(filename))
}
