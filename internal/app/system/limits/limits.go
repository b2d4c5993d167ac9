// internal/app/system/limits/limits.go
package limits

import "github.com/dalemusser/residencyhub/internal/app/system/csvutil"

// Request body size limits for various features.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxUploadRequest bounds a multipart CSV upload: the file plus form
	// fields and multipart framing.
	MaxUploadRequest = csvutil.MaxUploadSize + 64<<10

	// MaxMultipartMemory is how much of an upload is buffered in memory
	// before spilling to a temp file.
	MaxMultipartMemory = 1 << 20 // 1 MB
)
