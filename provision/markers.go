package provision

import (
	"os"
	"path/filepath"
)

// RequiredMarkers are the model subdirectories a complete installation has.
var RequiredMarkers = []string{"MFD", "Layout", "OCR"}

// Installed reports whether every marker subdirectory exists under
// modelsDir. An empty markers slice means RequiredMarkers.
func Installed(modelsDir string, markers []string) bool {
	if len(markers) == 0 {
		markers = RequiredMarkers
	}
	for _, m := range markers {
		info, err := os.Stat(filepath.Join(modelsDir, m))
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}

// Missing lists the marker subdirectories absent from modelsDir.
func Missing(modelsDir string, markers []string) []string {
	if len(markers) == 0 {
		markers = RequiredMarkers
	}
	var missing []string
	for _, m := range markers {
		info, err := os.Stat(filepath.Join(modelsDir, m))
		if err != nil || !info.IsDir() {
			missing = append(missing, m)
		}
	}
	return missing
}
