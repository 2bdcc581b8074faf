package utils

import (
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

// Json is the shared sonic codec used for config and metadata sidecar
// serialization.
var Json = sonic.ConfigDefault

// WriteJsonToFile writes a struct to a JSON file, creating parent
// directories as needed.
func WriteJsonToFile(dst string, data any) bool {
	str, err := Json.MarshalIndent(data, "", "  ")
	if err != nil {
		log.Errorf("failed to marshal json: %s", err.Error())
		return false
	}
	if err = os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		log.Errorf("failed to create parent dir for json file: %s", err.Error())
		return false
	}
	if err = os.WriteFile(dst, str, 0o644); err != nil {
		log.Errorf("failed to write json file: %s", err.Error())
		return false
	}
	return true
}
