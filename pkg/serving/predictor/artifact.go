package predictor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cardioguard/platform/pkg/features"
	"gopkg.in/yaml.v3"
)

// ArtifactError reports a pre-fitted artifact that cannot serve the
// fixed feature layout. It is raised at load time only.
type ArtifactError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ArtifactError) Error() string {
	msg := "artifact"
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// readArtifact decodes a YAML (or JSON) artifact file into out.
func readArtifact(path string, out interface{}) error {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return &ArtifactError{Path: path, Reason: "unreadable", Err: err}
	}
	if err := yaml.Unmarshal(content, out); err != nil {
		return &ArtifactError{Path: path, Reason: "malformed", Err: err}
	}
	return nil
}

// checkFeatureNames guards the frozen feature order. Artifacts that omit
// feature_names are trusted on dimensionality alone.
func checkFeatureNames(path string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	if len(names) != features.Size {
		return &ArtifactError{Path: path, Reason: fmt.Sprintf("declares %d feature names, expected %d", len(names), features.Size)}
	}
	for i, name := range names {
		if name != features.Names[i] {
			return &ArtifactError{Path: path, Reason: fmt.Sprintf("feature %d is %q, expected %q", i, name, features.Names[i])}
		}
	}
	return nil
}

func checkDim(path, what string, dim int) error {
	if dim != features.Size {
		return &ArtifactError{Path: path, Reason: fmt.Sprintf("%s expects %d features, expected %d", what, dim, features.Size)}
	}
	return nil
}
