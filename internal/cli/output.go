package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/realia-labs/realia/internal/client"
	"github.com/thoas/go-funk"
	"sigs.k8s.io/yaml"
)

const (
	jsonFormat = "json"
	yamlFormat = "yaml"
)

var (
	legalOutputTypes = []string{jsonFormat, yamlFormat}
)

func validateOutput(output string) error {
	if len(output) > 0 && !funk.ContainsString(legalOutputTypes, output) {
		return fmt.Errorf("output format must be one of %s", strings.Join(legalOutputTypes, ", "))
	}
	return nil
}

// printStructured writes v as json or yaml. It returns false for the table format.
func printStructured(w io.Writer, v any, output string) (bool, error) {
	var (
		marshalled []byte
		err        error
	)
	switch output {
	case jsonFormat:
		marshalled, err = json.Marshal(v)
	case yamlFormat:
		marshalled, err = yaml.Marshal(v)
	default:
		return false, nil
	}
	if err != nil {
		return true, fmt.Errorf("marshalling resource: %w", err)
	}
	fmt.Fprintf(w, "%s\n", strings.TrimRight(string(marshalled), "\n"))
	return true, nil
}

func readImage(path string) (client.Image, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return client.Image{}, fmt.Errorf("reading image: %w", err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = http.DetectContentType(content)
	}
	return client.Image{
		Filename: filepath.Base(path),
		MimeType: mimeType,
		Content:  content,
	}, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
