// Package bugreport reads the bug report that seeds a reproduction attempt.
package bugreport

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/codefionn/reproschnell/internal/consts"
)

// TextPrefix starts every report text sent to the model.
const TextPrefix = "Bug Report: "

var (
	imageMarker = regexp.MustCompile(`\[IMAGE:(.*?)\]`)
	issueURL    = regexp.MustCompile(`/issues?/(\d+)`)
)

// Metadata is parsed from the header lines of a report.
type Metadata struct {
	AppName     string `json:"app_name"`
	PackageName string `json:"package_name"`
	IssueNumber string `json:"issue_number"`
}

// Report is a bug report with image markers removed.
type Report struct {
	Path string
	// Text is the narrative, prefixed with TextPrefix, lines joined by spaces.
	Text string
	// Images are the referenced paths, resolved against the report directory,
	// in marker order.
	Images   []string
	Metadata Metadata
}

// Read loads and parses the report at path.
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bug report: %w", err)
	}

	content := string(data)
	text, images := Parse(content, filepath.Dir(path))
	return &Report{
		Path:     path,
		Text:     text,
		Images:   images,
		Metadata: ParseMetadata(content),
	}, nil
}

// Parse strips [IMAGE:<path>] markers from content and returns the prompt
// text and the marker paths joined with dir. Absolute marker paths are kept.
func Parse(content, dir string) (string, []string) {
	images := make([]string, 0)
	for _, m := range imageMarker.FindAllStringSubmatch(content, -1) {
		p := m[1]
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		images = append(images, p)
	}

	stripped := imageMarker.ReplaceAllString(content, "")
	lines := strings.Split(stripped, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return TextPrefix + strings.Join(lines, " "), images
}

// ParseMetadata scans the first lines of content for App, Package and Issue
// headers. Later headers win.
func ParseMetadata(content string) Metadata {
	var md Metadata

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for i := 0; i <= consts.MetadataScanLines && scanner.Scan(); i++ {
		line := scanner.Text()
		switch {
		case strings.Contains(line, "App:") || strings.Contains(line, "App Name:"):
			md.AppName = headerValue(line)
		case strings.Contains(line, "Package Name:") || strings.Contains(line, "Package:"):
			md.PackageName = headerValue(line)
		case strings.Contains(line, "Issue:") && strings.Contains(line, "http"):
			if m := issueURL.FindStringSubmatch(line); m != nil {
				md.IssueNumber = m[1]
			}
		}
	}
	return md
}

func headerValue(line string) string {
	_, value, _ := strings.Cut(line, ":")
	return strings.TrimSpace(value)
}

// Label returns the identifier used for checkpoint file names: the package
// name, else the app name, else the report file name without extension.
func (r *Report) Label() string {
	switch {
	case r.Metadata.PackageName != "":
		return r.Metadata.PackageName
	case r.Metadata.AppName != "":
		return r.Metadata.AppName
	default:
		base := filepath.Base(r.Path)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
}

// Prompt is the first user message of an attempt.
func (r *Report) Prompt() string {
	if r.Metadata.AppName == "" {
		return r.Text
	}
	return fmt.Sprintf("App Name: %s. %s", r.Metadata.AppName, r.Text)
}
