package bugreport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `App Name: NewPipe
Package Name: org.schabi.newpipe
Issue: https://github.com/TeamNewPipe/NewPipe/issues/4321

Steps:
  1. Open a video [IMAGE:shots/player.png]
  2. Rotate the device
`

func TestParseStripsMarkersAndJoinsLines(t *testing.T) {
	text, images := Parse("Crash on start.\n  Tap play [IMAGE:a.png]\nthen back", "/reports")

	assert.Equal(t, "Bug Report: Crash on start. Tap play then back", text)
	assert.Equal(t, []string{filepath.Join("/reports", "a.png")}, images)
}

func TestParseWithoutMarkers(t *testing.T) {
	text, images := Parse("plain report", "/reports")

	assert.Equal(t, "Bug Report: plain report", text)
	assert.NotNil(t, images)
	assert.Empty(t, images)
}

func TestParseKeepsMarkerOrder(t *testing.T) {
	_, images := Parse("[IMAGE:2.png] text [IMAGE:1.png]", "dir")
	assert.Equal(t, []string{filepath.Join("dir", "2.png"), filepath.Join("dir", "1.png")}, images)
}

func TestParseMetadata(t *testing.T) {
	md := ParseMetadata(sampleReport)

	assert.Equal(t, Metadata{AppName: "NewPipe", PackageName: "org.schabi.newpipe", IssueNumber: "4321"}, md)
}

func TestParseMetadataIgnoresLateHeaders(t *testing.T) {
	content := ""
	for i := 0; i < 20; i++ {
		content += "filler\n"
	}
	content += "Package: com.late\n"

	assert.Empty(t, ParseMetadata(content).PackageName)
}

func TestParseMetadataSingularIssuePath(t *testing.T) {
	md := ParseMetadata("Issue: https://example.org/repo/issue/77\n")
	assert.Equal(t, "77", md.IssueNumber)
}

func TestReadResolvesImagesAgainstReportDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "newpipe_issue.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleReport), 0644))

	r, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "shots", "player.png")}, r.Images)
	assert.Equal(t, "org.schabi.newpipe", r.Label())
	assert.Contains(t, r.Prompt(), "App Name: NewPipe. Bug Report: App Name: NewPipe")
	assert.NotContains(t, r.Text, "[IMAGE:")
}

func TestLabelFallsBackToFileName(t *testing.T) {
	r := &Report{Path: "/x/brs/app_issue12.txt"}
	assert.Equal(t, "app_issue12", r.Label())
	assert.Equal(t, r.Text, r.Prompt())
}

func TestLoadImages(t *testing.T) {
	dir := t.TempDir()
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	pngPath := filepath.Join(dir, "shot.png")
	txtPath := filepath.Join(dir, "notes.png")
	require.NoError(t, os.WriteFile(pngPath, png, 0644))
	require.NoError(t, os.WriteFile(txtPath, []byte("not an image"), 0644))

	atts, err := LoadImages([]string{pngPath, txtPath, filepath.Join(dir, "missing.png")})
	require.NoError(t, err)

	require.Len(t, atts, 1)
	assert.Equal(t, "shot.png", atts[0].Name)
	assert.Equal(t, "image/png", atts[0].MIMEType)
	assert.Equal(t, png, atts[0].Data)
}
