package bugreport

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/codefionn/reproschnell/internal/llm"
	"github.com/codefionn/reproschnell/internal/logger"
)

// maxImageBytes caps a single screenshot sent to the model.
const maxImageBytes = 20 << 20

// LoadImages reads the report's images as attachments. Missing files and
// files that are not images are skipped with a warning.
func LoadImages(paths []string) ([]*llm.Attachment, error) {
	out := make([]*llm.Attachment, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("Bug report image %s not found, skipping", p)
			continue
		case err != nil:
			return nil, fmt.Errorf("failed to stat image %s: %w", p, err)
		case info.Size() > maxImageBytes:
			logger.Warn("Bug report image %s is %d bytes, skipping", p, info.Size())
			continue
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read image %s: %w", p, err)
		}

		mt := mimetype.Detect(data)
		if !strings.HasPrefix(mt.String(), "image/") {
			logger.Warn("Bug report image %s has type %s, skipping", p, mt.String())
			continue
		}

		out = append(out, &llm.Attachment{
			Name:     filepath.Base(p),
			MIMEType: mt.String(),
			Data:     data,
		})
	}
	return out, nil
}
