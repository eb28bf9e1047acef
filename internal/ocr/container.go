// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/contract-review/internal/container"
)

// ContainerEngine runs tesseract inside a docker or podman container.
type ContainerEngine struct {
	rt    container.Runtime
	image string
	lang  string
}

// NewContainerEngine verifies that image is present in rt and returns an engine using it.
func NewContainerEngine(rt container.Runtime, image, lang string) (*ContainerEngine, error) {
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("%w: %v (pull it with: %s pull %s)", ErrOCRUnavailable, err, rt.Name(), image)
	}
	return &ContainerEngine{rt: rt, image: image, lang: lang}, nil
}

func (e *ContainerEngine) Name() string { return "container/" + e.rt.Name() }

// Recognize pipes img into a throwaway tesseract container.
func (e *ContainerEngine) Recognize(ctx context.Context, img []byte) (string, error) {
	args := append([]string{"tesseract"}, tesseractArgs(e.lang)...)
	var out bytes.Buffer
	if err := e.rt.Run(ctx, e.image, args, bytes.NewReader(img), &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}
