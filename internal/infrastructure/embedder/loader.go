package embedder

import (
	"context"
	"fmt"

	"github.com/DRSN-tech/product-verifier/internal/cfg"
	"github.com/DRSN-tech/product-verifier/pkg/e"
	"github.com/DRSN-tech/product-verifier/pkg/logger"
)

// Load скачивает (при необходимости) и загружает модель. Вызывается один раз при старте;
// любая ошибка оборачивает e.ErrModelUnavailable.
func Load(ctx context.Context, c *cfg.ModelCfg, log logger.Logger) (*Embedder, error) {
	const op = "embedder.Load"

	unavailable := func(err error) error {
		return e.Wrap(op, fmt.Errorf("%w: %v", e.ErrModelUnavailable, err))
	}

	recipe, err := RecipeByName(c.Preprocess)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	dlCtx, cancel := context.WithTimeout(ctx, c.DownloadTimeout)
	defer cancel()

	path, err := NewWeightsFetcher(nil, log).Ensure(dlCtx, c.Path, c.URL)
	if err != nil {
		return nil, unavailable(err)
	}

	if err := InitRuntime(c.LibraryPath); err != nil {
		return nil, unavailable(fmt.Errorf("init onnxruntime: %w", err))
	}

	backbone, err := NewONNXBackbone(path, ONNXOptions{
		InputName:      c.InputName,
		OutputName:     c.OutputName,
		InputShape:     recipe.Shape(),
		Dim:            c.Dim,
		IntraOpThreads: c.IntraOpThreads,
	})
	if err != nil {
		return nil, unavailable(err)
	}

	m := New(backbone, recipe, c.Version)
	log.Infof("embedding model loaded: %s (dim %d) from %s", m.ModelVersion(), m.Dim(), path)

	return m, nil
}
