package embedder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/DRSN-tech/product-verifier/pkg/logger"
)

// прогресс скачивания логируется каждые progressStep байт
const progressStep = 16 << 20

type progressWriter struct {
	total   int64
	written int64
	next    int64
	logger  logger.Logger
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	pw.written += int64(len(p))
	if pw.written >= pw.next {
		pw.logger.Infof("model download: %d/%d bytes", pw.written, pw.total)
		pw.next += progressStep
	}
	return len(p), nil
}

// WeightsFetcher кладёт веса модели на диск, если их там ещё нет.
type WeightsFetcher struct {
	client *http.Client
	logger logger.Logger
}

func NewWeightsFetcher(client *http.Client, logger logger.Logger) *WeightsFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &WeightsFetcher{client: client, logger: logger}
}

// Ensure возвращает path, если файл существует. Иначе скачивает его с url через временный файл.
// Пустой url означает, что скачивать неоткуда.
func (f *WeightsFetcher) Ensure(ctx context.Context, path, url string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if url == "" {
		return "", fmt.Errorf("model weights %s not found and no download url configured", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create model dir: %w", err)
	}

	f.logger.Infof("model weights %s not found, downloading from %s", path, url)
	if err := f.download(ctx, url, path); err != nil {
		return "", err
	}

	return path, nil
}

func (f *WeightsFetcher) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	tmpFile := dest + ".tmp"
	out, err := os.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	pw := &progressWriter{total: resp.ContentLength, next: progressStep, logger: f.logger}
	_, err = io.Copy(out, io.TeeReader(resp.Body, pw))
	closeErr := out.Close()

	if err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("write file: %w", err)
	}
	if closeErr != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("close file: %w", closeErr)
	}

	if err := os.Rename(tmpFile, dest); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("rename file: %w", err)
	}

	return nil
}
