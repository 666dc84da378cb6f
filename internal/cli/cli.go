// Package cli — команды imgmatch: векторизация и сравнение изображений без поднятия сервиса.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/DRSN-tech/product-verifier/internal/cfg"
	"github.com/DRSN-tech/product-verifier/internal/domain"
	"github.com/DRSN-tech/product-verifier/internal/infrastructure/embedder"
	"github.com/DRSN-tech/product-verifier/internal/matcher"
	"github.com/DRSN-tech/product-verifier/pkg/e"
	"github.com/DRSN-tech/product-verifier/pkg/logger"
	"github.com/spf13/cobra"
)

// Embedder нужен командам от модели.
type Embedder interface {
	EmbedBytes(ctx context.Context, data []byte) (domain.EmbeddingVector, error)
	ModelVersion() string
	Close() error
}

// LoadFunc загружает модель. Вызывается только после проверки аргументов.
type LoadFunc func(ctx context.Context, log logger.Logger) (Embedder, error)

// LoadFromEnv читает настройки модели из окружения, как сервер.
func LoadFromEnv(ctx context.Context, log logger.Logger) (Embedder, error) {
	modelCfg, err := cfg.LoadModelCfg()
	if err != nil {
		return nil, err
	}

	m, err := embedder.Load(ctx, modelCfg, log)
	if err != nil {
		return nil, err
	}

	return &runtimeEmbedder{Embedder: m}, nil
}

// runtimeEmbedder вместе с моделью освобождает окружение onnxruntime.
type runtimeEmbedder struct {
	*embedder.Embedder
}

func (r *runtimeEmbedder) Close() error {
	err := r.Embedder.Close()
	if dErr := embedder.DestroyRuntime(); err == nil {
		err = dErr
	}
	return err
}

// embed печатает первые headLen значений вектора
const headLen = 8

type EmbedOutput struct {
	File         string    `json:"file"`
	ModelVersion string    `json:"model_version"`
	Dim          int       `json:"dim"`
	Head         []float32 `json:"head"`
	Vector       []float32 `json:"vector,omitempty"`
}

type MatchOutput struct {
	Query          string  `json:"query"`
	IsMatch        bool    `json:"is_match"`
	Score          float64 `json:"score"`
	Threshold      float64 `json:"threshold"`
	BestMatch      string  `json:"best_match"`
	BestIndex      int     `json:"best_index"`
	ReferenceCount int     `json:"reference_count"`
	ModelVersion   string  `json:"model_version"`
}

// NewRootCmd собирает дерево команд. Логи пишутся в stderr, результат в JSON в stdout.
func NewRootCmd(load LoadFunc) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "imgmatch",
		Short:         "Compare product photos with reference images",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log model loading to stderr")

	newLogger := func(cmd *cobra.Command) logger.Logger {
		if !verbose {
			return logger.Nop{}
		}
		return logger.NewSlogLoggerWithWriter(cmd.ErrOrStderr(), logger.ParseLevel("debug"))
	}

	root.AddCommand(newEmbedCmd(load, newLogger), newMatchCmd(load, newLogger))
	return root
}

func newEmbedCmd(load LoadFunc, newLogger func(*cobra.Command) logger.Logger) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "embed <image>",
		Short: "Print the embedding of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return e.Wrap(args[0], err)
			}

			m, err := load(cmd.Context(), newLogger(cmd))
			if err != nil {
				return err
			}
			defer m.Close()

			vec, err := m.EmbedBytes(cmd.Context(), data)
			if err != nil {
				return e.Wrap(args[0], err)
			}

			out := EmbedOutput{
				File:         args[0],
				ModelVersion: vec.ModelVersion,
				Dim:          vec.Dim(),
				Head:         vec.Values[:min(headLen, vec.Dim())],
			}
			if full {
				out.Vector = vec.Values
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "include vector values")

	return cmd
}

func newMatchCmd(load LoadFunc, newLogger func(*cobra.Command) logger.Logger) *cobra.Command {
	var (
		refs      []string
		threshold float64
	)

	cmd := &cobra.Command{
		Use:   "match --ref <image> [--ref <image>...] <query>",
		Short: "Match a query image against reference images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(refs) == 0 {
				return e.Wrap("--ref", e.ErrEmptyReferenceSet)
			}

			if !cmd.Flags().Changed("threshold") {
				matcherCfg, err := cfg.LoadMatcherCfg()
				if err != nil {
					return err
				}
				threshold = matcherCfg.Threshold
			}

			paths := append(append([]string(nil), refs...), args[0])
			images := make([][]byte, len(paths))
			for i, p := range paths {
				data, err := os.ReadFile(p)
				if err != nil {
					return e.Wrap(p, err)
				}
				images[i] = data
			}

			m, err := load(cmd.Context(), newLogger(cmd))
			if err != nil {
				return err
			}
			defer m.Close()

			set := domain.NewReferenceSet()
			for i, ref := range refs {
				vec, err := m.EmbedBytes(cmd.Context(), images[i])
				if err != nil {
					return e.Wrap(ref, err)
				}
				set.Append(domain.NewReference(fmt.Sprint(i), filepath.Base(ref), domain.ImageHandle{}, vec, time.Now()))
			}

			query, err := m.EmbedBytes(cmd.Context(), images[len(refs)])
			if err != nil {
				return e.Wrap(args[0], err)
			}

			res, err := matcher.NewMatcher(threshold).FindBestMatch(query, set)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), MatchOutput{
				Query:          args[0],
				IsMatch:        res.IsMatch,
				Score:          res.Score,
				Threshold:      threshold,
				BestMatch:      refs[res.BestIndex],
				BestIndex:      res.BestIndex,
				ReferenceCount: set.Len(),
				ModelVersion:   m.ModelVersion(),
			})
		},
	}
	cmd.Flags().StringArrayVar(&refs, "ref", nil, "reference image (repeatable)")
	cmd.Flags().Float64Var(&threshold, "threshold", matcher.DefaultThreshold, "similarity threshold, match if score is strictly greater")

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
