package embedder

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXOptions — параметры сессии onnxruntime.
type ONNXOptions struct {
	InputName      string  // пусто — первый вход модели
	OutputName     string  // пусто — первый выход модели
	InputShape     []int64 // форма входа, см. Recipe.Shape
	Dim            int     // ожидаемая длина вектора
	IntraOpThreads int
}

// ONNXBackbone выполняет сеть через onnxruntime. Сессия привязана к своим тензорам,
// поэтому прямые проходы выполняются под мьютексом.
type ONNXBackbone struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	dim     int
}

// InitRuntime один раз инициализирует окружение onnxruntime для процесса.
func InitRuntime(libraryPath string) error {
	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}

	return ort.InitializeEnvironment()
}

// DestroyRuntime освобождает окружение onnxruntime.
func DestroyRuntime() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// NewONNXBackbone загружает модель из modelPath. Окружение должно быть инициализировано через InitRuntime.
func NewONNXBackbone(modelPath string, opts ONNXOptions) (*ONNXBackbone, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("read model info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s has no inputs or outputs", modelPath)
	}

	inputName := opts.InputName
	if inputName == "" {
		inputName = inputs[0].Name
	}

	outInfo := outputs[0]
	if opts.OutputName != "" {
		found := false
		for _, o := range outputs {
			if o.Name == opts.OutputName {
				outInfo, found = o, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("model has no output %q", opts.OutputName)
		}
	}

	outShape, err := outputShape(outInfo.Dimensions, opts.Dim)
	if err != nil {
		return nil, err
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(opts.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	output, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer options.Destroy()

	if opts.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			input.Destroy()
			output.Destroy()
			return nil, fmt.Errorf("set intra-op threads: %w", err)
		}
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{inputName}, []string{outInfo.Name},
		[]ort.Value{input}, []ort.Value{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &ONNXBackbone{
		session: session,
		input:   input,
		output:  output,
		dim:     opts.Dim,
	}, nil
}

func (b *ONNXBackbone) Forward(input []float32) ([]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dst := b.input.GetData()
	if len(input) != len(dst) {
		return nil, fmt.Errorf("input length %d, want %d", len(input), len(dst))
	}
	copy(dst, input)

	if err := b.session.Run(); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}

	return append([]float32(nil), b.output.GetData()...), nil
}

func (b *ONNXBackbone) Dim() int {
	return b.dim
}

func (b *ONNXBackbone) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	for _, destroy := range []func() error{b.session.Destroy, b.input.Destroy, b.output.Destroy} {
		if err := destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// outputShape подставляет 1 вместо динамических осей и проверяет, что выход содержит ровно dim значений.
func outputShape(dims ort.Shape, dim int) (ort.Shape, error) {
	if len(dims) == 0 {
		return ort.NewShape(1, int64(dim)), nil
	}

	shape := make([]int64, len(dims))
	total := int64(1)
	for i, d := range dims {
		if d <= 0 {
			d = 1
		}
		shape[i] = d
		total *= d
	}

	if total != int64(dim) {
		return nil, fmt.Errorf("model output %v holds %d values, want %d", dims, total, dim)
	}

	return ort.NewShape(shape...), nil
}
