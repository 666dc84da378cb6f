package embedder

import (
	"fmt"
	"image"
	"image/color"

	"github.com/DRSN-tech/product-verifier/pkg/e"
	"golang.org/x/image/draw"
)

// InputSize — сторона квадратного входа ResNet50.
const InputSize = 224

// Layout — порядок осей входного тензора.
type Layout int

const (
	NHWC Layout = iota // [1, H, W, C], экспорт из Keras
	NCHW               // [1, C, H, W], экспорт из torchvision
)

// Recipe описывает нормализацию каналов, которую ожидает backbone.
type Recipe struct {
	Name   string
	Layout Layout
	BGR    bool       // переставить каналы RGB -> BGR
	Scale  float32    // множитель пикселя перед вычитанием среднего
	Mean   [3]float32 // в порядке каналов на выходе
	Std    [3]float32
}

var (
	// CaffeRecipe повторяет keras.applications.resnet50.preprocess_input:
	// BGR, вычитание средних ImageNet, без масштабирования.
	CaffeRecipe = Recipe{
		Name:   "caffe",
		Layout: NHWC,
		BGR:    true,
		Scale:  1,
		Mean:   [3]float32{103.939, 116.779, 123.68},
		Std:    [3]float32{1, 1, 1},
	}

	// TorchRecipe — нормализация torchvision: [0,1], mean/std ImageNet, RGB.
	TorchRecipe = Recipe{
		Name:   "torch",
		Layout: NCHW,
		Scale:  1.0 / 255,
		Mean:   [3]float32{0.485, 0.456, 0.406},
		Std:    [3]float32{0.229, 0.224, 0.225},
	}
)

// RecipeByName возвращает рецепт по имени из конфигурации.
func RecipeByName(name string) (Recipe, error) {
	switch name {
	case CaffeRecipe.Name:
		return CaffeRecipe, nil
	case TorchRecipe.Name:
		return TorchRecipe, nil
	default:
		return Recipe{}, fmt.Errorf("unknown preprocess recipe %q: %w", name, e.ErrModelUnavailable)
	}
}

// Shape возвращает форму входного тензора для батча из одного изображения.
func (r Recipe) Shape() []int64 {
	if r.Layout == NCHW {
		return []int64{1, 3, InputSize, InputSize}
	}
	return []int64{1, InputSize, InputSize, 3}
}

// Preprocess приводит изображение к RGB 224×224 (бикубическая интерполяция) и записывает
// нормализованные значения в dst. Длина dst должна быть 3*224*224.
func (r Recipe) Preprocess(img image.Image, dst []float32) error {
	const plane = InputSize * InputSize

	if len(dst) != 3*plane {
		return fmt.Errorf("input tensor length %d, want %d: %w", len(dst), 3*plane, e.ErrDimensionMismatch)
	}

	resized := resize(img)
	for y := 0; y < InputSize; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < InputSize; x++ {
			px := row[x*4 : x*4+3]
			rgb := [3]float32{float32(px[0]), float32(px[1]), float32(px[2])}
			if r.BGR {
				rgb[0], rgb[2] = rgb[2], rgb[0]
			}

			for c := 0; c < 3; c++ {
				v := (rgb[c]*r.Scale - r.Mean[c]) / r.Std[c]
				if r.Layout == NCHW {
					dst[c*plane+y*InputSize+x] = v
				} else {
					dst[(y*InputSize+x)*3+c] = v
				}
			}
		}
	}

	return nil
}

// resize отбрасывает альфа-канал (без смешивания с фоном) и масштабирует изображение до 224×224.
func resize(src image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, InputSize, InputSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), opaque(src), src.Bounds(), draw.Src, nil)
	return dst
}

func opaque(src image.Image) image.Image {
	if o, ok := src.(interface{ Opaque() bool }); ok && o.Opaque() {
		return src
	}

	b := src.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			c.A = 0xff
			out.SetNRGBA(x, y, c)
		}
	}

	return out
}
