package domain

// ImageHandle указывает на байты изображения в хранилище (MinIO).
// По нему слой отображения получает картинку ближайшего эталона.
type ImageHandle struct {
	Bucket      string
	ObjectKey   string
	ContentType string
	Size        int64
}

// Image подготовлено к загрузке в S3.
type Image struct {
	ID        string // uuid
	Bucket    string
	ObjectKey string
	Bytes     []byte
	// Передайте значение -1 в Size, если размер потока неизвестен
	// (внимание: при передаче значения -1 будет выделен большой объем памяти).
	Size        int64
	ContentType string // Example: "image/jpeg"
}

func NewImage(id string, bucket string, objectKey string, data []byte, contentType string) *Image {
	return &Image{
		ID:          id,
		Bucket:      bucket,
		ObjectKey:   objectKey,
		Bytes:       data,
		Size:        int64(len(data)),
		ContentType: contentType,
	}
}

// Handle возвращает ссылку на загруженное изображение.
func (i *Image) Handle() ImageHandle {
	return ImageHandle{
		Bucket:      i.Bucket,
		ObjectKey:   i.ObjectKey,
		ContentType: i.ContentType,
		Size:        i.Size,
	}
}
