package validation

import (
	"fmt"
	"io"
	"slices"

	"github.com/gabriel-vasile/mimetype"
)

type FileRules struct {
	MaxSizeMB        int64
	AllowedMimeTypes []string
}

// ValidateFile проверяет размер и MIME-тип по содержимому файла и
// возвращает курсор file в начало. Возвращает определённый MIME-тип.
func ValidateFile(size int64, file io.ReadSeeker, rules FileRules) (string, error) {
	if rules.MaxSizeMB > 0 {
		maxSizeBytes := rules.MaxSizeMB * 1024 * 1024
		if size > maxSizeBytes {
			return "", fmt.Errorf("размер файла (%.2f MB) превышает лимит в %d MB", float64(size)/1024/1024, rules.MaxSizeMB)
		}
	}

	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения файла: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("ошибка обработки файла: %w", err)
	}

	if !slices.ContainsFunc(rules.AllowedMimeTypes, detected.Is) {
		return "", fmt.Errorf("недопустимый формат файла: %s", detected.String())
	}
	return detected.String(), nil
}
