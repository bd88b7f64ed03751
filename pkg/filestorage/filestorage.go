package filestorage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PublicPrefix - URL-префикс, под которым main раздаёт каталог хранилища.
const PublicPrefix = "/uploads/"

type FileStorageInterface interface {
	// Save сохраняет файл под уникальным именем и возвращает публичный путь вида /uploads/<prefix>/YYYY/MM/DD/<name>.
	Save(file io.Reader, originalFileName string, prefix string) (string, error)
	Delete(publicPath string) error
}

type LocalFileStorage struct {
	basePath string
	now      func() time.Time
}

func NewLocalFileStorage(basePath string) (*LocalFileStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию хранилища %s: %w", basePath, err)
	}
	return &LocalFileStorage{basePath: basePath, now: time.Now}, nil
}

func (s *LocalFileStorage) BasePath() string {
	return s.basePath
}

func (s *LocalFileStorage) Save(file io.Reader, originalFileName string, prefix string) (string, error) {
	now := s.now()
	ext := strings.ToLower(filepath.Ext(originalFileName))
	uniqueFileName := fmt.Sprintf("%s-%s%s", now.Format("2006-01-02"), uuid.NewString(), ext)
	relDir := path.Join(prefix, now.Format("2006/01/02"))

	fullDirPath := filepath.Join(s.basePath, filepath.FromSlash(relDir))
	if err := os.MkdirAll(fullDirPath, 0o755); err != nil {
		return "", fmt.Errorf("не удалось создать директорию %s: %w", fullDirPath, err)
	}

	dst, err := os.Create(filepath.Join(fullDirPath, uniqueFileName))
	if err != nil {
		return "", fmt.Errorf("не удалось создать файл: %w", err)
	}
	defer dst.Close()

	if _, err = io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("не удалось записать файл: %w", err)
	}

	return PublicPrefix + path.Join(relDir, uniqueFileName), nil
}

// Delete удаляет файл по публичному пути. Отсутствующий файл не ошибка;
// пути вне хранилища отклоняются.
func (s *LocalFileStorage) Delete(publicPath string) error {
	if !strings.HasPrefix(publicPath, PublicPrefix) {
		return fmt.Errorf("путь %q не принадлежит хранилищу", publicPath)
	}
	relativePath := path.Clean(strings.TrimPrefix(publicPath, PublicPrefix))
	if relativePath == "." || strings.HasPrefix(relativePath, "..") {
		return fmt.Errorf("путь %q не принадлежит хранилищу", publicPath)
	}

	err := os.Remove(filepath.Join(s.basePath, filepath.FromSlash(relativePath)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
