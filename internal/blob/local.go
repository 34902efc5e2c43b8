package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

type LocalProvider struct {
	dir string
}

func NewLocalProvider(dir string) (*LocalProvider, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	return &LocalProvider{dir: dir}, nil
}

func (p *LocalProvider) PutObject(ctx context.Context, key string, data []byte) error {
	path := filepath.Join(p.dir, key)
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (p *LocalProvider) GetObject(ctx context.Context, key string) ([]byte, error) {
	return os.ReadFile(filepath.Join(p.dir, key))
}

func (p *LocalProvider) DeleteObject(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(p.dir, key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (p *LocalProvider) ListObjects(ctx context.Context, prefix string) ([]Object, error) {
	files, err := os.ReadDir(p.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var objects []Object
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if prefix != "" && !strings.HasPrefix(file.Name(), prefix) {
			continue
		}

		info, err := file.Info()
		if err != nil {
			return nil, err
		}
		objects = append(objects, Object{Key: file.Name(), Size: info.Size()})
	}
	return objects, nil
}
