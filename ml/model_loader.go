package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// SaveModel writes the model to path, replacing any existing file. The write goes to a
// temp file in the same directory first so readers never see a partial model.
func SaveModel(path string, model *PersistedModel) error {
	if model == nil || model.Forest == nil || len(model.Forest.Trees) == 0 {
		return errors.New("model not trained")
	}
	payload, err := json.Marshal(model)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func LoadModel(path string) (*PersistedModel, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrModelNotFound, path, err)
		}
		return nil, err
	}
	return DecodeModel(payload)
}

func DecodeModel(payload []byte) (*PersistedModel, error) {
	var model PersistedModel
	if err := json.Unmarshal(payload, &model); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptModel, err)
	}
	if err := model.CheckSchema(); err != nil {
		return nil, err
	}
	return &model, nil
}
