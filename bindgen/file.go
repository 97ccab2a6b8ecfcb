package bindgen

import (
	"bytes"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/wippyai/ukv-go/errors"
)

// WriteFile writes generated source to path, creating its directory. An
// existing file with identical content is left untouched so its
// modification time does not trigger rebuilds. It reports whether it wrote.
func WriteFile(path string, src []byte) (bool, error) {
	if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, src) {
		Logger().Debug("bindings unchanged", zap.String("path", path))
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, errors.Wrap(errors.PhaseBindgen, errors.KindBindingFailure, err, "create bindings directory")
	}
	if err := os.WriteFile(path, src, 0o644); err != nil {
		return false, errors.Wrap(errors.PhaseBindgen, errors.KindBindingFailure, err, "write bindings")
	}
	Logger().Info("bindings written", zap.String("path", path), zap.Int("bytes", len(src)))
	return true, nil
}
