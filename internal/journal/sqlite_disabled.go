//go:build !sqlite
// +build !sqlite

package journal

import (
	"errors"

	"pushgate/pkg/logx"
)

func openSQLite(cfg Config, log logx.Logger) (Journal, error) {
	_ = cfg
	_ = log
	return nil, errors.New("sqlite journal not built: build with -tags sqlite")
}
