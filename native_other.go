//go:build !unix && !windows

package trustroots

import (
	"errors"
	"runtime"
)

func loadNativeRoots(_ SourceConfig) ([][]byte, error) {
	return nil, errors.New("no native trust store on " + runtime.GOOS)
}
