// Package diag adapts an error-chain dump helper
// (pkg/fmtt/printe.go) into a zap-aware --debug diagnostic, used by
// the CLI for every error it surfaces; the per-layer spew dump is
// added only with --debug set.
package diag

import (
	"errors"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"
)

// DumpErrChain logs each layer of err's Unwrap chain at debug level.
// With verbose set, each layer also gets a spew.Sdump of its value.
func DumpErrChain(log *zap.Logger, err error, verbose bool) {
	if err == nil {
		return
	}
	i := 0
	for e := err; e != nil; e = errors.Unwrap(e) {
		fields := []zap.Field{
			zap.Int("layer", i),
			zap.String("type", fmt.Sprintf("%T", e)),
		}
		if verbose {
			fields = append(fields, zap.String("dump", spew.Sdump(e)))
		}
		log.Debug(e.Error(), fields...)
		i++
	}
}
