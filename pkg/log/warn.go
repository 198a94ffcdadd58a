package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	gberrors "github.com/tabforge/gbtune/pkg/errors"
)

// InstallWarnSink routes pkg/errors warnings into a zerolog logger.
// Warning types that implement zerolog.LogObjectMarshaler are logged as
// structured objects; anything else falls back to the error message.
func InstallWarnSink(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	logger := zerolog.New(w).With().Timestamp().Logger()

	gberrors.SetZerologWarnFunc(func(warning error) {
		ev := logger.Warn()
		if obj, ok := warning.(zerolog.LogObjectMarshaler); ok {
			ev.Object("warning", obj).Msg("pipeline warning")
			return
		}
		ev.Err(warning).Msg("pipeline warning")
	})
}
