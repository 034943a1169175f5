package browser

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ziggy/core/browser"

var logger = otelslog.NewLogger(scopeName)
