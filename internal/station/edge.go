package station

import (
	"github.com/charmbracelet/log"

	"github.com/sweeney/wx-receiver/internal/logic"
)

// EdgeHandler returns the edge-context callback feeding rx. Decoder
// diagnostics are logged at debug level.
func EdgeHandler(rx *logic.Receiver) func(logic.EdgeEvent) {
	return func(e logic.EdgeEvent) {
		res := rx.HandleEdge(e)
		if res.Class.Symbol == logic.SymbolDesync && res.Class.Miss != logic.MissNone {
			log.Debug("decoder: desync", "miss", res.Class.Miss, "width", res.Period.Duration)
		}
		if res.Step.Dropped > 0 {
			log.Debug("decoder: dropped packet", "bits", res.Step.Dropped)
		}
	}
}
