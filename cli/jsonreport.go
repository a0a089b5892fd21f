package cli

import (
	"encoding/json"

	"github.com/evalgo/simreplay/internal/report"
)

func jsonMarshalReport(rep report.SimulationReport) ([]byte, error) {
	return json.MarshalIndent(rep, "", "  ")
}
