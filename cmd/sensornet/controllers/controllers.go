package controllers

import (
	"github.com/sensornet-io/sensornet/cmd/sensornet/orchestrator"
)

var core *orchestrator.Orchestrator

// Init wires the orchestrator the handlers dispatch to.
func Init(o *orchestrator.Orchestrator) {
	core = o
}
