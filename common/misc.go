package common

import (
	"hash/fnv"

	"github.com/fundwit/go-commons/types"
	"github.com/sony/sonyflake"
)

// IdWorker issues time ordered ids for persisted rows.
type IdWorker struct {
	flake *sonyflake.Sonyflake
}

// NewIdWorker derives the machine id from the private IPv4 address and falls back to
// a hash of the service instance name on hosts without one.
func NewIdWorker() *IdWorker {
	flake := sonyflake.NewSonyflake(sonyflake.Settings{})
	if flake == nil {
		flake = sonyflake.NewSonyflake(sonyflake.Settings{MachineID: instanceMachineID})
	}
	return &IdWorker{flake: flake}
}

func instanceMachineID() (uint16, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(GetServiceInstance()))
	sum := h.Sum32()
	return uint16(sum ^ sum>>16), nil
}

// NextId panics when the sonyflake clock overflows, which only happens after 174 years.
func (w *IdWorker) NextId() types.ID {
	id, err := w.flake.NextID()
	if err != nil {
		panic(err)
	}
	return types.ID(id)
}
