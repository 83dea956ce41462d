package protocol

import "fmt"

// ProviderMessageType tags the messages a provider host posts about one of
// its providers.
type ProviderMessageType string

const (
	ProviderAvailable   ProviderMessageType = "available"
	ProviderUnavailable ProviderMessageType = "unavailable"
	ProviderWorker      ProviderMessageType = "worker"
	ProviderWorkerDead  ProviderMessageType = "workerDead"
)

// ProviderMessage is a record of the provider sub-protocol. Id carries the
// worker id for worker and workerDead messages.
type ProviderMessage struct {
	Type ProviderMessageType `json:"type"`
	Id   string              `json:"id,omitempty"`
}

func (m ProviderMessage) String() string {
	if m.Id == "" {
		return string(m.Type)
	}
	return fmt.Sprintf("%s %s", m.Type, m.Id)
}
