package provider

import (
	"fmt"
	"os"
	"runtime"

	"github.com/denisbrodbeck/machineid"
	"github.com/srand/jolt/workforce/pkg/utils"
	"github.com/srand/jolt/workforce/pkg/workforce"
)

// DefaultAttributes describes the local node: architecture, operating
// system, number of cpus, a unique machine id and the hostname.
func DefaultAttributes() workforce.Attributes {
	attrs := workforce.Attributes{
		"node.arch": runtime.GOARCH,
		"node.os":   runtime.GOOS,
		"node.cpus": fmt.Sprint(runtime.NumCPU()),
	}
	if id, err := machineid.ProtectedID("jolt-workforce"); err == nil {
		attrs["node.id"] = id
	}
	if hostname, err := os.Hostname(); err == nil {
		attrs["worker.hostname"] = hostname
	}
	return attrs
}

// ParseAttributes converts a list of key=value strings to attributes.
func ParseAttributes(pairs []string) (workforce.Attributes, error) {
	attrs, err := utils.ParseKeyValues(pairs)
	if err != nil {
		return nil, err
	}
	return workforce.Attributes(attrs), nil
}

// Merge returns base overlaid with the given attributes.
func Merge(base workforce.Attributes, overlays ...workforce.Attributes) workforce.Attributes {
	result := base.Clone()
	for _, overlay := range overlays {
		for key, value := range overlay {
			result[key] = value
		}
	}
	return result
}
