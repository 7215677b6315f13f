package manipulators

import (
	"strings"

	"github.com/luxfi/statepatch/pkg/genesisparser"
	"github.com/luxfi/statepatch/pkg/storagekey"
)

// XCMManipulator clears the cross chain message queues and channel heads so
// a fork starts without inbound or outbound messages from the live network.
type XCMManipulator struct {
	base
	reset  map[string][]byte
	prefix []string
}

// NewXCMManipulator creates an XCMManipulator
func NewXCMManipulator() *XCMManipulator {
	return &XCMManipulator{
		base: base{name: "xcm"},
		reset: map[string][]byte{
			storagekey.Encode("ParachainSystem", "LastDmqMqcHead"):   make([]byte, 32),
			storagekey.Encode("ParachainSystem", "LastHrmpMqcHeads"): {0},
			storagekey.Encode("XcmpQueue", "InboundXcmpStatus"):      {0},
			storagekey.Encode("XcmpQueue", "OutboundXcmpStatus"):     {0},
		},
		prefix: []string{
			storagekey.Encode("XcmpQueue", "InboundXcmpMessages"),
			storagekey.Encode("XcmpQueue", "OutboundXcmpMessages"),
			storagekey.Encode("XcmpQueue", "SignalMessages"),
			storagekey.Encode("ParachainSystem", "HrmpOutboundMessages"),
			storagekey.Encode("ParachainSystem", "UpwardMessages"),
			storagekey.Encode("ParachainSystem", "PendingUpwardMessages"),
		},
	}
}

func (m *XCMManipulator) ProcessWrite(line genesisparser.Line) (*genesisparser.WriteDecision, error) {
	if value, ok := m.reset[line.Key]; ok {
		return replaceWith(line.Key, value), nil
	}
	for _, p := range m.prefix {
		if strings.HasPrefix(line.Key, p) {
			return genesisparser.Remove(), nil
		}
	}
	return nil, nil
}
