package manipulators

import "github.com/luxfi/statepatch/pkg/genesisparser"

// SpecFields are the top level chain spec fields a fork rewrites. Empty
// strings and a nil ParaID leave the field alone.
type SpecFields struct {
	Name           string
	ID             string
	ChainType      string
	ProtocolID     string
	RelayChain     string
	ParaID         *uint64
	ClearBootNodes bool
}

// SpecManipulator rewrites the chain spec fields outside "top" so the fork
// does not pose as the network it was exported from.
type SpecManipulator struct {
	base
	fields  SpecFields
	strings map[string]string
}

// NewSpecManipulator creates a SpecManipulator
func NewSpecManipulator(fields SpecFields) *SpecManipulator {
	m := &SpecManipulator{
		base:    base{name: "spec"},
		fields:  fields,
		strings: make(map[string]string),
	}
	for key, value := range map[string]string{
		"name":        fields.Name,
		"id":          fields.ID,
		"chainType":   fields.ChainType,
		"protocolId":  fields.ProtocolID,
		"relay_chain": fields.RelayChain,
	} {
		if value != "" {
			m.strings[key] = value
		}
	}
	return m
}

func (m *SpecManipulator) ProcessWrite(line genesisparser.Line) (*genesisparser.WriteDecision, error) {
	if value, ok := m.strings[line.Key]; ok {
		return genesisparser.Remove(genesisparser.StringLine(line.Key, value)), nil
	}
	switch {
	case line.Key == "para_id" && m.fields.ParaID != nil:
		return genesisparser.Remove(genesisparser.NumberLine(line.Key, *m.fields.ParaID)), nil
	case line.Key == "bootNodes" && m.fields.ClearBootNodes:
		return genesisparser.Remove(), nil
	}
	return nil, nil
}
