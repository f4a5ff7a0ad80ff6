// Package loader reads topology files from disk.
package loader

import (
	"fmt"
	"os"

	"packetflow/internal/codec"
	"packetflow/internal/domain"
)

// LoadTopology reads the topology at path, picking the codec from the file
// extension. An empty path yields the built-in diagram.
func LoadTopology(path string) (*domain.Topology, error) {
	if path == "" {
		return domain.DefaultTopology(), nil
	}

	c, err := codec.ForPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()

	topo, err := c.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return topo, nil
}

// SaveTopology writes topo to path in the format named by its extension
func SaveTopology(path string, topo *domain.Topology) error {
	c, err := codec.ForPath(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := c.Export(topo, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
