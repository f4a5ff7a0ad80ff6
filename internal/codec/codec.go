// Package codec reads and writes topology files.
package codec

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"packetflow/internal/domain"
)

// ErrUnknownFormat is returned for formats no codec handles
var ErrUnknownFormat = errors.New("unknown topology format")

// Importer interface for importing topologies from various formats
type Importer interface {
	Parse(r io.Reader) (*domain.Topology, error)
	Format() string
}

// Exporter interface for exporting topologies to various formats
type Exporter interface {
	Export(topo *domain.Topology, w io.Writer) error
	Format() string
}

// Codec both imports and exports one format
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec for a format name ("json", "yaml" or "yml")
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml", "":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ForPath picks a codec from a file extension
func ForPath(path string) (Codec, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, fmt.Errorf("%w: %s has no extension", ErrUnknownFormat, path)
	}
	return ForFormat(ext)
}

// ForContentType picks a codec from an HTTP Content-Type, defaulting to YAML
func ForContentType(contentType string) Codec {
	if strings.Contains(strings.ToLower(contentType), "json") {
		return NewJSONCodec()
	}
	return NewYAMLCodec()
}

// document is the on-disk shape shared by the JSON and YAML codecs
type document struct {
	Hub   string         `json:"hub" yaml:"hub"`
	Nodes []documentNode `json:"nodes" yaml:"nodes"`
	Edges []documentEdge `json:"edges" yaml:"edges"`
}

type documentNode struct {
	ID   string  `json:"id" yaml:"id"`
	Type string  `json:"type" yaml:"type"`
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
}

type documentEdge struct {
	From   string `json:"from" yaml:"from"`
	To     string `json:"to" yaml:"to"`
	Weight int    `json:"weight" yaml:"weight"`
}

func toDocument(topo *domain.Topology) document {
	nodes := topo.Nodes()
	edges := topo.Edges()

	doc := document{
		Hub:   topo.Hub(),
		Nodes: make([]documentNode, 0, len(nodes)),
		Edges: make([]documentEdge, 0, len(edges)),
	}
	for _, n := range nodes {
		doc.Nodes = append(doc.Nodes, documentNode{
			ID:   n.ID,
			Type: string(n.Type),
			X:    n.Position.X,
			Y:    n.Position.Y,
		})
	}
	for _, e := range edges {
		doc.Edges = append(doc.Edges, documentEdge{From: e.From, To: e.To, Weight: e.Weight})
	}
	return doc
}

func (d document) topology() (*domain.Topology, error) {
	nodes := make([]domain.Node, 0, len(d.Nodes))
	for _, dn := range d.Nodes {
		nt, err := domain.ParseNodeType(dn.Type)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", dn.ID, err)
		}
		nodes = append(nodes, domain.NewNode(dn.ID, nt, dn.X, dn.Y))
	}

	edges := make([]domain.Edge, 0, len(d.Edges))
	for _, de := range d.Edges {
		edges = append(edges, domain.NewEdge(de.From, de.To, de.Weight))
	}

	return domain.NewTopology(nodes, edges, d.Hub)
}
