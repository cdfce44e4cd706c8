package cell

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/travigo/cellroutes/pkg/network"
)

// Resolver turns offsets into the .rinfo file into edge sequences. The file
// handle is opened on first use and reused afterwards.
type Resolver struct {
	path     string
	registry network.EdgeRegistry

	file   *os.File
	reader *bufio.Reader
}

func NewResolver(path string, registry network.EdgeRegistry) *Resolver {
	return &Resolver{
		path:     path,
		registry: registry,
	}
}

func (r *Resolver) open() error {
	if r.file != nil {
		return nil
	}

	file, err := os.Open(r.path)
	if err != nil {
		return &FileError{Path: r.path, Err: err}
	}

	r.file = file
	r.reader = bufio.NewReader(file)

	return nil
}

// ReadLine returns the line starting at offset without its line ending
func (r *Resolver) ReadLine(offset uint64) (string, error) {
	if err := r.open(); err != nil {
		return "", err
	}

	if _, err := r.file.Seek(int64(offset), io.SeekStart); err != nil {
		return "", err
	}
	r.reader.Reset(r.file)

	line, err := r.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}

func (r *Resolver) Tokens(offset uint64) ([]string, error) {
	line, err := r.ReadLine(offset)
	if err != nil {
		return nil, err
	}

	return strings.Fields(line), nil
}

// Resolve reads the route at offset. A blank line gives ErrEmptyRoute and
// the first edge missing from the registry gives an *UnknownEdgeError.
func (r *Resolver) Resolve(offset uint64) ([]network.EdgeID, error) {
	tokens, err := r.Tokens(offset)
	if err != nil {
		return nil, err
	}

	if len(tokens) == 0 {
		return nil, ErrEmptyRoute
	}

	edges := make([]network.EdgeID, 0, len(tokens))
	for _, token := range tokens {
		edge, found := r.registry.GetEdge(token)
		if !found {
			return nil, &UnknownEdgeError{
				RouteFile: r.path,
				Offset:    offset,
				Edge:      token,
			}
		}

		edges = append(edges, edge)
	}

	return edges, nil
}

func (r *Resolver) Close() error {
	if r.file == nil {
		return nil
	}

	err := r.file.Close()
	r.file = nil
	r.reader = nil

	return err
}
