package graph

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"unsafe"
)

const (
	magicBytes = "RTIMPACT"
	version    = uint32(1)
	maxNodes   = 10_000_000
	maxEdges   = 50_000_000
	maxStrings = 1 << 30 // total bytes in one string table
)

// fileHeader is the binary header.
type fileHeader struct {
	Magic    [8]byte
	Version  uint32
	NumNodes uint32
	NumEdges uint32
}

// WriteBinary serializes g to a binary snapshot file.
// Uses unsafe.Slice for fast zero-copy I/O and an atomic rename on success.
func WriteBinary(path string, g *Graph) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	crcWriter := crc32Writer{w: f, hash: crc32.NewIEEE()}
	if err := encode(&crcWriter, g); err != nil {
		return err
	}

	// Write CRC32 trailer.
	checksum := crcWriter.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename.
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

func encode(w io.Writer, g *Graph) error {
	numNodes := len(g.nodes)
	numEdges := len(g.edges)

	hdr := fileHeader{
		Version:  version,
		NumNodes: uint32(numNodes),
		NumEdges: uint32(numEdges),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	// Node columns.
	lat := make([]float64, numNodes)
	lon := make([]float64, numNodes)
	nodeMode := make([]byte, numNodes)
	ids := make([]string, numNodes)
	stopIDs := make([]string, numNodes)
	nodeRoutes := make([]string, numNodes)
	names := make([]string, numNodes)
	for i, n := range g.nodes {
		lat[i], lon[i] = n.Lat, n.Lon
		nodeMode[i] = byte(n.Mode)
		ids[i] = string(n.ID)
		stopIDs[i] = n.StopID
		nodeRoutes[i] = n.RouteID
		names[i] = n.Name
	}

	if err := writeFloat64Slice(w, lat); err != nil {
		return fmt.Errorf("write NodeLat: %w", err)
	}
	if err := writeFloat64Slice(w, lon); err != nil {
		return fmt.Errorf("write NodeLon: %w", err)
	}
	if err := writeBytes(w, nodeMode); err != nil {
		return fmt.Errorf("write NodeMode: %w", err)
	}
	for _, col := range []struct {
		name string
		vals []string
	}{
		{"NodeID", ids}, {"StopID", stopIDs}, {"NodeRouteID", nodeRoutes}, {"Name", names},
	} {
		if err := writeStrings(w, col.vals); err != nil {
			return fmt.Errorf("write %s: %w", col.name, err)
		}
	}

	// Edge columns; endpoints stored as node positions.
	from := make([]uint32, numEdges)
	to := make([]uint32, numEdges)
	weight := make([]float64, numEdges)
	edgeMode := make([]byte, numEdges)
	edgeRoutes := make([]string, numEdges)
	for i, e := range g.edges {
		from[i] = uint32(g.index[e.From])
		to[i] = uint32(g.index[e.To])
		weight[i] = e.Weight
		edgeMode[i] = byte(e.Mode)
		edgeRoutes[i] = e.RouteID
	}

	if err := writeUint32Slice(w, from); err != nil {
		return fmt.Errorf("write EdgeFrom: %w", err)
	}
	if err := writeUint32Slice(w, to); err != nil {
		return fmt.Errorf("write EdgeTo: %w", err)
	}
	if err := writeFloat64Slice(w, weight); err != nil {
		return fmt.Errorf("write EdgeWeight: %w", err)
	}
	if err := writeBytes(w, edgeMode); err != nil {
		return fmt.Errorf("write EdgeMode: %w", err)
	}
	if err := writeStrings(w, edgeRoutes); err != nil {
		return fmt.Errorf("write EdgeRouteID: %w", err)
	}
	return nil
}

// ReadBinary deserializes a graph snapshot written by WriteBinary.
func ReadBinary(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	crcReader := crc32Reader{r: f, hash: crc32.NewIEEE()}
	g, err := decode(&crcReader)
	if err != nil {
		return nil, err
	}

	// Read and validate CRC32.
	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	return g, nil
}

func decode(r io.Reader) (*Graph, error) {
	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, fmt.Errorf("NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
	}
	if hdr.NumEdges > maxEdges {
		return nil, fmt.Errorf("NumEdges %d exceeds limit %d", hdr.NumEdges, maxEdges)
	}
	numNodes := int(hdr.NumNodes)
	numEdges := int(hdr.NumEdges)

	lat, err := readFloat64Slice(r, numNodes)
	if err != nil {
		return nil, fmt.Errorf("read NodeLat: %w", err)
	}
	lon, err := readFloat64Slice(r, numNodes)
	if err != nil {
		return nil, fmt.Errorf("read NodeLon: %w", err)
	}
	nodeMode, err := readBytes(r, numNodes)
	if err != nil {
		return nil, fmt.Errorf("read NodeMode: %w", err)
	}
	ids, err := readStrings(r, numNodes)
	if err != nil {
		return nil, fmt.Errorf("read NodeID: %w", err)
	}
	stopIDs, err := readStrings(r, numNodes)
	if err != nil {
		return nil, fmt.Errorf("read StopID: %w", err)
	}
	nodeRoutes, err := readStrings(r, numNodes)
	if err != nil {
		return nil, fmt.Errorf("read NodeRouteID: %w", err)
	}
	names, err := readStrings(r, numNodes)
	if err != nil {
		return nil, fmt.Errorf("read Name: %w", err)
	}

	g := NewWithCapacity(numNodes, numEdges)
	for i := range numNodes {
		n := Node{
			ID:      NodeID(ids[i]),
			Lat:     lat[i],
			Lon:     lon[i],
			Mode:    Mode(nodeMode[i]),
			StopID:  stopIDs[i],
			RouteID: nodeRoutes[i],
			Name:    names[i],
		}
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}

	from, err := readUint32Slice(r, numEdges)
	if err != nil {
		return nil, fmt.Errorf("read EdgeFrom: %w", err)
	}
	to, err := readUint32Slice(r, numEdges)
	if err != nil {
		return nil, fmt.Errorf("read EdgeTo: %w", err)
	}
	weight, err := readFloat64Slice(r, numEdges)
	if err != nil {
		return nil, fmt.Errorf("read EdgeWeight: %w", err)
	}
	edgeMode, err := readBytes(r, numEdges)
	if err != nil {
		return nil, fmt.Errorf("read EdgeMode: %w", err)
	}
	edgeRoutes, err := readStrings(r, numEdges)
	if err != nil {
		return nil, fmt.Errorf("read EdgeRouteID: %w", err)
	}

	for i := range numEdges {
		if from[i] >= hdr.NumNodes || to[i] >= hdr.NumNodes {
			return nil, fmt.Errorf("edge %d endpoint out of range (%d, %d) >= %d", i, from[i], to[i], hdr.NumNodes)
		}
		e := Edge{
			From:    g.nodes[from[i]].ID,
			To:      g.nodes[to[i]].ID,
			Weight:  weight[i],
			Mode:    Mode(edgeMode[i]),
			RouteID: edgeRoutes[i],
		}
		if err := g.AddEdge(e); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Zero-copy I/O helpers using unsafe.Slice.

func writeUint32Slice(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeFloat64Slice(w io.Writer, s []float64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func writeBytes(w io.Writer, b []byte) error {
	if len(b) == 0 {
		return nil
	}
	_, err := w.Write(b)
	return err
}

func readUint32Slice(r io.Reader, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readFloat64Slice(r io.Reader, n int) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]float64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readBytes(r io.Reader, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// String tables: n+1 uint32 offsets followed by the concatenated bytes.

func writeStrings(w io.Writer, ss []string) error {
	offsets := make([]uint32, len(ss)+1)
	total := 0
	for i, s := range ss {
		total += len(s)
		if total > maxStrings {
			return fmt.Errorf("string table exceeds %d bytes", maxStrings)
		}
		offsets[i+1] = uint32(total)
	}
	if err := writeUint32Slice(w, offsets); err != nil {
		return err
	}
	blob := make([]byte, 0, total)
	for _, s := range ss {
		blob = append(blob, s...)
	}
	return writeBytes(w, blob)
}

func readStrings(r io.Reader, n int) ([]string, error) {
	offsets, err := readUint32Slice(r, n+1)
	if err != nil {
		return nil, err
	}
	total := offsets[n]
	if total > maxStrings || total > math.MaxInt32 {
		return nil, fmt.Errorf("string table size %d exceeds limit", total)
	}
	blob, err := readBytes(r, int(total))
	if err != nil {
		return nil, err
	}
	ss := make([]string, n)
	for i := range n {
		lo, hi := offsets[i], offsets[i+1]
		if lo > hi || hi > total {
			return nil, fmt.Errorf("string table offsets not monotonic at %d", i)
		}
		ss[i] = string(blob[lo:hi])
	}
	return ss, nil
}

// CRC32 wrapping writers/readers.

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
