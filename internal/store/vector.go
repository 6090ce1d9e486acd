package store

import (
	"database/sql"
	"encoding/binary"
	"math"
	"sync"

	"github.com/coder/hnsw"
)

// vectorIndex wraps an in-memory coder/hnsw graph keyed by chunk ID. The
// graph is rebuilt from the chunks_vec table's persisted blobs at store-open
// time; writes go to both the table and the graph so the two stay in sync
// for the life of the process.
type vectorIndex struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	idMap  map[string]uint64
	keyMap map[uint64]string
	next   uint64
}

func newVectorIndex() *vectorIndex {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 20
	g.Ml = 0.25
	return &vectorIndex{
		graph:  g,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
}

// loadVectorIndex rebuilds the in-memory HNSW graph from persisted blobs.
func loadVectorIndex(db *sql.DB) (*vectorIndex, error) {
	vi := newVectorIndex()

	rows, err := db.Query(`SELECT id, embedding FROM chunks_vec`)
	if err != nil {
		return vi, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			continue
		}
		vec := decodeVector(blob)
		if len(vec) != Dimensions {
			continue
		}
		vi.add(id, vec)
	}
	return vi, rows.Err()
}

func (vi *vectorIndex) add(id string, vec []float32) {
	vi.mu.Lock()
	defer vi.mu.Unlock()

	if existing, ok := vi.idMap[id]; ok {
		// Lazy deletion: orphan the old key rather than calling graph.Delete,
		// which mishandles removal of the graph's last remaining node.
		delete(vi.keyMap, existing)
		delete(vi.idMap, id)
	}

	key := vi.next
	vi.next++
	vi.graph.Add(hnsw.MakeNode(key, vec))
	vi.idMap[id] = key
	vi.keyMap[key] = id
}

func (vi *vectorIndex) remove(ids []string) {
	vi.mu.Lock()
	defer vi.mu.Unlock()
	for _, id := range ids {
		if key, ok := vi.idMap[id]; ok {
			delete(vi.keyMap, key)
			delete(vi.idMap, id)
		}
	}
}

// Len reports the number of live vectors.
func (vi *vectorIndex) Len() int {
	vi.mu.RLock()
	defer vi.mu.RUnlock()
	return len(vi.idMap)
}

type vectorHit struct {
	ID       string
	Distance float32
}

func (vi *vectorIndex) search(query []float32, k int) []vectorHit {
	vi.mu.RLock()
	defer vi.mu.RUnlock()

	if len(vi.idMap) == 0 {
		return nil
	}
	nodes := vi.graph.Search(query, k)
	out := make([]vectorHit, 0, len(nodes))
	for _, n := range nodes {
		id, ok := vi.keyMap[n.Key]
		if !ok {
			continue // orphaned (lazily deleted) key
		}
		d := vi.graph.Distance(query, n.Value)
		out = append(out, vectorHit{ID: id, Distance: d})
	}
	return out
}

// encodeVector serializes a float32 vector as little-endian bytes for blob storage.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector parses a little-endian float32 blob back into a vector.
func decodeVector(buf []byte) []float32 {
	n := len(buf) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}

// normalizeL2 scales vec to unit length in place; a zero vector is left unchanged.
func normalizeL2(vec []float32) {
	var sumSq float64
	for _, f := range vec {
		sumSq += float64(f) * float64(f)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range vec {
		vec[i] /= norm
	}
}
