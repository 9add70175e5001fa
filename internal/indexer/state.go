package indexer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
)

const stateFile = "index_state.json"

// IndexState tracks which catalog documents have been embedded and the
// content hash each was embedded from.
type IndexState struct {
	Embedder    string            `json:"embedder"`
	Hashes      map[string]string `json:"hashes"`
	LastUpdated time.Time         `json:"last_updated"`
}

// LoadState reads index state from dir. A missing file yields empty state.
func LoadState(dir string) (*IndexState, error) {
	data, err := os.ReadFile(filepath.Join(dir, stateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &IndexState{Hashes: make(map[string]string)}, nil
		}
		return nil, eris.Wrap(err, "read index state")
	}

	var state IndexState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, eris.Wrap(err, "decode index state")
	}
	if state.Hashes == nil {
		state.Hashes = make(map[string]string)
	}
	return &state, nil
}

// SaveState writes the index state into dir.
func (s *IndexState) SaveState(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "create state dir")
	}

	s.LastUpdated = time.Now().UTC()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encode index state")
	}
	return eris.Wrap(os.WriteFile(filepath.Join(dir, stateFile), data, 0o644), "write index state")
}

// IsChanged reports whether the document's hash differs from the stored one.
func (s *IndexState) IsChanged(docID, contentHash string) bool {
	stored, ok := s.Hashes[docID]
	if !ok {
		return true
	}
	return stored != contentHash
}

// Reset forgets every recorded hash.
func (s *IndexState) Reset() {
	s.Hashes = make(map[string]string)
}
