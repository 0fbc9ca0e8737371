// Package persistence is the Persistence Facade (§4.6): every exported
// method opens no connection of its own beyond what database/sql's pool
// already holds, performs one query or one batch, and returns — callers
// never hold a Store method call across an LLM call. Nothing in pkg/llmgw
// receives a *Store; pkg/contexttree's Collector holds one only to read
// context docs before the tree-building LLM rounds start.
package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// Store is the facade's single entry point, grounded on the teacher's
// pkg/database/client.go pooled-client pattern and the one-call-per-service-
// method discipline visible across pkg/services/*_service.go.
type Store struct {
	db *sql.DB
}

// NewStore wraps an already-migrated connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// marshalJSON panics on a value that cannot round-trip through
// encoding/json; every caller here passes an in-memory struct this package
// itself defines, so a marshal failure means a programming error, not bad
// input.
func marshalJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("persistence: marshal %T: %v", v, err))
	}
	return b
}

func unmarshalJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
