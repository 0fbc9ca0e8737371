// Package orchestrator wires the L0 infrastructure (Task Registry,
// Progress Transport, Persistence Facade, LLM Gateway, Tool Registry)
// together with the three pipelines (SQL Corpus, Configuration Object,
// Context Tree) and the chat orchestrator, exposing them over HTTP and a
// single progress/chat websocket (§4.1, §4.2, §4.8).
package orchestrator

import (
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/config"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/llmgw"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/persistence"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/progress"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/taskregistry"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/toolregistry"
)

// Deps are the shared collaborators assembled once at process startup.
type Deps struct {
	Config *config.Config
	Store  *persistence.Store
	Tasks  *taskregistry.Registry
	Hub    *progress.Hub
	Tools  *toolregistry.Registry
	LLM    *llmgw.Gateway
}

// Orchestrator holds the wired collaborators and implements every
// HTTP/websocket-facing operation.
type Orchestrator struct {
	cfg   *config.Config
	store *persistence.Store
	tasks *taskregistry.Registry
	hub   *progress.Hub
	tools *toolregistry.Registry
	llm   *llmgw.Gateway
}

// New builds an Orchestrator from Deps.
func New(d Deps) *Orchestrator {
	return &Orchestrator{
		cfg:   d.Config,
		store: d.Store,
		tasks: d.Tasks,
		hub:   d.Hub,
		tools: d.Tools,
		llm:   d.LLM,
	}
}
