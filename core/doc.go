// Package core provides the foundational domain types shared by the agent
// execution subsystem. It defines the core abstractions for:
//
//   - Agent configurations (provider binding, permissions, tool allow-lists)
//   - Executions (request, ordered steps, single terminal result)
//   - Tool results fed back into the acting loop as observations
//   - Memory records spanning the conversation / vector / session kinds
//   - Guard decisions and the stable error taxonomy surfaced to callers
//
// The package intentionally keeps implementation concerns (providers, tool
// execution, orchestration) out of scope, exposing small interfaces so the
// engine can be wired with custom backends. Everything here is plain data or
// tiny helpers; no package in the module sits below core.
package core
