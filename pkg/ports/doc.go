/*
Package ports defines the driven ports (interfaces) for the stepwise engine.

These interfaces decouple the flow logic from external implementations, allowing
hosts to plug in their own storage backends, lock managers and answer sinks.

# Key Interfaces

  - FlowEngine: the stateless flow core consumed by the HTTP and MCP adapters.
  - StateStore: persists and loads FlowState for resume.
  - DistributedLocker: serialises access to one flow across replicas.
  - AnswerSink: receives the Answer Store of a completed flow.
*/
package ports
