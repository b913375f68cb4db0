/*
Package domain contains the core model of the Dynamo node-graph engine.

It defines the entities a workspace is made of and the structural rules that
keep a graph consistent. This package is kept pure and free of I/O,
persistence and evaluation strategy; the evaluator lives in internal/runtime
and node kinds are supplied through the Resolver interface.

# Key Entities

  - Port: an attachment point on a node (Input, Output or State/feedback).
  - Connector: a directed edge from an Output port to an Input or State port.
  - Node: a unit of computation whose Behavior is produced by a kind factory.
  - Graph: a Home or Custom workspace owning nodes, connectors and notes.
  - Note: a free-floating text annotation.

Mutations go through Graph (AddNode, Connect, Disconnect, RemoveNode, Clear)
so that dirty propagation and observer notification always happen.
*/
package domain
