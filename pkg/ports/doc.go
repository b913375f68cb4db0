/*
Package ports defines the driven ports (interfaces) of the workbench.

These interfaces decouple the engine from storage backends so that documents
can live on the local filesystem, in memory or in Redis.

# Key Interfaces

  - DocumentStore: saves, loads, lists and deletes workspace documents by name.
  - Watchable: notifies about documents changed outside the process.
  - DocumentLocker: serializes writers of the same document across processes.
*/
package ports
