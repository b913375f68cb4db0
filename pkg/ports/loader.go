package ports

import "context"

// Watchable is implemented by stores that can report documents changed by
// other processes. It is used to hot-reload custom node definitions.
type Watchable interface {
	// Watch returns a channel receiving the name of every changed document.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}
