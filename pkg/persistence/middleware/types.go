// Package middleware wraps document stores with extra behavior.
package middleware

import "github.com/aretw0/dynamo/pkg/ports"

// Middleware allows wrapping a DocumentStore to add behavior.
type Middleware func(ports.DocumentStore) ports.DocumentStore
