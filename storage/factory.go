package storage

import (
	"fmt"
	"strings"
)

// CreateStore creates a Store implementation from a connection string,
// auto-detecting the backend from the URL scheme.
//
// Supported formats:
//   - mongodb://localhost:27017/callaudit (also mongodb+srv://)
//   - memory:// (in-process, for tests and local development)
func CreateStore(connString string) (Store, error) {
	switch {
	case strings.HasPrefix(connString, "mongodb://"),
		strings.HasPrefix(connString, "mongodb+srv://"):
		return NewMongoStore(connString)
	case connString == "" || strings.HasPrefix(connString, "memory://"):
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store URL: %s", connString)
	}
}
