package tools

import "fmt"

// NotAuthorizedError indicates a connection was requested for a server that
// no authorization tier covers. The connection is refused before any
// network traffic.
type NotAuthorizedError struct {
	ServerName string
}

func (e *NotAuthorizedError) Error() string {
	return fmt.Sprintf("server %s is not authorized; complete an authorization flow first", e.ServerName)
}
