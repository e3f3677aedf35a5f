// Package handler implements the HTTP API of the dialogue store server.
//
// # Routes
//
//	GET    /api/nodes              list nodes
//	POST   /api/nodes              create a node (client assigned id)
//	GET    /api/nodes/{id}         fetch a node
//	PUT    /api/nodes/{id}         partial update
//	DELETE /api/nodes/{id}         remove a node (connections are not touched)
//	GET    /api/connections        list connections
//	POST   /api/connections        create a connection
//	DELETE /api/connections/{id}   remove a connection
//	GET    /api/gameElements       list element registry rows
//	POST   /api/gameElements       create a registry row
//	PUT    /api/gameElements/{id}  replace a registry row
//	GET    /api/export             download the store (?format=yaml)
//	POST   /api/import             replace the store
//	GET    /events                 Server-Sent Events stream
//	GET    /metrics                Prometheus metrics
//	GET    /health                 liveness and store size
//
// # Errors
//
// Failures are JSON objects {error, kind, details}. kind is the domain
// error kind; validation, invalid edge and parse failures map to 400,
// not found to 404, everything else to 500.
package handler
