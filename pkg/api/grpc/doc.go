// Package grpc exposes the standard gRPC health service. The serving status
// follows the lifecycle state of the data fabric.
package grpc
