package handler

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// CartServiceName is the health-checked service name of the cart store.
const CartServiceName = "gomarket.cart.v1.CartStore"

type GRPCHandler struct {
	server *grpc.Server
	health *health.Server
}

// NewGRPCHandler builds a gRPC server exposing the standard health service. The cart
// store reports NOT_SERVING until MarkReady is called.
func NewGRPCHandler(opts ...grpc.ServerOption) *GRPCHandler {
	srv := grpc.NewServer(opts...)
	hs := health.NewServer()
	hs.SetServingStatus(CartServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &GRPCHandler{server: srv, health: hs}
}

func (h *GRPCHandler) Server() *grpc.Server {
	return h.server
}

func (h *GRPCHandler) MarkReady() {
	h.health.SetServingStatus(CartServiceName, healthpb.HealthCheckResponse_SERVING)
}

// Shutdown flips every service to NOT_SERVING and stops the server gracefully.
func (h *GRPCHandler) Shutdown() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
