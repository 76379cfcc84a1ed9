package main

import (
	"context"
	"log"
	"net"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"shop-system/config"
	"shop-system/internal/app"
	"shop-system/internal/grpcserver"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}

	s := grpc.NewServer()

	hs := grpcserver.Register(s, grpcserver.NewCheckout(a.POS, a.Ledger))

	reflection.Register(s)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down checkout service")
		hs.Shutdown()
		s.GracefulStop()
	}()

	log.Printf(" 💰 Checkout service listening on :%s", cfg.Server.GRPCPort)
	if err := s.Serve(lis); err != nil {
		log.Fatalf("Failed to serve: %v", err)
	}
}
