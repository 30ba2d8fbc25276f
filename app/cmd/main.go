package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"hiraku/app/server"
	"hiraku/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	lg, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		log.Fatal("init logger: ", err)
	}
	defer lg.Sync()

	s := server.NewServer(os.Getenv("SERVER_ADDR"), lg)

	go func() {
		if err := s.Run(); err != nil {
			lg.Fatal("server failed", "error", err)
		}
	}()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	lg.Info("received shutdown signal, shutting down server")
	s.Stop()
}
