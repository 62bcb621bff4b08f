package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"wordchain/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Registers a player directly in the database and prints the id, which is
// the login credential. Useful for local testing without the HTTP flow.
func main() {
	name := flag.String("name", "", "player name (1-10 characters)")
	flag.Parse()
	if *name == "" {
		log.Fatal("-name is required")
	}

	dsn := os.Getenv("DATABASE_URI")
	if dsn == "" {
		log.Fatal("DATABASE_URI not set")
	}

	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	player, err := repository.NewPlayerRepository(db).Create(context.Background(), *name)
	if err != nil {
		log.Fatalf("create player: %v", err)
	}
	fmt.Printf("created player %s with id %s\n", player.Name, player.ID)
}
