package main

import (
	"flag"
	"log"
	"storefront-distance-service/internal/adapters/repositories"
	"storefront-distance-service/internal/app"
	"storefront-distance-service/internal/config"
)

func main() {
	purge := flag.Bool("purge", false, "delete every cached distance after initializing the schema")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, dialect, err := app.OpenDB(cfg.Cache)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	log.Printf("Initializing %s schema...", dialect)
	if err := repositories.InitSchema(db, dialect); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	if *purge {
		n, err := repositories.PurgeDistanceCache(db)
		if err != nil {
			log.Fatalf("purge failed: %v", err)
		}
		log.Printf("Purged %d cached distances.", n)
	}
}
