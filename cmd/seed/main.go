package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"riskierwas/internal/config"
	"riskierwas/internal/model"
	"riskierwas/internal/repository"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Imports a question file into the MongoDB question library.
//
//	go run ./cmd/seed -file Data/questions.json -name "Pub quiz"
func main() {
	godotenv.Load()

	file := flag.String("file", "", "question file to import (defaults to the startup bank)")
	name := flag.String("name", "", "library entry name (defaults to the file name)")
	hostID := flag.String("host", "seed", "host id recorded on the set")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	path := *file
	if path == "" {
		path = repository.ResolveDataPath(cfg.DefaultBankPath())
	}
	questions, err := repository.NewQuestionFile().Load(path)
	if err != nil {
		log.Fatalf("Failed to load questions: %v", err)
	}

	setName := *name
	if setName == "" {
		setName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	sets := repository.NewQuestionSetRepo(client.Database(cfg.Mongo.Database))
	set := &model.QuestionSet{
		HostID:    *hostID,
		Name:      setName,
		Questions: questions,
	}
	if err := sets.Save(ctx, set); err != nil {
		log.Fatalf("Failed to insert question set: %v", err)
	}

	fmt.Printf("Successfully imported %d questions as '%s' (id %s)\n", len(questions), set.Name, set.ID)
}
