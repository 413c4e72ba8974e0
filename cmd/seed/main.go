// Command seed fills the database with demo users, designs, ratings, posts
// and comments.
package main

import (
	"context"
	"flag"
	"log"

	"vexillum/internal/config"
	"vexillum/internal/database"
	"vexillum/internal/seed"
	"vexillum/internal/server"
	"vexillum/internal/service"
)

func main() {
	opts := seed.DefaultOptions
	flag.IntVar(&opts.Users, "users", opts.Users, "Number of users to create")
	flag.IntVar(&opts.Designs, "designs", opts.Designs, "Number of designs to create")
	flag.IntVar(&opts.Posts, "posts", opts.Posts, "Number of posts to create")
	flag.IntVar(&opts.CommentsPerItem, "comments", opts.CommentsPerItem, "Comments per design and per post")
	flag.IntVar(&opts.RatingsPerDesign, "ratings", opts.RatingsPerDesign, "Ratings per design")
	flag.IntVar(&opts.Announcements, "announcements", opts.Announcements, "How many posts are announcements")
	curatedPath := flag.String("curated", "", "YAML file with subjects and tags to draw from")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Vexillum seeder")
	log.Printf("Target: %d users, %d designs, %d posts, clean=%v", opts.Users, opts.Designs, opts.Posts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	store, err := server.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}

	var curated seed.Curated
	if *curatedPath != "" {
		curated, err = seed.LoadCurated(*curatedPath)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
	}

	s := seed.NewSeeder(db, service.NewImageService(store, cfg.MaxUploadMB), curated, *randSeed)
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	sum, err := s.Run(ctx, opts)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	log.Printf("✨ Created %d users, %d designs, %d ratings, %d posts, %d comments",
		sum.Users, sum.Designs, sum.Ratings, sum.Posts, sum.Comments)
	log.Println("The first user is an admin.")
}
