// Command seed fills the Inkwell database with demo users and blogs.
package main

import (
	"flag"
	"log"

	"inkwell/internal/bootstrap"
	"inkwell/internal/config"
	"inkwell/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numBlogs := flag.Int("blogs", 60, "Number of blogs to create")
	maxCollaborators := flag.Int("collaborators", 3, "Maximum collaborators per blog")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Build data without writing to the database")
	fast := flag.Bool("fast", false, "Use a cheap bcrypt cost for seeded passwords")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Printf("Target: %d users, %d blogs, clean=%v\n", *numUsers, *numBlogs, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, _, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		NumUsers:         *numUsers,
		NumBlogs:         *numBlogs,
		ShouldClean:      *shouldClean,
		DryRun:           *dryRun,
		SkipBcrypt:       *fast,
		MaxCollaborators: *maxCollaborators,
	})
	if err := s.Run(); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with demo data.")
	log.Printf("📧 All seeded users have the password: %s", seed.DefaultPassword)
}
